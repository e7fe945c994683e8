package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/ai"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/repository"
	"github.com/shinyyama/social-market/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxSearchResult = 50
	maxImageBytes   = 5 << 20
)

type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ItemInput carries listing fields as submitted; numbers arrive as text.
type ItemInput struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	Condition   string
	Category    string
	Image       *ImageUpload
}

// ItemAnswerer answers a buyer question from listing facts.
type ItemAnswerer interface {
	Answer(ctx context.Context, facts ai.ItemFacts, question string) (string, error)
}

type ContactResult struct {
	Room        *model.Room
	Message     *model.Message
	ItemMessage *model.ItemMessage
}

type MarketService interface {
	CreateItem(ctx context.Context, sellerID uint64, in ItemInput) (*model.Item, error)
	GetItem(ctx context.Context, id uint64) (*model.Item, error)
	ListItems(ctx context.Context, limit, offset int) ([]model.Item, int64, error)
	ListBySeller(ctx context.Context, sellerID uint64) ([]model.Item, error)
	SearchItems(ctx context.Context, query string) ([]model.Item, error)
	UpdateItem(ctx context.Context, userID, itemID uint64, in ItemInput) (*model.Item, error)
	DeleteItem(ctx context.Context, userID, itemID uint64) error
	Categories(ctx context.Context) ([]model.Category, error)
	ContactSeller(ctx context.Context, buyer *model.User, itemID uint64, text string) (*ContactResult, error)
	Conversations(ctx context.Context, userID uint64) ([]model.ItemMessage, error)
	Reply(ctx context.Context, userID, itemMessageID uint64, text string) (*model.Message, error)
	DeleteConversation(ctx context.Context, userID, itemMessageID uint64) error
	AskItem(ctx context.Context, userID, itemID uint64, question string) (string, error)
}

type marketService struct {
	items    repository.ItemRepository
	rooms    repository.RoomRepository
	chat     ChatService
	notifier NotificationService
	images   storage.ImageStore
	answerer ItemAnswerer
	log      zerolog.Logger
}

type MarketDeps struct {
	Items    repository.ItemRepository
	Rooms    repository.RoomRepository
	Chat     ChatService
	Notifier NotificationService
	// Images may be nil; uploads are then ignored.
	Images storage.ImageStore
	// Answerer may be nil; AskItem then returns ErrDisabled.
	Answerer ItemAnswerer
	Log      zerolog.Logger
}

func NewMarketService(d MarketDeps) MarketService {
	return &marketService{
		items:    d.Items,
		rooms:    d.Rooms,
		chat:     d.Chat,
		notifier: d.Notifier,
		images:   d.Images,
		answerer: d.Answerer,
		log:      d.Log,
	}
}

type itemFields struct {
	name        string
	description string
	priceCents  int64
	quantity    int
	condition   string
	category    string
}

// validateItem checks the submitted fields; nothing may be persisted when it fails.
func validateItem(in ItemInput) (itemFields, error) {
	f := itemFields{
		name:        strings.TrimSpace(in.Name),
		description: strings.TrimSpace(in.Description),
		condition:   strings.TrimSpace(in.Condition),
		category:    strings.TrimSpace(in.Category),
		quantity:    1,
	}
	verr := &ValidationError{}
	if f.name == "" {
		verr.add("name", "this field is required")
	} else if len([]rune(f.name)) > 120 {
		verr.add("name", "must be 120 characters or fewer")
	}
	if f.description == "" {
		verr.add("description", "this field is required")
	}
	if strings.TrimSpace(in.Price) == "" {
		verr.add("price", "this field is required")
	} else if cents, err := ParsePrice(in.Price); err != nil {
		verr.add("price", err.Error())
	} else {
		f.priceCents = cents
	}
	if q := strings.TrimSpace(in.Quantity); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			verr.add("quantity", "must be a whole number of at least 1")
		} else {
			f.quantity = n
		}
	}
	if len([]rune(f.category)) > 120 {
		verr.add("category", "must be 120 characters or fewer")
	}
	if in.Image != nil && len(in.Image.Data) > maxImageBytes {
		verr.add("image", "file is too large")
	}
	return f, verr.orNil()
}

// ParsePrice converts a decimal amount with at most two fractional digits to cents.
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("enter a number with at most 2 decimal places")
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("enter a valid non-negative number")
		}
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, fmt.Errorf("enter a smaller amount")
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, _ = strconv.ParseInt(frac, 10, 64)
	}
	return units*100 + cents, nil
}

func (s *marketService) CreateItem(ctx context.Context, sellerID uint64, in ItemInput) (*model.Item, error) {
	if sellerID == 0 {
		return nil, ErrUnauthorized
	}
	f, err := validateItem(in)
	if err != nil {
		return nil, err
	}
	item := &model.Item{
		SellerID:    sellerID,
		Name:        f.name,
		Description: f.description,
		PriceCents:  f.priceCents,
		Quantity:    f.quantity,
		Condition:   f.condition,
	}
	if err := s.applyCategory(ctx, item, f.category); err != nil {
		return nil, err
	}
	if err := s.applyImage(ctx, item, in.Image); err != nil {
		return nil, err
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

func (s *marketService) applyCategory(ctx context.Context, item *model.Item, name string) error {
	if name == "" {
		item.CategoryID = nil
		item.Category = nil
		return nil
	}
	cat, err := s.items.FindOrCreateCategory(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	item.CategoryID = &cat.ID
	item.Category = cat
	return nil
}

// applyImage shrinks the upload when it can and stores it. A failed resize keeps
// the original bytes; a failed upload is an error.
func (s *marketService) applyImage(ctx context.Context, item *model.Item, img *ImageUpload) error {
	if img == nil || len(img.Data) == 0 {
		return nil
	}
	if s.images == nil {
		s.log.Warn().Str("file", img.Filename).Msg("image store not configured, upload ignored")
		return nil
	}
	data, ok := storage.Resize(img.Data)
	if !ok {
		s.log.Debug().Str("file", img.Filename).Msg("image resize skipped")
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	url, err := s.images.Save(ctx, img.Filename, contentType, data)
	if err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	item.ImageURL = &url
	return nil
}

func (s *marketService) GetItem(ctx context.Context, id uint64) (*model.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return item, nil
}

func (s *marketService) ListItems(ctx context.Context, limit, offset int) ([]model.Item, int64, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.items.List(ctx, limit, offset)
}

func (s *marketService) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Item, error) {
	if sellerID == 0 {
		return nil, ErrUnauthorized
	}
	return s.items.ListBySeller(ctx, sellerID)
}

// SearchItems matches query case-insensitively anywhere in the item name.
func (s *marketService) SearchItems(ctx context.Context, query string) ([]model.Item, error) {
	return s.items.SearchByName(ctx, strings.TrimSpace(query), maxSearchResult)
}

func (s *marketService) UpdateItem(ctx context.Context, userID, itemID uint64, in ItemInput) (*model.Item, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	f, err := validateItem(in)
	if err != nil {
		return nil, err
	}
	item.Name = f.name
	item.Description = f.description
	item.PriceCents = f.priceCents
	item.Quantity = f.quantity
	item.Condition = f.condition
	if err := s.applyCategory(ctx, item, f.category); err != nil {
		return nil, err
	}
	if err := s.applyImage(ctx, item, in.Image); err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

func (s *marketService) DeleteItem(ctx context.Context, userID, itemID uint64) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, itemID); err != nil {
		return notFoundOr(err)
	}
	return nil
}

func (s *marketService) ownedItem(ctx context.Context, userID, itemID uint64) (*model.Item, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if item.SellerID != userID {
		return nil, ErrForbidden
	}
	return item, nil
}

func (s *marketService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.items.ListCategories(ctx)
}

func (s *marketService) ContactSeller(ctx context.Context, buyer *model.User, itemID uint64, text string) (*ContactResult, error) {
	if buyer == nil || buyer.ID == 0 {
		return nil, ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("message", "this field is required")
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if item.SellerID == buyer.ID {
		return nil, invalid("item", "you cannot contact yourself about your own item")
	}
	if item.Seller == nil {
		return nil, fmt.Errorf("item %d has no seller loaded", item.ID)
	}

	name := RoomName(item.ID, buyer.Username, item.Seller.Username)
	room, err := s.chat.GetOrCreateRoom(ctx, buyer.ID, name, true, buyer.ID, item.SellerID)
	if errors.Is(err, ErrConflict) {
		s.log.Warn().Str("room", name).Uint64("item_id", item.ID).Uint64("buyer_id", buyer.ID).Msg("listing room held by a third party")
	}
	if err != nil {
		return nil, err
	}
	sellerID := item.SellerID
	msg, link, err := s.chat.PostMessage(ctx, PostMessageInput{
		Room:       room,
		Sender:     buyer,
		Body:       text,
		ReceiverID: &sellerID,
		ItemID:     &item.ID,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, &model.Notification{
		UserID:  sellerID,
		ActorID: buyer.ID,
		Type:    model.NotificationMessage,
		ItemID:  uint64Ptr(item.ID),
		RoomID:  uint64Ptr(room.ID),
		Text:    truncate(fmt.Sprintf("%s asked about %s", buyer.Username, item.Name), 255),
	})
	return &ContactResult{Room: room, Message: msg, ItemMessage: link}, nil
}

// Conversations returns the newest ItemMessage of each room the user takes part in.
func (s *marketService) Conversations(ctx context.Context, userID uint64) ([]model.ItemMessage, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	list, err := s.rooms.ListItemMessagesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint64]struct{}, len(list))
	out := make([]model.ItemMessage, 0, len(list))
	for _, im := range list {
		if _, dup := seen[im.RoomID]; dup {
			continue
		}
		seen[im.RoomID] = struct{}{}
		out = append(out, im)
	}
	return out, nil
}

// Reply replaces the text of the message behind an ItemMessage.
func (s *marketService) Reply(ctx context.Context, userID, itemMessageID uint64, text string) (*model.Message, error) {
	im, err := s.partyItemMessage(ctx, userID, itemMessageID)
	if err != nil {
		return nil, err
	}
	return s.chat.EditMessage(ctx, im.Room, im.MessageID, text)
}

// DeleteConversation removes only the ItemMessage; the room and its messages stay.
func (s *marketService) DeleteConversation(ctx context.Context, userID, itemMessageID uint64) error {
	im, err := s.partyItemMessage(ctx, userID, itemMessageID)
	if err != nil {
		return err
	}
	if err := s.rooms.DeleteItemMessage(ctx, im.ID); err != nil {
		return notFoundOr(err)
	}
	left, err := s.rooms.CountItemMessages(ctx, im.RoomID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("room_id", im.RoomID).Msg("count remaining conversations failed")
		return nil
	}
	if left == 0 {
		s.log.Debug().Uint64("room_id", im.RoomID).Msg("room has no conversations left, keeping room and messages")
	}
	return nil
}

func (s *marketService) partyItemMessage(ctx context.Context, userID, itemMessageID uint64) (*model.ItemMessage, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	im, err := s.rooms.FindItemMessage(ctx, itemMessageID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !isParty(im, userID) {
		return nil, ErrForbidden
	}
	return im, nil
}

func isParty(im *model.ItemMessage, userID uint64) bool {
	return (im.SenderID != nil && *im.SenderID == userID) ||
		(im.ReceiverID != nil && *im.ReceiverID == userID)
}

func (s *marketService) AskItem(ctx context.Context, userID, itemID uint64, question string) (string, error) {
	if s.answerer == nil {
		return "", ErrDisabled
	}
	if userID == 0 {
		return "", ErrUnauthorized
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", invalid("question", "this field is required")
	}
	if len([]rune(question)) > 500 {
		return "", invalid("question", "must be 500 characters or fewer")
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return "", notFoundOr(err)
	}
	if item.SellerID == userID {
		return "", ErrForbidden
	}
	facts := ai.ItemFacts{
		Name:        item.Name,
		Description: item.Description,
		PriceCents:  item.PriceCents,
		Quantity:    item.Quantity,
		Condition:   item.Condition,
	}
	if item.Category != nil {
		facts.Category = item.Category.Name
	}
	answer, err := s.answerer.Answer(ctx, facts, question)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return answer, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
