package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/chat"
	"github.com/shinyyama/social-market/internal/metrics"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/repository"
)

var roomNamePattern = regexp.MustCompile(`^[\w.@+-]{1,255}$`)

// listingRoomPattern matches names produced by RoomName. Such rooms are only
// created privately for the buyer and seller of a listing.
var listingRoomPattern = regexp.MustCompile(`^Item_\d+_`)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// RoomName derives the room used for conversations about one listing between a buyer and its seller.
func RoomName(itemID uint64, buyerUsername, sellerUsername string) string {
	return fmt.Sprintf("Item_%d_%s_%s", itemID, buyerUsername, sellerUsername)
}

type PostMessageInput struct {
	Room       *model.Room
	Sender     *model.User
	Body       string
	ReceiverID *uint64
	// ItemID links the message to a listing conversation when set.
	ItemID *uint64
}

type ChatService interface {
	GetOrCreateRoom(ctx context.Context, creatorID uint64, name string, isPrivate bool, participants ...uint64) (*model.Room, error)
	JoinRoom(ctx context.Context, name string, userID uint64) (*model.Room, error)
	Authorize(ctx context.Context, name string, userID uint64) (*model.Room, error)
	PostMessage(ctx context.Context, in PostMessageInput) (*model.Message, *model.ItemMessage, error)
	EditMessage(ctx context.Context, room *model.Room, messageID uint64, body string) (*model.Message, error)
	ListRooms(ctx context.Context, userID uint64) ([]model.Room, error)
	History(ctx context.Context, name string, userID uint64, limit int) ([]model.Message, error)
}

type chatService struct {
	rooms repository.RoomRepository
	pub   chat.Publisher
	log   zerolog.Logger
}

func NewChatService(rooms repository.RoomRepository, pub chat.Publisher, log zerolog.Logger) ChatService {
	return &chatService{rooms: rooms, pub: pub, log: log}
}

func (s *chatService) GetOrCreateRoom(ctx context.Context, creatorID uint64, name string, isPrivate bool, participants ...uint64) (*model.Room, error) {
	if creatorID == 0 {
		return nil, ErrUnauthorized
	}
	if !roomNamePattern.MatchString(name) {
		return nil, invalid("room", "invalid room name")
	}
	if !isPrivate && listingRoomPattern.MatchString(name) {
		return nil, invalid("room", "this room name is reserved")
	}
	room, err := s.rooms.FindOrCreate(ctx, name, creatorID, isPrivate)
	if err != nil {
		return nil, fmt.Errorf("get or create room: %w", err)
	}
	if isPrivate && !ownedBy(room, creatorID, participants) {
		return nil, fmt.Errorf("room %q is held by another user: %w", name, ErrConflict)
	}
	if len(participants) > 0 {
		if err := s.rooms.AddParticipants(ctx, room.ID, participants...); err != nil {
			return nil, fmt.Errorf("add participants: %w", err)
		}
	}
	return room, nil
}

// JoinRoom opens a public room by name, creating it on first use. Private rooms
// and listing rooms only admit their participants.
func (s *chatService) JoinRoom(ctx context.Context, name string, userID uint64) (*model.Room, error) {
	if listingRoomPattern.MatchString(name) {
		return s.Authorize(ctx, name, userID)
	}
	room, err := s.GetOrCreateRoom(ctx, userID, name, false)
	if err != nil {
		return nil, err
	}
	ok, err := s.rooms.IsParticipant(ctx, room.ID, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		return room, nil
	}
	if room.IsPrivate {
		return nil, ErrForbidden
	}
	if err := s.rooms.AddParticipants(ctx, room.ID, userID); err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}
	return room, nil
}

// ownedBy reports whether an existing row is the private room the caller asked for.
func ownedBy(room *model.Room, creatorID uint64, participants []uint64) bool {
	if !room.IsPrivate {
		return false
	}
	if room.CreatorID == creatorID {
		return true
	}
	for _, id := range participants {
		if id == room.CreatorID {
			return true
		}
	}
	return false
}

// Authorize returns the named room if userID may read it.
func (s *chatService) Authorize(ctx context.Context, name string, userID uint64) (*model.Room, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	room, err := s.rooms.FindByName(ctx, name)
	if err != nil {
		return nil, notFoundOr(err)
	}
	ok, err := s.rooms.IsParticipant(ctx, room.ID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return room, nil
}

// PostMessage persists the message (and its listing link) first; delivery to
// subscribers is attempted only after the write has committed.
func (s *chatService) PostMessage(ctx context.Context, in PostMessageInput) (*model.Message, *model.ItemMessage, error) {
	if in.Sender == nil || in.Sender.ID == 0 {
		return nil, nil, ErrUnauthorized
	}
	if in.Room == nil {
		return nil, nil, ErrNotFound
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, nil, invalid("message", "this field is required")
	}

	senderID := in.Sender.ID
	msg := &model.Message{
		RoomID:     in.Room.ID,
		SenderID:   &senderID,
		ReceiverID: in.ReceiverID,
		Body:       body,
	}
	var link *model.ItemMessage
	if in.ItemID != nil {
		link = &model.ItemMessage{
			ItemID:     *in.ItemID,
			SenderID:   &senderID,
			ReceiverID: in.ReceiverID,
		}
	}
	if err := s.rooms.CreateMessage(ctx, msg, link); err != nil {
		return nil, nil, fmt.Errorf("store message: %w", err)
	}
	metrics.ChatMessages.Inc()

	s.publish(ctx, chat.EventMessageCreated, in.Room.Name, msg, in.Sender.Username)
	return msg, link, nil
}

func (s *chatService) EditMessage(ctx context.Context, room *model.Room, messageID uint64, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("message", "this field is required")
	}
	msg, err := s.rooms.FindMessage(ctx, messageID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if err := s.rooms.UpdateMessageBody(ctx, messageID, body); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	msg.Body = body
	if room != nil {
		s.publish(ctx, chat.EventMessageUpdated, room.Name, msg, "")
	}
	return msg, nil
}

func (s *chatService) ListRooms(ctx context.Context, userID uint64) ([]model.Room, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	return s.rooms.ListByUser(ctx, userID)
}

func (s *chatService) History(ctx context.Context, name string, userID uint64, limit int) ([]model.Message, error) {
	room, err := s.Authorize(ctx, name, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.rooms.ListMessages(ctx, room.ID, limit)
}

func (s *chatService) publish(ctx context.Context, typ, room string, msg *model.Message, sender string) {
	if s.pub == nil {
		return
	}
	if sender == "" && msg.Sender != nil {
		sender = msg.Sender.Username
	}
	ev := chat.NewEvent(typ, room, chat.MessagePayload{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		Sender:     sender,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	})
	if err := s.pub.Publish(ctx, ev); err != nil {
		metrics.ChatPublishFailures.Inc()
		s.log.Warn().Err(err).Str("room", room).Uint64("message_id", msg.ID).Msg("chat publish failed")
	}
}
