package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/service"
)

type ConversationHandler struct {
	svc service.MarketService
}

func NewConversationHandler(svc service.MarketService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type MessageResponse struct {
	ID         uint64  `json:"id"`
	RoomID     uint64  `json:"roomId"`
	SenderID   *uint64 `json:"senderId"`
	Sender     string  `json:"sender,omitempty"`
	ReceiverID *uint64 `json:"receiverId,omitempty"`
	Body       string  `json:"body"`
	CreatedAt  string  `json:"createdAt"`
}

type ConversationResponse struct {
	ID         uint64          `json:"id"`
	Room       string          `json:"room"`
	ItemID     uint64          `json:"itemId"`
	ItemName   string          `json:"itemName,omitempty"`
	SenderID   *uint64         `json:"senderId"`
	Sender     string          `json:"sender,omitempty"`
	ReceiverID *uint64         `json:"receiverId"`
	Receiver   string          `json:"receiver,omitempty"`
	Message    MessageResponse `json:"message"`
	CreatedAt  string          `json:"createdAt"`
}

type ContactResponse struct {
	Room           string          `json:"room"`
	ConversationID uint64          `json:"conversationId"`
	Message        MessageResponse `json:"message"`
}

type messageRequest struct {
	Message string `json:"message" form:"message"`
}

func toMessageResponse(m *model.Message) MessageResponse {
	resp := MessageResponse{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
	if m.Sender != nil {
		resp.Sender = m.Sender.Username
	}
	return resp
}

func toConversationResponse(im *model.ItemMessage) ConversationResponse {
	resp := ConversationResponse{
		ID:         im.ID,
		ItemID:     im.ItemID,
		SenderID:   im.SenderID,
		ReceiverID: im.ReceiverID,
		CreatedAt:  im.CreatedAt.Format(time.RFC3339),
	}
	if im.Room != nil {
		resp.Room = im.Room.Name
	}
	if im.Item != nil {
		resp.ItemName = im.Item.Name
	}
	if im.Sender != nil {
		resp.Sender = im.Sender.Username
	}
	if im.Receiver != nil {
		resp.Receiver = im.Receiver.Username
	}
	if im.Message != nil {
		resp.Message = toMessageResponse(im.Message)
	}
	return resp
}

// Contact starts (or continues) the buyer's conversation with the item's seller.
func (h *ConversationHandler) Contact(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid item id")
	}
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	buyer := &model.User{ID: uid, Username: appmw.Username(c)}
	res, err := h.svc.ContactSeller(c.Request().Context(), buyer, itemID, req.Message)
	if err != nil {
		return writeError(c, err, "failed to contact seller")
	}
	return c.JSON(http.StatusCreated, ContactResponse{
		Room:           res.Room.Name,
		ConversationID: res.ItemMessage.ID,
		Message:        toMessageResponse(res.Message),
	})
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	list, err := h.svc.Conversations(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "failed to fetch conversations")
	}
	resp := make([]ConversationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toConversationResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"conversations": resp})
}

func (h *ConversationHandler) Reply(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	msg, err := h.svc.Reply(c.Request().Context(), uid, id, req.Message)
	if err != nil {
		return writeError(c, err, "failed to reply")
	}
	return c.JSON(http.StatusOK, toMessageResponse(msg))
}

func (h *ConversationHandler) Delete(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.DeleteConversation(c.Request().Context(), uid, id); err != nil {
		return writeError(c, err, "failed to delete conversation")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
