package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationResponse struct {
	ID        uint64  `json:"id"`
	Type      string  `json:"type"`
	TypeCode  int     `json:"typeCode"`
	ActorID   uint64  `json:"actorId"`
	Text      string  `json:"text"`
	PostID    *uint64 `json:"postId,omitempty"`
	ItemID    *uint64 `json:"itemId,omitempty"`
	RoomID    *uint64 `json:"roomId,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type.String(),
		TypeCode:  int(n.Type),
		ActorID:   n.ActorID,
		Text:      n.Text,
		PostID:    n.PostID,
		ItemID:    n.ItemID,
		RoomID:    n.RoomID,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	unreadOnly := c.QueryParam("unread_only") != "false"
	limit := queryInt(c, "limit", 20)
	list, unreadCount, err := h.svc.List(c.Request().Context(), uid, unreadOnly, limit)
	if err != nil {
		return writeError(c, err, "failed to fetch notifications")
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": resp,
		"unreadCount":   unreadCount,
	})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), uid); err != nil {
		return writeError(c, err, "failed to mark read")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
