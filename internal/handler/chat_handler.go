package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/chat"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/service"
)

type ChatHandler struct {
	svc      service.ChatService
	hub      *chat.Hub
	upgrader *websocket.Upgrader
	log      zerolog.Logger
}

func NewChatHandler(svc service.ChatService, hub *chat.Hub, upgrader *websocket.Upgrader, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, hub: hub, upgrader: upgrader, log: log}
}

type RoomResponse struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	CreatorID uint64 `json:"creatorId"`
	IsPrivate bool   `json:"isPrivate"`
	CreatedAt string `json:"createdAt"`
}

func toRoomResponse(r *model.Room) RoomResponse {
	return RoomResponse{
		ID:        r.ID,
		Name:      r.Name,
		CreatorID: r.CreatorID,
		IsPrivate: r.IsPrivate,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ChatHandler) ListRooms(c echo.Context) error {
	rooms, err := h.svc.ListRooms(c.Request().Context(), appmw.UserID(c))
	if err != nil {
		return writeError(c, err, "failed to fetch rooms")
	}
	resp := make([]RoomResponse, 0, len(rooms))
	for i := range rooms {
		resp = append(resp, toRoomResponse(&rooms[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"rooms": resp})
}

func (h *ChatHandler) History(c echo.Context) error {
	msgs, err := h.svc.History(c.Request().Context(), c.Param("name"), appmw.UserID(c), queryInt(c, "limit", 0))
	if err != nil {
		return writeError(c, err, "failed to fetch messages")
	}
	resp := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, toMessageResponse(&msgs[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": resp})
}

func (h *ChatHandler) PostMessage(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	room, err := h.svc.JoinRoom(ctx, c.Param("name"), uid)
	if err != nil {
		return writeError(c, err, "failed to open room")
	}
	msg, _, err := h.svc.PostMessage(ctx, service.PostMessageInput{
		Room:   room,
		Sender: &model.User{ID: uid, Username: appmw.Username(c)},
		Body:   req.Message,
	})
	if err != nil {
		return writeError(c, err, "failed to post message")
	}
	return c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// Socket upgrades to a websocket subscribed to the room; inbound frames are stored as messages.
func (h *ChatHandler) Socket(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	room, err := h.svc.JoinRoom(c.Request().Context(), c.Param("name"), uid)
	if err != nil {
		return writeError(c, err, "failed to open room")
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		h.log.Debug().Err(err).Str("room", room.Name).Msg("websocket upgrade failed")
		return nil
	}

	sender := &model.User{ID: uid, Username: appmw.Username(c)}
	log := h.log.With().Str("room", room.Name).Uint64("user_id", uid).Logger()
	sub := h.hub.Subscribe(room.Name)
	post := func(ctx context.Context, body string) error {
		_, _, err := h.svc.PostMessage(ctx, service.PostMessageInput{Room: room, Sender: sender, Body: body})
		return err
	}
	chat.Serve(context.WithoutCancel(c.Request().Context()), conn, sub, post, log)
	return nil
}
