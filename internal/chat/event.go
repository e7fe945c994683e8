// Package chat delivers persisted room activity to connected clients.
package chat

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
)

type MessagePayload struct {
	ID         uint64    `json:"id"`
	RoomID     uint64    `json:"roomId"`
	SenderID   *uint64   `json:"senderId"`
	Sender     string    `json:"sender,omitempty"`
	ReceiverID *uint64   `json:"receiverId,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Event is the frame written to websocket subscribers and to the redis channel.
type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Room    string         `json:"room"`
	Message MessagePayload `json:"message"`
}

func NewEvent(typ, room string, msg MessagePayload) Event {
	return Event{
		ID:      ulid.Make().String(),
		Type:    typ,
		Room:    room,
		Message: msg,
	}
}

// Publisher hands an event to whatever transport fans it out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
