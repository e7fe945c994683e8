package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/metrics"
)

const defaultBuffer = 32

// Subscription receives the events of one room until Close is called.
type Subscription struct {
	C <-chan Event

	hub  *Hub
	room string
	ch   chan Event
	once sync.Once
}

func (s *Subscription) Room() string {
	return s.room
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans events out to the subscribers of each room inside this process.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{}
	buffer int
	log    zerolog.Logger
}

func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		rooms:  make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

func (h *Hub) Subscribe(room string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, hub: h, room: room, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[room] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[sub.room]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.rooms, sub.room)
		}
	}
	close(sub.ch)
}

// Publish delivers locally; it never fails.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Broadcast(ev)
	return nil
}

// Broadcast sends ev to every subscriber of ev.Room without blocking and
// returns how many received it. Subscribers with a full buffer miss the event.
func (h *Hub) Broadcast(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.rooms[ev.Room] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			metrics.ChatDropped.Inc()
			h.log.Debug().Str("room", ev.Room).Str("event_id", ev.ID).Msg("subscriber buffer full, event dropped")
		}
	}
	return delivered
}

func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
