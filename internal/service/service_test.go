package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/ai"
	"github.com/shinyyama/social-market/internal/chat"
	"github.com/shinyyama/social-market/internal/config"
	"github.com/shinyyama/social-market/internal/db"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func mustUser(t *testing.T, gdb *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, PasswordHash: "x"}
	require.NoError(t, repository.NewUserRepository(gdb).Create(context.Background(), u))
	return u
}

// recorder captures published chat events.
type recorder struct {
	mu     sync.Mutex
	events []chat.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, ev chat.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) all() []chat.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Event(nil), r.events...)
}

type stubAnswerer struct {
	answer string
	err    error
	facts  ai.ItemFacts
}

func (s *stubAnswerer) Answer(_ context.Context, facts ai.ItemFacts, _ string) (string, error) {
	s.facts = facts
	return s.answer, s.err
}

type memImages struct {
	saved map[string][]byte
	err   error
}

func (m *memImages) Save(_ context.Context, filename, _ string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return "https://cdn.test/items/" + filename, nil
}

type fixture struct {
	db      *gorm.DB
	pub     *recorder
	chat    ChatService
	market  MarketService
	blog    BlogService
	notify  NotificationService
	notifs  repository.NotificationRepository
	rooms   repository.RoomRepository
	images  *memImages
	answers *stubAnswerer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	f := &fixture{
		db:      gdb,
		pub:     &recorder{},
		notifs:  repository.NewNotificationRepository(gdb),
		rooms:   repository.NewRoomRepository(gdb),
		images:  &memImages{},
		answers: &stubAnswerer{answer: "Yes, it ships with a charger."},
	}
	f.notify = NewNotificationService(f.notifs, zerolog.Nop())
	f.chat = NewChatService(f.rooms, f.pub, zerolog.Nop())
	f.market = NewMarketService(MarketDeps{
		Items:    repository.NewItemRepository(gdb),
		Rooms:    f.rooms,
		Chat:     f.chat,
		Notifier: f.notify,
		Images:   f.images,
		Answerer: f.answers,
		Log:      zerolog.Nop(),
	})
	f.blog = NewBlogService(repository.NewPostRepository(gdb), repository.NewReactionRepository(gdb))
	return f
}

func (f *fixture) count(t *testing.T, userID uint64, typ model.NotificationType) int64 {
	t.Helper()
	n, err := f.notifs.CountByType(context.Background(), userID, typ)
	require.NoError(t, err)
	return n
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
	require.Contains(t, verr.Fields, field)
}
