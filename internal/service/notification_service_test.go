package service

import (
	"context"
	"testing"
	"time"

	"github.com/shinyyama/social-market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySkipsSelfAndAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustUser(t, f.db, "alice")
	bob := mustUser(t, f.db, "bob")

	f.notify.Notify(ctx, nil)
	f.notify.Notify(ctx, &model.Notification{UserID: alice.ID, ActorID: alice.ID, Type: model.NotificationMessage})
	f.notify.Notify(ctx, &model.Notification{UserID: 0, ActorID: bob.ID, Type: model.NotificationMessage})
	f.notify.Notify(ctx, &model.Notification{UserID: alice.ID, ActorID: bob.ID, Type: model.NotificationMessage, Text: "hi"})

	list, unread, err := f.notify.List(ctx, alice.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, unread)
	assert.Equal(t, "hi", list[0].Text)
}

func TestMarkAllReadAndPrune(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustUser(t, f.db, "alice")
	bob := mustUser(t, f.db, "bob")
	for i := 0; i < 2; i++ {
		f.notify.Notify(ctx, &model.Notification{UserID: alice.ID, ActorID: bob.ID, Type: model.NotificationComment})
	}

	require.NoError(t, f.notify.MarkAllRead(ctx, alice.ID))
	unreadList, unread, err := f.notify.List(ctx, alice.ID, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unreadList)
	assert.Zero(t, unread)

	n, err := f.notify.PruneRead(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	// push read_at into the past so the retention window covers it
	require.NoError(t, f.db.Model(&model.Notification{}).
		Where("user_id = ?", alice.ID).
		Update("read_at", time.Now().Add(-48*time.Hour)).Error)
	n, err = f.notify.PruneRead(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
