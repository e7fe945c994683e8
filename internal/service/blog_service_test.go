package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shinyyama/social-market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPost(t *testing.T, f *fixture, author *model.User) *model.Post {
	t.Helper()
	p, err := f.blog.CreatePost(context.Background(), author.ID, CreatePostInput{Title: "Hello", Content: "First post", Publish: true})
	require.NoError(t, err)
	return p
}

func TestReactionLedgerScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	author := mustUser(t, f.db, "author")
	fan := mustUser(t, f.db, "fan")
	post := newPost(t, f, author)

	res, err := f.blog.React(ctx, fan.ID, post.ID, ActionLike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionLiked, res.State)
	assert.EqualValues(t, 1, res.Likes)
	assert.EqualValues(t, 1, f.count(t, author.ID, model.NotificationLike))

	res, err = f.blog.React(ctx, fan.ID, post.ID, ActionLike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionNone, res.State)
	assert.Equal(t, model.ReactionLiked, res.Previous)
	assert.EqualValues(t, 0, res.Likes)
	assert.EqualValues(t, 0, f.count(t, author.ID, model.NotificationLike))

	res, err = f.blog.React(ctx, fan.ID, post.ID, ActionDislike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionDisliked, res.State)
	assert.EqualValues(t, 1, res.Dislikes)
	assert.EqualValues(t, 0, f.count(t, author.ID, model.NotificationLike))
	assert.EqualValues(t, 1, f.count(t, author.ID, model.NotificationDislike))

	_, err = f.blog.Comment(ctx, fan.ID, post.ID, "nice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, author.ID, model.NotificationComment))

	for i := 0; i < 2; i++ {
		res, err = f.blog.React(ctx, fan.ID, post.ID, ActionDoubleLike)
		require.NoError(t, err)
		assert.Equal(t, model.ReactionLiked, res.State)
	}
	assert.EqualValues(t, 1, f.count(t, author.ID, model.NotificationLike))
	assert.EqualValues(t, 0, f.count(t, author.ID, model.NotificationDislike))
	assert.EqualValues(t, 1, res.Likes)
	assert.EqualValues(t, 0, res.Dislikes)

	view, err := f.blog.GetPost(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionLiked, view.MyReaction)
	assert.EqualValues(t, 1, view.Likes)
}

func TestSwitchingReactionReplacesNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	author := mustUser(t, f.db, "author")
	fan := mustUser(t, f.db, "fan")
	post := newPost(t, f, author)

	_, err := f.blog.React(ctx, fan.ID, post.ID, ActionLike)
	require.NoError(t, err)
	res, err := f.blog.React(ctx, fan.ID, post.ID, ActionDislike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionDisliked, res.State)
	assert.Equal(t, model.ReactionLiked, res.Previous)
	assert.EqualValues(t, 0, res.Likes)
	assert.EqualValues(t, 1, res.Dislikes)
	assert.EqualValues(t, 0, f.count(t, author.ID, model.NotificationLike))
	assert.EqualValues(t, 1, f.count(t, author.ID, model.NotificationDislike))

	res, err = f.blog.React(ctx, fan.ID, post.ID, ActionLike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionLiked, res.State)
	assert.EqualValues(t, 1, f.count(t, author.ID, model.NotificationLike))
	assert.EqualValues(t, 0, f.count(t, author.ID, model.NotificationDislike))

	_, unread, err := f.notify.List(ctx, author.ID, false, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestReactingToOwnPostWritesNoNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	author := mustUser(t, f.db, "author")
	post := newPost(t, f, author)

	res, err := f.blog.React(ctx, author.ID, post.ID, ActionLike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionLiked, res.State)
	assert.EqualValues(t, 1, res.Likes)

	_, err = f.blog.React(ctx, author.ID, post.ID, ActionDislike)
	require.NoError(t, err)
	_, err = f.blog.Comment(ctx, author.ID, post.ID, "replying to myself")
	require.NoError(t, err)

	list, unread, err := f.notify.List(ctx, author.ID, false, 50)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, unread)
}

func TestConcurrentLikesConverge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	author := mustUser(t, f.db, "author")
	fan := mustUser(t, f.db, "fan")
	post := newPost(t, f, author)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.blog.React(ctx, fan.ID, post.ID, ActionDoubleLike)
		}()
	}
	wg.Wait()

	view, err := f.blog.GetPost(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionLiked, view.MyReaction)
	assert.EqualValues(t, 1, f.count(t, author.ID, model.NotificationLike))
}

func TestReactErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.blog.React(ctx, 0, 1, ActionLike)
	assert.ErrorIs(t, err, ErrUnauthorized)

	fan := mustUser(t, f.db, "fan")
	_, err = f.blog.React(ctx, fan.ID, 999, ActionLike)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePostAndComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	author := mustUser(t, f.db, "author")
	reader := mustUser(t, f.db, "reader")

	_, err := f.blog.CreatePost(ctx, author.ID, CreatePostInput{Title: " ", Content: ""})
	requireValidation(t, err, "title")

	draft, err := f.blog.CreatePost(ctx, author.ID, CreatePostInput{Title: "Draft", Content: "wip"})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusDraft, draft.Status)
	published := newPost(t, f, author)

	posts, err := f.blog.ListPosts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, published.ID, posts[0].ID)

	_, err = f.blog.Comment(ctx, reader.ID, published.ID, "   ")
	requireValidation(t, err, "body")

	_, err = f.blog.Comment(ctx, reader.ID, published.ID, "great read")
	require.NoError(t, err)
	comments, err := f.blog.ListComments(ctx, published.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "great read", comments[0].Body)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "reader", comments[0].Author.Username)

	_, err = f.blog.ListComments(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}
