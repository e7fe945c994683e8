package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shinyyama/social-market/internal/metrics"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/repository"
)

type CreatePostInput struct {
	Title    string
	Subtitle string
	Content  string
	Publish  bool
}

type PostView struct {
	Post       *model.Post
	Likes      int64
	Dislikes   int64
	MyReaction model.ReactionState
}

type ReactionResult struct {
	PostID   uint64              `json:"postId"`
	State    model.ReactionState `json:"state"`
	Previous model.ReactionState `json:"previous"`
	Likes    int64               `json:"likes"`
	Dislikes int64               `json:"dislikes"`
}

type BlogService interface {
	CreatePost(ctx context.Context, authorID uint64, in CreatePostInput) (*model.Post, error)
	GetPost(ctx context.Context, postID, viewerID uint64) (*PostView, error)
	ListPosts(ctx context.Context, limit, offset int) ([]model.Post, error)
	React(ctx context.Context, actorID, postID uint64, action ReactionAction) (*ReactionResult, error)
	Comment(ctx context.Context, actorID, postID uint64, body string) (*model.Comment, error)
	ListComments(ctx context.Context, postID uint64) ([]model.Comment, error)
}

type blogService struct {
	posts     repository.PostRepository
	reactions repository.ReactionRepository
}

func NewBlogService(posts repository.PostRepository, reactions repository.ReactionRepository) BlogService {
	return &blogService{posts: posts, reactions: reactions}
}

func (s *blogService) CreatePost(ctx context.Context, authorID uint64, in CreatePostInput) (*model.Post, error) {
	if authorID == 0 {
		return nil, ErrUnauthorized
	}
	verr := &ValidationError{}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" {
		verr.add("title", "this field is required")
	}
	if content == "" {
		verr.add("content", "this field is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	p := &model.Post{
		AuthorID: authorID,
		Title:    title,
		Subtitle: strings.TrimSpace(in.Subtitle),
		Content:  content,
		Status:   model.PostStatusDraft,
	}
	if in.Publish {
		p.Status = model.PostStatusPublished
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *blogService) GetPost(ctx context.Context, postID, viewerID uint64) (*PostView, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	counts, err := s.posts.ReactionCounts(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	view := &PostView{Post: p, Likes: counts.Likes, Dislikes: counts.Dislikes, MyReaction: model.ReactionNone}
	if viewerID != 0 {
		state, err := s.reactions.Get(ctx, postID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("load reaction: %w", err)
		}
		view.MyReaction = state
	}
	return view, nil
}

func (s *blogService) ListPosts(ctx context.Context, limit, offset int) ([]model.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.posts.ListPublished(ctx, limit, offset)
}

// React applies action to the actor's reaction on the post. The reaction row and the
// author's reaction notification change together.
func (s *blogService) React(ctx context.Context, actorID, postID uint64, action ReactionAction) (*ReactionResult, error) {
	if actorID == 0 {
		return nil, ErrUnauthorized
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	step := func(cur model.ReactionState) model.ReactionState {
		return Transition(cur, action)
	}
	entry := func(state model.ReactionState) *model.Notification {
		return reactionNotification(post, actorID, state)
	}
	change, err := s.reactions.Apply(ctx, postID, actorID, reactionDedupeKey(postID, actorID), step, entry)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("apply %s: %w", action, err)
	}
	if change.Previous != change.Current {
		if n := entry(change.Current); n != nil {
			metrics.NotificationsWritten.WithLabelValues(n.Type.String()).Inc()
		}
	}

	counts, err := s.posts.ReactionCounts(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	return &ReactionResult{
		PostID:   postID,
		State:    change.Current,
		Previous: change.Previous,
		Likes:    counts.Likes,
		Dislikes: counts.Dislikes,
	}, nil
}

func (s *blogService) Comment(ctx context.Context, actorID, postID uint64, body string) (*model.Comment, error) {
	if actorID == 0 {
		return nil, ErrUnauthorized
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("body", "this field is required")
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	c := &model.Comment{PostID: postID, AuthorID: actorID, Body: body}
	var n *model.Notification
	if post.AuthorID != actorID {
		n = &model.Notification{
			UserID:  post.AuthorID,
			ActorID: actorID,
			Type:    model.NotificationComment,
			PostID:  uint64Ptr(postID),
			Text:    "Commented on your post",
		}
	}
	if err := s.posts.CreateComment(ctx, c, n); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if n != nil {
		metrics.NotificationsWritten.WithLabelValues(n.Type.String()).Inc()
	}
	return c, nil
}

func (s *blogService) ListComments(ctx context.Context, postID uint64) ([]model.Comment, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, notFoundOr(err)
	}
	return s.posts.ListComments(ctx, postID)
}
