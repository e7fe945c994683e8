package repository

import (
	"context"

	"github.com/shinyyama/social-market/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionCounts struct {
	Likes    int64
	Dislikes int64
}

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	FindByID(ctx context.Context, id uint64) (*model.Post, error)
	ListPublished(ctx context.Context, limit, offset int) ([]model.Post, error)
	CreateComment(ctx context.Context, c *model.Comment, n *model.Notification) error
	ListComments(ctx context.Context, postID uint64) ([]model.Comment, error)
	ReactionCounts(ctx context.Context, postID uint64) (ReactionCounts, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) ListPublished(ctx context.Context, limit, offset int) ([]model.Post, error) {
	var list []model.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("status = ?", model.PostStatusPublished).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// CreateComment stores the comment and the author's notification together; n may be nil.
func (r *postRepository) CreateComment(ctx context.Context, c *model.Comment, n *model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		if n == nil {
			return nil
		}
		return tx.Create(n).Error
	})
}

func (r *postRepository) ListComments(ctx context.Context, postID uint64) ([]model.Comment, error) {
	var list []model.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postRepository) ReactionCounts(ctx context.Context, postID uint64) (ReactionCounts, error) {
	var out ReactionCounts
	if err := r.db.WithContext(ctx).Model(&model.PostReaction{}).
		Where("post_id = ? AND state = ?", postID, model.ReactionLiked).
		Count(&out.Likes).Error; err != nil {
		return out, err
	}
	if err := r.db.WithContext(ctx).Model(&model.PostReaction{}).
		Where("post_id = ? AND state = ?", postID, model.ReactionDisliked).
		Count(&out.Dislikes).Error; err != nil {
		return out, err
	}
	return out, nil
}
