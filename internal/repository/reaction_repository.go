package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/social-market/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxReactionAttempts = 3

// ReactionStep computes the next reaction state from the current one.
type ReactionStep func(current model.ReactionState) model.ReactionState

// LedgerEntry returns the notification that must exist for state, or nil when none should.
type LedgerEntry func(state model.ReactionState) *model.Notification

type ReactionChange struct {
	Previous model.ReactionState
	Current  model.ReactionState
}

type ReactionRepository interface {
	Apply(ctx context.Context, postID, userID uint64, dedupeKey string, step ReactionStep, entry LedgerEntry) (*ReactionChange, error)
	Get(ctx context.Context, postID, userID uint64) (model.ReactionState, error)
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Apply advances the (post, user) reaction with a version compare-and-set and rewrites the
// notification keyed by dedupeKey in the same transaction so the ledger always mirrors the state.
func (r *reactionRepository) Apply(ctx context.Context, postID, userID uint64, dedupeKey string, step ReactionStep, entry LedgerEntry) (*ReactionChange, error) {
	seed := model.PostReaction{PostID: postID, UserID: userID, State: model.ReactionNone}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxReactionAttempts; attempt++ {
		var change ReactionChange
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var cur model.PostReaction
			if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&cur).Error; err != nil {
				return err
			}
			next := step(cur.State)
			res := tx.Model(&model.PostReaction{}).
				Where("id = ? AND version = ?", cur.ID, cur.Version).
				Updates(map[string]interface{}{
					"state":   next,
					"version": gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
			change = ReactionChange{Previous: cur.State, Current: next}
			return syncLedger(tx, dedupeKey, cur.State != next, entry(next))
		})
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &change, nil
	}
	return nil, ErrConflict
}

func syncLedger(tx *gorm.DB, dedupeKey string, changed bool, want *model.Notification) error {
	if !changed {
		if want == nil {
			return nil
		}
		var cnt int64
		if err := tx.Model(&model.Notification{}).Where("dedupe_key = ?", dedupeKey).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return nil
		}
	} else if err := tx.Where("dedupe_key = ?", dedupeKey).Delete(&model.Notification{}).Error; err != nil {
		return err
	}
	if want == nil {
		return nil
	}
	key := dedupeKey
	want.DedupeKey = &key
	return tx.Create(want).Error
}

func (r *reactionRepository) Get(ctx context.Context, postID, userID uint64) (model.ReactionState, error) {
	var cur model.PostReaction
	err := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&cur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ReactionNone, nil
	}
	if err != nil {
		return model.ReactionNone, err
	}
	return cur.State, nil
}
