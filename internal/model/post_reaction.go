package model

import "time"

type ReactionState string

const (
	ReactionNone     ReactionState = "none"
	ReactionLiked    ReactionState = "liked"
	ReactionDisliked ReactionState = "disliked"
)

// PostReaction holds the single reaction state of one user toward one post.
type PostReaction struct {
	ID        uint64        `gorm:"primaryKey;autoIncrement"`
	PostID    uint64        `gorm:"column:post_id;not null;uniqueIndex:uk_post_reactions_post_user"`
	UserID    uint64        `gorm:"column:user_id;not null;uniqueIndex:uk_post_reactions_post_user;index"`
	State     ReactionState `gorm:"column:state;size:16;not null;default:none"`
	Version   uint64        `gorm:"column:version;not null;default:0"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
}

func (PostReaction) TableName() string {
	return "post_reactions"
}
