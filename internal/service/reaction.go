package service

import (
	"fmt"

	"github.com/shinyyama/social-market/internal/model"
)

type ReactionAction int

const (
	ActionLike ReactionAction = iota
	ActionDislike
	// ActionDoubleLike re-affirms a like and never toggles it off.
	ActionDoubleLike
)

func (a ReactionAction) String() string {
	switch a {
	case ActionLike:
		return "like"
	case ActionDislike:
		return "dislike"
	case ActionDoubleLike:
		return "double_like"
	}
	return "unknown"
}

// Transition is the only place reaction states change.
//
//	NONE     --like-->        LIKED      LIKED    --like-->    NONE
//	DISLIKED --like-->        LIKED
//	NONE     --dislike-->     DISLIKED   DISLIKED --dislike--> NONE
//	LIKED    --dislike-->     DISLIKED
//	any      --double_like--> LIKED
func Transition(current model.ReactionState, action ReactionAction) model.ReactionState {
	switch action {
	case ActionLike:
		if current == model.ReactionLiked {
			return model.ReactionNone
		}
		return model.ReactionLiked
	case ActionDislike:
		if current == model.ReactionDisliked {
			return model.ReactionNone
		}
		return model.ReactionDisliked
	case ActionDoubleLike:
		return model.ReactionLiked
	}
	return current
}

// reactionNotification is the ledger row that must exist for state, or nil.
func reactionNotification(post *model.Post, actorID uint64, state model.ReactionState) *model.Notification {
	if post.AuthorID == actorID {
		return nil
	}
	n := &model.Notification{
		UserID:  post.AuthorID,
		ActorID: actorID,
		PostID:  uint64Ptr(post.ID),
	}
	switch state {
	case model.ReactionLiked:
		n.Type = model.NotificationLike
		n.Text = "Liked your post"
	case model.ReactionDisliked:
		n.Type = model.NotificationDislike
		n.Text = "Disliked your post"
	default:
		return nil
	}
	return n
}

func reactionDedupeKey(postID, actorID uint64) string {
	return fmt.Sprintf("reaction:%d:%d", postID, actorID)
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}
