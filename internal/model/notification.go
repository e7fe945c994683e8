package model

import "time"

type NotificationType int

const (
	NotificationLike    NotificationType = 1
	NotificationComment NotificationType = 2
	NotificationMessage NotificationType = 3
	NotificationDislike NotificationType = 5
)

func (t NotificationType) String() string {
	switch t {
	case NotificationLike:
		return "like"
	case NotificationComment:
		return "comment"
	case NotificationMessage:
		return "message"
	case NotificationDislike:
		return "dislike"
	}
	return "unknown"
}

type Notification struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement"`
	UserID    uint64           `gorm:"column:user_id;not null;index:idx_notifications_user_type"`
	ActorID   uint64           `gorm:"column:actor_id;not null;index"`
	Type      NotificationType `gorm:"column:notification_types;not null;index:idx_notifications_user_type"`
	PostID    *uint64          `gorm:"column:post_id;index"`
	ItemID    *uint64          `gorm:"column:item_id;index"`
	RoomID    *uint64          `gorm:"column:room_id;index"`
	Text      string           `gorm:"column:text;size:255"`
	DedupeKey *string          `gorm:"column:dedupe_key;size:128;uniqueIndex:uk_notifications_dedupe_key"`
	ReadAt    *time.Time       `gorm:"column:read_at"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
