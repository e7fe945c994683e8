package model

import "time"

// Room is a persisted chat conversation. Name is the identity key for get-or-create.
type Room struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"size:255;not null;uniqueIndex:uk_rooms_name" json:"name"`
	CreatorID    uint64    `gorm:"column:creator_id;not null;index" json:"creatorId"`
	Participants []User    `gorm:"many2many:room_participants;constraint:OnDelete:CASCADE" json:"-"`
	IsPrivate    bool      `gorm:"column:is_private;not null;default:false" json:"isPrivate"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Room) TableName() string {
	return "rooms"
}

// RoomParticipant is a row of the room_participants join table.
type RoomParticipant struct {
	RoomID uint64 `gorm:"column:room_id;primaryKey"`
	UserID uint64 `gorm:"column:user_id;primaryKey"`
}

func (RoomParticipant) TableName() string {
	return "room_participants"
}
