package model

import "time"

type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID     uint64    `gorm:"column:room_id;not null;index" json:"roomId"`
	Room       *Room     `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID   *uint64   `gorm:"column:sender_id;index" json:"senderId"`
	Sender     *User     `gorm:"foreignKey:SenderID;constraint:OnDelete:SET NULL" json:"-"`
	ReceiverID *uint64   `gorm:"column:receiver_id;index" json:"receiverId,omitempty"`
	Receiver   *User     `gorm:"foreignKey:ReceiverID;constraint:OnDelete:SET NULL" json:"-"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
