package model

import "time"

// ItemMessage ties a chat Message to the listing it is about.
type ItemMessage struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	RoomID     uint64    `gorm:"column:room_id;not null;index"`
	Room       *Room     `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	MessageID  uint64    `gorm:"column:message_id;not null;index"`
	Message    *Message  `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	ItemID     uint64    `gorm:"column:item_id;not null;index"`
	Item       *Item     `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	SenderID   *uint64   `gorm:"column:sender_id;index"`
	Sender     *User     `gorm:"foreignKey:SenderID;constraint:OnDelete:SET NULL"`
	ReceiverID *uint64   `gorm:"column:receiver_id;index"`
	Receiver   *User     `gorm:"foreignKey:ReceiverID;constraint:OnDelete:SET NULL"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ItemMessage) TableName() string {
	return "item_messages"
}
