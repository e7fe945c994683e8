package model

import "time"

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"size:150;not null;uniqueIndex:uk_users_username" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;size:255" json:"-"`
	FirebaseUID  *string   `gorm:"column:firebase_uid;size:128;uniqueIndex:uk_users_firebase_uid" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
