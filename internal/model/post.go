package model

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

type Post struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	AuthorID  uint64     `gorm:"column:author_id;not null;index"`
	Author    *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Title     string     `gorm:"size:200;not null"`
	Subtitle  string     `gorm:"size:200"`
	Content   string     `gorm:"type:text;not null"`
	Status    PostStatus `gorm:"size:16;not null;default:draft"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (Post) TableName() string {
	return "posts"
}

type Comment struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	PostID    uint64    `gorm:"column:post_id;not null;index"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	AuthorID  uint64    `gorm:"column:author_id;not null;index"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Comment) TableName() string {
	return "comments"
}
