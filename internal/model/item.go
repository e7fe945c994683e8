package model

import "time"

type Item struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	SellerID    uint64    `gorm:"column:seller_id;not null;index"`
	Seller      *User     `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	CategoryID  *uint64   `gorm:"column:category_id;index"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Name        string    `gorm:"size:120;not null"`
	Description string    `gorm:"type:text;not null"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	Quantity    int       `gorm:"not null;default:1"`
	Condition   string    `gorm:"size:32"`
	ImageURL    *string   `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Item) TableName() string {
	return "items"
}
