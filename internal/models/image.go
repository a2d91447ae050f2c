package models

import (
	"time"
)

type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PublicID  string    `gorm:"uniqueIndex;not null" json:"public_id"` // id on the image host
	URL       string    `gorm:"not null" json:"url"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	PostID    *uint     `gorm:"index" json:"post_id"`
	PostOrder int       `gorm:"default:0" json:"post_order"`
	CreatedAt time.Time `json:"created_at"`
}
