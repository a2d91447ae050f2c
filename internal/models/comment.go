package models

import (
	"time"
)

const DeletedCommentContent = "This comment has been deleted."

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"post,omitempty"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // nil for top-level comments
	Content   string    `gorm:"type:text;not null" json:"content"`
	Deleted   bool      `gorm:"default:false" json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Replies   []Comment `gorm:"-" json:"replies,omitempty"`
	LikeCount int       `gorm:"-" json:"like_count"`
	Liked     bool      `gorm:"-" json:"liked"`
}
