package models

import (
	"time"
)

// Like targets exactly one of report, post or comment. One like per (user, target) is
// enforced by the composite unique indexes; NULL columns never collide.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_like_report;uniqueIndex:idx_like_post;uniqueIndex:idx_like_comment" json:"user_id"`
	ReportID  *uint     `gorm:"index;uniqueIndex:idx_like_report" json:"report_id"`
	PostID    *uint     `gorm:"index;uniqueIndex:idx_like_post" json:"post_id"`
	CommentID *uint     `gorm:"index;uniqueIndex:idx_like_comment" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

type TargetType string

const (
	TargetReport  TargetType = "report"
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Target identifies a likeable entity.
type Target struct {
	Type TargetType
	ID   uint
}

func (t Target) Valid() bool {
	switch t.Type {
	case TargetReport, TargetPost, TargetComment:
		return t.ID > 0
	}
	return false
}

// Column is the Like column referencing this target type.
func (t Target) Column() string {
	return string(t.Type) + "_id"
}
