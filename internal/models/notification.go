package models

import (
	"time"
)

type NotificationType string

const (
	NotificationLikeReport   NotificationType = "like_report"
	NotificationLikePost     NotificationType = "like_post"
	NotificationLikeComment  NotificationType = "like_comment"
	NotificationCommentPost  NotificationType = "comment_post"
	NotificationReplyComment NotificationType = "reply_comment"
)

// LikeNotificationType maps a like target onto its notification type.
func LikeNotificationType(t TargetType) NotificationType {
	switch t {
	case TargetReport:
		return NotificationLikeReport
	case TargetPost:
		return NotificationLikePost
	default:
		return NotificationLikeComment
	}
}

type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index" json:"recipient_id"`
	ActorID     uint             `gorm:"not null;index" json:"actor_id"`
	Actor       User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type        NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	ReportID    *uint            `gorm:"index" json:"report_id,omitempty"`
	PostID      *uint            `gorm:"index" json:"post_id,omitempty"`
	CommentID   *uint            `gorm:"index" json:"comment_id,omitempty"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// SubjectKey identifies what the notification is about, for grouping.
func (n *Notification) SubjectKey() (TargetType, uint) {
	switch {
	case n.CommentID != nil && (n.Type == NotificationLikeComment || n.Type == NotificationReplyComment):
		return TargetComment, *n.CommentID
	case n.PostID != nil:
		return TargetPost, *n.PostID
	case n.ReportID != nil:
		return TargetReport, *n.ReportID
	case n.CommentID != nil:
		return TargetComment, *n.CommentID
	}
	return "", 0
}
