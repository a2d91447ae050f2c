package services

import (
	"context"
	"time"

	"growjournal/internal/db"
	"growjournal/internal/models"

	"gorm.io/gorm"
)

// createNotification inserts n inside the caller's transaction. Self-notifications are dropped.
func createNotification(tx *gorm.DB, n *models.Notification) error {
	if n.RecipientID == 0 || n.RecipientID == n.ActorID {
		return nil
	}
	return tx.Create(n).Error
}

type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// List returns the newest notifications for the recipient.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := db.DB.WithContext(ctx).Preload("Actor").Where("recipient_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := db.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read. Only the recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := db.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Already read still counts as found.
		var count int64
		if err := db.DB.WithContext(ctx).Model(&models.Notification{}).
			Where("id = ? AND recipient_id = ?", id, userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := db.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	res := db.DB.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// NotificationGroup collapses notifications of one type about one subject,
// e.g. "Alice and 3 others liked your report".
type NotificationGroup struct {
	Type        models.NotificationType `json:"type"`
	SubjectType models.TargetType       `json:"subject_type"`
	SubjectID   uint                    `json:"subject_id"`
	ReportID    *uint                   `json:"report_id,omitempty"`
	PostID      *uint                   `json:"post_id,omitempty"`
	CommentID   *uint                   `json:"comment_id,omitempty"`
	Actors      []models.User           `json:"actors"` // distinct, newest first
	ActorCount  int                     `json:"actor_count"`
	Count       int                     `json:"count"`
	Unread      bool                    `json:"unread"`
	LatestAt    time.Time               `json:"latest_at"`
	IDs         []uint                  `json:"ids"`
}

const maxGroupActors = 3

// Aggregate groups notifications by (type, subject). Input is expected newest first;
// groups keep the position of their newest member. Actors is capped, ActorCount is not.
func Aggregate(notifications []models.Notification) []NotificationGroup {
	type groupKey struct {
		typ     models.NotificationType
		subject models.TargetType
		id      uint
	}

	var groups []NotificationGroup
	index := make(map[groupKey]int)
	seenActors := make(map[groupKey]map[uint]bool)

	for _, n := range notifications {
		subject, subjectID := n.SubjectKey()
		key := groupKey{n.Type, subject, subjectID}

		i, ok := index[key]
		if !ok {
			groups = append(groups, NotificationGroup{
				Type:        n.Type,
				SubjectType: subject,
				SubjectID:   subjectID,
				ReportID:    n.ReportID,
				PostID:      n.PostID,
				CommentID:   n.CommentID,
				LatestAt:    n.CreatedAt,
			})
			i = len(groups) - 1
			index[key] = i
			seenActors[key] = make(map[uint]bool)
		}

		g := &groups[i]
		g.Count++
		g.IDs = append(g.IDs, n.ID)
		if !n.IsRead {
			g.Unread = true
		}
		if n.CreatedAt.After(g.LatestAt) {
			g.LatestAt = n.CreatedAt
		}
		if !seenActors[key][n.ActorID] {
			seenActors[key][n.ActorID] = true
			g.ActorCount++
			if len(g.Actors) < maxGroupActors {
				g.Actors = append(g.Actors, n.Actor)
			}
		}
	}
	return groups
}
