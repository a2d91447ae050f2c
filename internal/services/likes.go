package services

import (
	"context"
	"errors"

	"growjournal/internal/db"
	"growjournal/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var errAlreadyLiked = errors.New("already liked")

type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

type LikeService struct {
	stats Scheduler
}

func NewLikeService(stats Scheduler) *LikeService {
	if stats == nil {
		stats = noopScheduler{}
	}
	return &LikeService{stats: stats}
}

// targetRefs is what a like target hangs off: its author and the report/post chain.
type targetRefs struct {
	authorID  uint
	reportID  uint
	postID    *uint
	commentID *uint
}

func loadTargetRefs(tx *gorm.DB, target models.Target) (*targetRefs, error) {
	switch target.Type {
	case models.TargetReport:
		var report models.Report
		if err := tx.Select("id", "author_id").First(&report, target.ID).Error; err != nil {
			return nil, notFound(err)
		}
		return &targetRefs{authorID: report.AuthorID, reportID: report.ID}, nil
	case models.TargetPost:
		var post models.Post
		if err := tx.Select("id", "author_id", "report_id").First(&post, target.ID).Error; err != nil {
			return nil, notFound(err)
		}
		return &targetRefs{authorID: post.AuthorID, reportID: post.ReportID, postID: &post.ID}, nil
	case models.TargetComment:
		var comment models.Comment
		if err := tx.Select("id", "author_id", "post_id").First(&comment, target.ID).Error; err != nil {
			return nil, notFound(err)
		}
		var post models.Post
		if err := tx.Select("id", "report_id").First(&post, comment.PostID).Error; err != nil {
			return nil, notFound(err)
		}
		return &targetRefs{authorID: comment.AuthorID, reportID: post.ReportID, postID: &post.ID, commentID: &comment.ID}, nil
	}
	return nil, invalidf("unknown like target %q", target.Type)
}

// Toggle likes the target, or removes the like when it already exists. A concurrent
// duplicate insert is reported as liked rather than failing.
func (s *LikeService) Toggle(ctx context.Context, userID uint, target models.Target) (*LikeResult, error) {
	if !target.Valid() {
		return nil, invalidf("invalid like target")
	}

	var refs *targetRefs
	liked := false
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		refs, err = loadTargetRefs(tx, target)
		if err != nil {
			return err
		}

		var existing models.Like
		err = tx.Where("user_id = ? AND "+target.Column()+" = ?", userID, target.ID).First(&existing).Error
		if err == nil {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			// Withdraw the notification unless the recipient has already seen it.
			return tx.Where("actor_id = ? AND type = ? AND "+target.Column()+" = ? AND is_read = ?",
				userID, models.LikeNotificationType(target.Type), target.ID, false).
				Delete(&models.Notification{}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		like := models.Like{UserID: userID}
		switch target.Type {
		case models.TargetReport:
			like.ReportID = &target.ID
		case models.TargetPost:
			like.PostID = &target.ID
		case models.TargetComment:
			like.CommentID = &target.ID
		}
		if err := tx.Create(&like).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyLiked
			}
			return err
		}
		liked = true

		reportID := refs.reportID
		return createNotification(tx, &models.Notification{
			RecipientID: refs.authorID,
			ActorID:     userID,
			Type:        models.LikeNotificationType(target.Type),
			ReportID:    &reportID,
			PostID:      refs.postID,
			CommentID:   refs.commentID,
		})
	})
	if errors.Is(err, errAlreadyLiked) {
		liked, err = true, nil
	}
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.DB.WithContext(ctx).Model(&models.Like{}).
		Where(target.Column()+" = ?", target.ID).Count(&count).Error; err != nil {
		return nil, err
	}

	InvalidateReport(refs.reportID)
	if target.Type == models.TargetReport {
		s.stats.ScheduleUpdate(refs.reportID)
	}
	log.WithFields(log.Fields{"user_id": userID, "target": target.Type, "target_id": target.ID, "liked": liked}).Debug("like toggled")

	return &LikeResult{Liked: liked, Count: count}, nil
}

// LikedIDs returns which of ids the user has liked, for one target type.
func (s *LikeService) LikedIDs(ctx context.Context, userID uint, targetType models.TargetType, ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}
	col := models.Target{Type: targetType}.Column()

	var likes []models.Like
	if err := db.DB.WithContext(ctx).
		Where("user_id = ? AND "+col+" IN ?", userID, ids).
		Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		switch targetType {
		case models.TargetReport:
			out[*l.ReportID] = true
		case models.TargetPost:
			out[*l.PostID] = true
		case models.TargetComment:
			out[*l.CommentID] = true
		}
	}
	return out, nil
}

// CountLikes groups like counts by target id.
func CountLikes(tx *gorm.DB, targetType models.TargetType, ids []uint) (map[uint]int, error) {
	out := make(map[uint]int)
	if len(ids) == 0 {
		return out, nil
	}
	col := models.Target{Type: targetType}.Column()

	type countResult struct {
		TargetID uint
		Count    int
	}
	var results []countResult
	if err := tx.Model(&models.Like{}).
		Select(col+" AS target_id, COUNT(*) AS count").
		Where(col+" IN ?", ids).
		Group(col).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	for _, r := range results {
		out[r.TargetID] = r.Count
	}
	return out, nil
}
