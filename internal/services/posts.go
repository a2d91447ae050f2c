package services

import (
	"context"
	"strings"
	"time"

	"growjournal/internal/db"
	"growjournal/internal/models"
	"growjournal/internal/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxPostImages    = 20
	maxFutureSkew    = 24 * time.Hour
	maxPostTitleLen  = 120
	maxPostContentLn = 20000
)

type PostInput struct {
	Date             *time.Time       `json:"date"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	GrowStage        models.GrowStage `json:"grow_stage"`
	LightHoursPerDay *int             `json:"light_hours_per_day"`
	ImageIDs         []uint           `json:"image_ids"`
}

func (in *PostInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if len([]rune(in.Title)) > maxPostTitleLen {
		return invalidf("title must be at most %d characters", maxPostTitleLen)
	}
	if len([]rune(in.Content)) > maxPostContentLn {
		return invalidf("content is too long")
	}
	if in.GrowStage != "" && !in.GrowStage.Valid() {
		return invalidf("unknown grow stage %q", in.GrowStage)
	}
	if in.LightHoursPerDay != nil && (*in.LightHoursPerDay < 0 || *in.LightHoursPerDay > 24) {
		return invalidf("light hours must be between 0 and 24")
	}
	in.ImageIDs = uniqueIDs(in.ImageIDs)
	if len(in.ImageIDs) > maxPostImages {
		return invalidf("a post can carry at most %d images", maxPostImages)
	}
	return nil
}

// checkPostDate rejects dates before grow day 1 or too far ahead.
func checkPostDate(report *models.Report, date time.Time) error {
	if utils.GrowDay(report.StartDate, date) < 1 {
		return invalidf("date is before the start of the grow")
	}
	if date.After(time.Now().Add(maxFutureSkew)) {
		return invalidf("date cannot be more than a day in the future")
	}
	return nil
}

type PostService struct {
	stats Scheduler
}

func NewPostService(stats Scheduler) *PostService {
	if stats == nil {
		stats = noopScheduler{}
	}
	return &PostService{stats: stats}
}

func (s *PostService) Get(ctx context.Context, id, viewerID uint) (*PostView, error) {
	conn := db.DB.WithContext(ctx)

	var post models.Post
	if err := conn.Preload("Author").
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("post_order ASC") }).
		First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	var report models.Report
	if err := conn.Select("id", "start_date").First(&report, post.ReportID).Error; err != nil {
		return nil, notFound(err)
	}

	posts := []models.Post{post}
	if err := fillPostCounts(conn, posts); err != nil {
		return nil, err
	}
	view := newPostView(posts[0], report.StartDate)

	liked, err := NewLikeService(nil).LikedIDs(ctx, viewerID, models.TargetPost, []uint{id})
	if err != nil {
		return nil, err
	}
	view.Liked = liked[id]
	return &view, nil
}

func (s *PostService) Create(ctx context.Context, user *models.User, reportID uint, in PostInput) (*models.Post, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	date := time.Now().UTC()
	if in.Date != nil {
		date = in.Date.UTC()
	}

	var post models.Post
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if err := tx.First(&report, reportID).Error; err != nil {
			return notFound(err)
		}
		if report.AuthorID != user.ID {
			return ErrForbidden
		}
		if err := checkPostDate(&report, date); err != nil {
			return err
		}

		stage := in.GrowStage
		if stage == "" {
			stage = latestStage(tx, reportID)
		}
		post = models.Post{
			ReportID:         reportID,
			AuthorID:         user.ID,
			Date:             date,
			Title:            in.Title,
			Content:          in.Content,
			GrowStage:        stage,
			LightHoursPerDay: in.LightHoursPerDay,
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if err := attachImages(tx, user.ID, post.ID, in.ImageIDs); err != nil {
			return err
		}

		touched := report.UpdatedAt
		if date.After(touched) {
			touched = date
		}
		return syncReportActivity(tx, reportID, &touched)
	})
	if err != nil {
		return nil, err
	}

	InvalidateReport(reportID)
	s.stats.ScheduleUpdate(reportID)
	log.WithFields(log.Fields{"post_id": post.ID, "report_id": reportID}).Info("post created")
	return &post, nil
}

func (s *PostService) Update(ctx context.Context, user *models.User, id uint, in PostInput) (*models.Post, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var post models.Post
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, id).Error; err != nil {
			return notFound(err)
		}
		if post.AuthorID != user.ID {
			return ErrForbidden
		}
		var report models.Report
		if err := tx.First(&report, post.ReportID).Error; err != nil {
			return notFound(err)
		}
		if in.Date != nil {
			if err := checkPostDate(&report, in.Date.UTC()); err != nil {
				return err
			}
			post.Date = in.Date.UTC()
		}

		post.Title = in.Title
		post.Content = in.Content
		if in.GrowStage != "" {
			post.GrowStage = in.GrowStage
		}
		post.LightHoursPerDay = in.LightHoursPerDay
		if err := tx.Omit(clause.Associations).Save(&post).Error; err != nil {
			return err
		}

		detach := tx.Model(&models.Image{}).Where("post_id = ?", post.ID)
		if len(in.ImageIDs) > 0 {
			detach = detach.Where("id NOT IN ?", in.ImageIDs)
		}
		if err := detach.Update("post_id", nil).Error; err != nil {
			return err
		}
		if err := attachImages(tx, user.ID, post.ID, in.ImageIDs); err != nil {
			return err
		}
		return syncReportActivity(tx, post.ReportID, nil)
	})
	if err != nil {
		return nil, err
	}

	InvalidateReport(post.ReportID)
	s.stats.ScheduleUpdate(post.ReportID)
	return &post, nil
}

// Delete removes a post with its comments, likes and image rows, returning the host ids
// of the removed images.
func (s *PostService) Delete(ctx context.Context, user *models.User, id uint) ([]string, error) {
	var post models.Post
	var publicIDs []string
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, id).Error; err != nil {
			return notFound(err)
		}
		if post.AuthorID != user.ID && !user.IsAdmin() {
			return ErrForbidden
		}
		ids, err := deletePostsTx(tx, []uint{post.ID})
		if err != nil {
			return err
		}
		publicIDs = ids
		return syncReportActivity(tx, post.ReportID, nil)
	})
	if err != nil {
		return nil, err
	}

	InvalidateReport(post.ReportID)
	s.stats.ScheduleUpdate(post.ReportID)
	log.WithFields(log.Fields{"post_id": id, "report_id": post.ReportID}).Info("post deleted")
	return publicIDs, nil
}

// latestStage carries the stage of the newest post forward.
func latestStage(tx *gorm.DB, reportID uint) models.GrowStage {
	var last models.Post
	if err := tx.Select("grow_stage").Where("report_id = ?", reportID).
		Order("date DESC").Order("id DESC").First(&last).Error; err != nil {
		return models.StagePreparation
	}
	return last.GrowStage
}

// attachImages binds images to a post in the given order. Every image must be owned by
// the user and either unattached or already on this post.
func attachImages(tx *gorm.DB, userID, postID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var images []models.Image
	if err := tx.Where("id IN ?", ids).Find(&images).Error; err != nil {
		return err
	}
	if len(images) != len(ids) {
		return invalidf("unknown image id")
	}
	for _, img := range images {
		if img.OwnerID != userID {
			return invalidf("image %d belongs to another user", img.ID)
		}
		if img.PostID != nil && *img.PostID != postID {
			return invalidf("image %d is already attached to another post", img.ID)
		}
	}
	for i, id := range ids {
		if err := tx.Model(&models.Image{}).Where("id = ?", id).
			UpdateColumns(map[string]interface{}{"post_id": postID, "post_order": i}).Error; err != nil {
			return err
		}
	}
	return nil
}

// syncReportActivity recomputes post_count and updated_at. With touched nil, updated_at
// becomes the newest post date, never earlier than the report's creation time.
func syncReportActivity(tx *gorm.DB, reportID uint, touched *time.Time) error {
	var report models.Report
	if err := tx.Select("id", "created_at").First(&report, reportID).Error; err != nil {
		return notFound(err)
	}
	var count int64
	if err := tx.Model(&models.Post{}).Where("report_id = ?", reportID).Count(&count).Error; err != nil {
		return err
	}

	updated := report.CreatedAt
	if touched != nil {
		updated = *touched
	} else {
		var newest models.Post
		err := tx.Select("date").Where("report_id = ?", reportID).Order("date DESC").First(&newest).Error
		if err == nil && newest.Date.After(updated) {
			updated = newest.Date
		}
	}

	return tx.Model(&models.Report{}).Where("id = ?", reportID).UpdateColumns(map[string]interface{}{
		"post_count": count,
		"updated_at": updated,
	}).Error
}

// deletePostsTx removes posts and everything hanging off them.
func deletePostsTx(tx *gorm.DB, postIDs []uint) ([]string, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	var commentIDs []uint
	if err := tx.Model(&models.Comment{}).Where("post_id IN ?", postIDs).Pluck("id", &commentIDs).Error; err != nil {
		return nil, err
	}
	if len(commentIDs) > 0 {
		if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Like{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Notification{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Like{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Notification{}).Error; err != nil {
		return nil, err
	}

	var publicIDs []string
	if err := tx.Model(&models.Image{}).Where("post_id IN ?", postIDs).Pluck("public_id", &publicIDs).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Image{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
		return nil, err
	}
	return publicIDs, nil
}
