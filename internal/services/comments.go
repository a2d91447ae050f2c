package services

import (
	"context"
	"fmt"
	"strings"

	"growjournal/internal/db"
	"growjournal/internal/models"
	"growjournal/internal/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxCommentLen = 5000

type CommentInput struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

type CommentService struct {
	stats   Scheduler
	mailer  Mailer
	siteURL string
}

func NewCommentService(stats Scheduler) *CommentService {
	if stats == nil {
		stats = noopScheduler{}
	}
	return &CommentService{stats: stats}
}

// WithMailer enables reply emails linking back to siteURL.
func (s *CommentService) WithMailer(m Mailer, siteURL string) *CommentService {
	s.mailer = m
	s.siteURL = strings.TrimRight(siteURL, "/")
	return s
}

// ListByPost returns the top-level comments of a post, oldest first, each with its replies.
func (s *CommentService) ListByPost(ctx context.Context, postID, viewerID uint) ([]models.Comment, error) {
	conn := db.DB.WithContext(ctx)

	var count int64
	if err := conn.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var all []models.Comment
	if err := conn.Preload("Author").Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	likes, err := CountLikes(conn, models.TargetComment, ids)
	if err != nil {
		return nil, err
	}
	liked, err := NewLikeService(nil).LikedIDs(ctx, viewerID, models.TargetComment, ids)
	if err != nil {
		return nil, err
	}

	replies := make(map[uint][]models.Comment)
	var roots []models.Comment
	for _, c := range all {
		c.LikeCount = likes[c.ID]
		c.Liked = liked[c.ID]
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			replies[*c.ParentID] = append(replies[*c.ParentID], c)
		}
	}
	for i := range roots {
		roots[i].Replies = replies[roots[i].ID]
	}
	if roots == nil {
		roots = []models.Comment{}
	}
	return roots, nil
}

type replyMail struct {
	recipient   models.User
	reportTitle string
	original    string
	reportID    uint
	postID      uint
}

// Create adds a comment. Replies to replies attach to the top-level comment so threads
// stay one level deep.
func (s *CommentService) Create(ctx context.Context, user *models.User, postID uint, in CommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalidf("comment cannot be empty")
	}
	if len([]rune(content)) > maxCommentLen {
		return nil, invalidf("comment must be at most %d characters", maxCommentLen)
	}

	var comment models.Comment
	var post models.Post
	var mail *replyMail
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "report_id", "author_id").First(&post, postID).Error; err != nil {
			return notFound(err)
		}

		comment = models.Comment{PostID: postID, AuthorID: user.ID, Content: content}
		notification := models.Notification{
			RecipientID: post.AuthorID,
			ActorID:     user.ID,
			Type:        models.NotificationCommentPost,
			ReportID:    &post.ReportID,
			PostID:      &post.ID,
		}

		if in.ParentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *in.ParentID).Error; err != nil {
				return invalidf("parent comment not found")
			}
			if parent.PostID != postID {
				return invalidf("parent comment belongs to another post")
			}
			rootID := parent.ID
			if parent.ParentID != nil {
				rootID = *parent.ParentID
			}
			comment.ParentID = &rootID

			repliedTo := parent.ID
			notification.RecipientID = parent.AuthorID
			notification.Type = models.NotificationReplyComment
			notification.CommentID = &repliedTo

			if parent.AuthorID != user.ID && !parent.Deleted {
				mail = &replyMail{original: parent.Content, reportID: post.ReportID, postID: post.ID}
				if err := tx.First(&mail.recipient, parent.AuthorID).Error; err != nil {
					return err
				}
				var report models.Report
				if err := tx.Select("id", "title").First(&report, post.ReportID).Error; err != nil {
					return err
				}
				mail.reportTitle = report.Title
			}
		}

		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if notification.CommentID == nil {
			notification.CommentID = &comment.ID
		}
		return createNotification(tx, &notification)
	})
	if err != nil {
		return nil, err
	}

	comment.Author = *user
	InvalidateReport(post.ReportID)
	s.stats.ScheduleUpdate(post.ReportID)

	if mail != nil && s.mailer != nil {
		link := fmt.Sprintf("%s/reports/%d#post-%d", s.siteURL, mail.reportID, mail.postID)
		s.mailer.SendReplyNotification(mail.recipient.Email, user.Name, mail.reportTitle,
			utils.PlainText(content, 300), utils.PlainText(mail.original, 300), link)
	}
	log.WithFields(log.Fields{"comment_id": comment.ID, "post_id": postID, "user_id": user.ID}).Debug("comment created")
	return &comment, nil
}

// Delete replaces the content with a tombstone. The row stays so replies keep their thread.
func (s *CommentService) Delete(ctx context.Context, user *models.User, id uint) error {
	var comment models.Comment
	if err := db.DB.WithContext(ctx).First(&comment, id).Error; err != nil {
		return notFound(err)
	}
	if comment.AuthorID != user.ID && !user.IsAdmin() {
		return ErrForbidden
	}
	if comment.Deleted {
		return nil
	}

	err := db.DB.WithContext(ctx).Model(&comment).Updates(map[string]interface{}{
		"content": models.DeletedCommentContent,
		"deleted": true,
	}).Error
	if err != nil {
		return err
	}

	var post models.Post
	if err := db.DB.WithContext(ctx).Select("id", "report_id").First(&post, comment.PostID).Error; err == nil {
		InvalidateReport(post.ReportID)
	}
	return nil
}
