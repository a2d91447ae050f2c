package services

import (
	"context"
	"errors"
	"fmt"
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
	reportDetailTTL = 5 * time.Minute
	reportListTTL   = time.Minute
)

func reportDetailKey(id uint) string {
	return fmt.Sprintf("report:detail:%d", id)
}

// InvalidateReport drops cached views of a report and every cached list page.
func InvalidateReport(id uint) {
	utils.GetCache().Delete(reportDetailKey(id))
	utils.GetCache().DeletePrefix("report:list:")
}

type ReportInput struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Environment  models.Environment `json:"environment"`
	StartDate    *time.Time         `json:"start_date"`
	StrainIDs    []uint             `json:"strain_ids"`
	CoverImageID *uint              `json:"cover_image_id"`
}

func (in *ReportInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return invalidf("title is required")
	}
	if len([]rune(in.Title)) > 120 {
		return invalidf("title must be at most 120 characters")
	}
	if in.Environment == "" {
		in.Environment = models.EnvironmentIndoor
	}
	if !in.Environment.Valid() {
		return invalidf("unknown environment %q", in.Environment)
	}
	if in.StartDate != nil && in.StartDate.After(time.Now().Add(24*time.Hour)) {
		return invalidf("start date cannot be in the future")
	}
	return nil
}

type ReportQuery struct {
	Page     int
	PerPage  int
	Sort     string // new, updated, hot, likes
	Search   string
	StrainID uint
	AuthorID uint
	Stage    models.GrowStage
}

type ReportPage struct {
	Reports    []models.Report `json:"reports"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

type ReportService struct {
	stats Scheduler
}

func NewReportService(stats Scheduler) *ReportService {
	if stats == nil {
		stats = noopScheduler{}
	}
	return &ReportService{stats: stats}
}

func (s *ReportService) List(ctx context.Context, q ReportQuery) (*ReportPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.PerPage > 50 {
		q.PerPage = 50
	}
	cacheKey := fmt.Sprintf("report:list:%+v", q)
	if cached, ok := utils.GetCache().Get(cacheKey).(*ReportPage); ok {
		return cached, nil
	}

	tx := db.DB.WithContext(ctx).Model(&models.Report{})
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		tx = tx.Where("LOWER(reports.title) LIKE ? OR LOWER(reports.description) LIKE ?", pattern, pattern)
	}
	if q.StrainID != 0 {
		tx = tx.Where("EXISTS (SELECT 1 FROM report_strains rs WHERE rs.report_id = reports.id AND rs.strain_id = ?)", q.StrainID)
	}
	if q.AuthorID != 0 {
		tx = tx.Where("reports.author_id = ?", q.AuthorID)
	}
	if q.Stage != "" {
		// Stage of the newest post.
		tx = tx.Where(`EXISTS (SELECT 1 FROM posts p WHERE p.report_id = reports.id AND p.grow_stage = ?
			AND p.date = (SELECT MAX(p2.date) FROM posts p2 WHERE p2.report_id = reports.id))`, q.Stage)
	}

	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	switch q.Sort {
	case "hot":
		tx = tx.Order("reports.score DESC").Order("reports.updated_at DESC")
	case "likes":
		tx = tx.Order("reports.like_count DESC").Order("reports.created_at DESC")
	case "new":
		tx = tx.Order("reports.created_at DESC")
	default:
		tx = tx.Order("reports.updated_at DESC")
	}

	var reports []models.Report
	if err := tx.Preload("Author").Preload("Strains").
		Limit(q.PerPage).Offset((q.Page - 1) * q.PerPage).
		Find(&reports).Error; err != nil {
		return nil, err
	}
	if err := fillCoverURLs(db.DB.WithContext(ctx), reports); err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	if totalPages == 0 {
		totalPages = 1
	}
	page := &ReportPage{Reports: reports, Total: total, Page: q.Page, TotalPages: totalPages}
	utils.GetCache().Set(cacheKey, page, reportListTTL)
	return page, nil
}

// fillCoverURLs uses the chosen cover image, falling back to the first image of the
// earliest post that has one, then to an image embedded in the description.
func fillCoverURLs(tx *gorm.DB, reports []models.Report) error {
	if len(reports) == 0 {
		return nil
	}
	var coverIDs, reportIDs []uint
	for _, r := range reports {
		reportIDs = append(reportIDs, r.ID)
		if r.CoverImageID != nil {
			coverIDs = append(coverIDs, *r.CoverImageID)
		}
	}

	covers := make(map[uint]string)
	if len(coverIDs) > 0 {
		var images []models.Image
		if err := tx.Where("id IN ?", coverIDs).Find(&images).Error; err != nil {
			return err
		}
		for _, img := range images {
			covers[img.ID] = img.URL
		}
	}

	type firstImage struct {
		ReportID uint
		URL      string
	}
	var firsts []firstImage
	if err := tx.Model(&models.Image{}).
		Select("posts.report_id AS report_id, images.url AS url").
		Joins("JOIN posts ON posts.id = images.post_id").
		Where("posts.report_id IN ?", reportIDs).
		Order("posts.date ASC").Order("images.post_order ASC").
		Scan(&firsts).Error; err != nil {
		return err
	}
	fallback := make(map[uint]string)
	for _, f := range firsts {
		if _, ok := fallback[f.ReportID]; !ok {
			fallback[f.ReportID] = f.URL
		}
	}

	for i := range reports {
		r := &reports[i]
		if r.CoverImageID != nil && covers[*r.CoverImageID] != "" {
			r.CoverURL = covers[*r.CoverImageID]
		} else if first := fallback[r.ID]; first != "" {
			r.CoverURL = first
		} else {
			r.CoverURL = utils.FirstImageURL(utils.RenderMarkdown(r.Description))
		}
	}
	return nil
}

// PostView is a post as shown in a report timeline.
type PostView struct {
	models.Post
	GrowDay     int    `json:"grow_day"`
	GrowWeek    int    `json:"grow_week"`
	ContentHTML string `json:"content_html"`
	Liked       bool   `json:"liked"`
}

type ReportDetail struct {
	models.Report
	DescriptionHTML string     `json:"description_html"`
	Timeline        []PostView `json:"timeline"`
	CurrentDay      int        `json:"current_day"`
	Liked           bool       `json:"liked"`
}

func newPostView(p models.Post, start time.Time) PostView {
	day := utils.GrowDay(start, p.Date)
	return PostView{
		Post:        p,
		GrowDay:     day,
		GrowWeek:    utils.GrowWeek(day),
		ContentHTML: utils.RenderMarkdown(p.Content),
	}
}

// Get loads a report with its timeline. The shared part is cached; the viewer's liked
// flags are filled per request.
func (s *ReportService) Get(ctx context.Context, id, viewerID uint) (*ReportDetail, error) {
	var detail ReportDetail
	if cached, ok := utils.GetCache().Get(reportDetailKey(id)).(*ReportDetail); ok {
		detail = *cached
		detail.Timeline = append([]PostView(nil), cached.Timeline...)
	} else {
		loaded, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		utils.GetCache().Set(reportDetailKey(id), loaded, reportDetailTTL)
		detail = *loaded
		detail.Timeline = append([]PostView(nil), loaded.Timeline...)
	}

	detail.CurrentDay = utils.GrowDay(detail.StartDate, time.Now())
	if viewerID == 0 {
		return &detail, nil
	}

	likes := NewLikeService(nil)
	liked, err := likes.LikedIDs(ctx, viewerID, models.TargetReport, []uint{detail.ID})
	if err != nil {
		return nil, err
	}
	detail.Liked = liked[detail.ID]

	postIDs := make([]uint, len(detail.Timeline))
	for i, p := range detail.Timeline {
		postIDs[i] = p.ID
	}
	likedPosts, err := likes.LikedIDs(ctx, viewerID, models.TargetPost, postIDs)
	if err != nil {
		return nil, err
	}
	for i := range detail.Timeline {
		detail.Timeline[i].Liked = likedPosts[detail.Timeline[i].ID]
	}
	return &detail, nil
}

func (s *ReportService) load(ctx context.Context, id uint) (*ReportDetail, error) {
	conn := db.DB.WithContext(ctx)

	var report models.Report
	if err := conn.Preload("Author").Preload("Strains").First(&report, id).Error; err != nil {
		return nil, notFound(err)
	}

	var posts []models.Post
	if err := conn.Preload("Author").
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("post_order ASC") }).
		Where("report_id = ?", id).
		Order("date ASC").Order("id ASC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := fillPostCounts(conn, posts); err != nil {
		return nil, err
	}

	reports := []models.Report{report}
	if err := fillCoverURLs(conn, reports); err != nil {
		return nil, err
	}

	detail := &ReportDetail{
		Report:          reports[0],
		DescriptionHTML: utils.RenderMarkdown(report.Description),
		Timeline:        make([]PostView, len(posts)),
	}
	for i, p := range posts {
		detail.Timeline[i] = newPostView(p, report.StartDate)
	}
	return detail, nil
}

// fillPostCounts batch-fills comment and like counts.
func fillPostCounts(tx *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int
	}
	var results []countResult
	if err := tx.Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&results).Error; err != nil {
		return err
	}
	comments := make(map[uint]int)
	for _, r := range results {
		comments[r.PostID] = r.Count
	}

	likes, err := CountLikes(tx, models.TargetPost, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].CommentCount = comments[posts[i].ID]
		posts[i].LikeCount = likes[posts[i].ID]
	}
	return nil
}

func loadStrains(tx *gorm.DB, ids []uint) ([]models.Strain, error) {
	if len(ids) == 0 {
		return []models.Strain{}, nil
	}
	var strains []models.Strain
	if err := tx.Where("id IN ?", ids).Find(&strains).Error; err != nil {
		return nil, err
	}
	if len(strains) != len(uniqueIDs(ids)) {
		return nil, invalidf("unknown strain id")
	}
	return strains, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func checkCoverImage(tx *gorm.DB, userID uint, id *uint) error {
	if id == nil {
		return nil
	}
	var img models.Image
	if err := tx.First(&img, *id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidf("unknown cover image")
		}
		return err
	}
	if img.OwnerID != userID {
		return invalidf("cover image belongs to another user")
	}
	return nil
}

func (s *ReportService) Create(ctx context.Context, user *models.User, in ReportInput) (*models.Report, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	start := time.Now().UTC()
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}

	report := models.Report{
		AuthorID:     user.ID,
		Title:        in.Title,
		Description:  in.Description,
		Environment:  in.Environment,
		StartDate:    start,
		CoverImageID: in.CoverImageID,
	}
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		strains, err := loadStrains(tx, in.StrainIDs)
		if err != nil {
			return err
		}
		if err := checkCoverImage(tx, user.ID, in.CoverImageID); err != nil {
			return err
		}
		report.Strains = strains
		return tx.Create(&report).Error
	})
	if err != nil {
		return nil, err
	}

	utils.GetCache().DeletePrefix("report:list:")
	log.WithFields(log.Fields{"report_id": report.ID, "author_id": user.ID}).Info("report created")
	return &report, nil
}

func (s *ReportService) Update(ctx context.Context, user *models.User, id uint, in ReportInput) (*models.Report, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var report models.Report
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&report, id).Error; err != nil {
			return notFound(err)
		}
		if report.AuthorID != user.ID {
			return ErrForbidden
		}
		if in.StartDate != nil && !in.StartDate.Equal(report.StartDate) {
			// Existing posts must not fall before the new start.
			var earliest models.Post
			err := tx.Select("date").Where("report_id = ?", id).Order("date ASC").First(&earliest).Error
			if err == nil && utils.GrowDay(*in.StartDate, earliest.Date) < 1 {
				return invalidf("start date is after the first update")
			}
			report.StartDate = in.StartDate.UTC()
		}
		strains, err := loadStrains(tx, in.StrainIDs)
		if err != nil {
			return err
		}
		if err := checkCoverImage(tx, user.ID, in.CoverImageID); err != nil {
			return err
		}

		report.Title = in.Title
		report.Description = in.Description
		report.Environment = in.Environment
		report.CoverImageID = in.CoverImageID
		if err := tx.Omit(clause.Associations).Save(&report).Error; err != nil {
			return err
		}
		if err := tx.Model(&report).Association("Strains").Replace(strains); err != nil {
			return err
		}
		report.Strains = strains
		return nil
	})
	if err != nil {
		return nil, err
	}

	InvalidateReport(id)
	return &report, nil
}

// Delete removes a report with all posts, comments, likes, notifications and image rows.
// It returns the host ids of the removed images so the caller can destroy the assets.
func (s *ReportService) Delete(ctx context.Context, user *models.User, id uint) ([]string, error) {
	var publicIDs []string
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if err := tx.First(&report, id).Error; err != nil {
			return notFound(err)
		}
		if report.AuthorID != user.ID && !user.IsAdmin() {
			return ErrForbidden
		}

		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("report_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		ids, err := deletePostsTx(tx, postIDs)
		if err != nil {
			return err
		}
		publicIDs = ids

		if err := tx.Where("report_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&report).Association("Strains").Clear(); err != nil {
			return err
		}
		return tx.Delete(&report).Error
	})
	if err != nil {
		return nil, err
	}

	InvalidateReport(id)
	log.WithFields(log.Fields{"report_id": id, "user_id": user.ID}).Info("report deleted")
	return publicIDs, nil
}
