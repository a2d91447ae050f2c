package services

import (
	"context"
	"testing"
	"time"

	"growjournal/internal/db"
	"growjournal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createStrain(t *testing.T, name string) *models.Strain {
	t.Helper()
	s := &models.Strain{Name: name, Type: models.StrainHybrid}
	require.NoError(t, db.DB.Create(s).Error)
	return s
}

func TestCreateReport(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	strain := createStrain(t, "Northern Lights")
	svc := NewReportService(nil)

	_, err := svc.Create(ctx, author, ReportInput{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, author, ReportInput{Title: "Grow", Environment: "basement"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, author, ReportInput{Title: "Grow", StrainIDs: []uint{strain.ID, 999}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	report, err := svc.Create(ctx, author, ReportInput{Title: " Tent #1 ", StrainIDs: []uint{strain.ID, strain.ID}})
	require.NoError(t, err)
	assert.Equal(t, "Tent #1", report.Title)
	assert.Equal(t, models.EnvironmentIndoor, report.Environment)
	require.Len(t, report.Strains, 1)
	assert.WithinDuration(t, time.Now(), report.StartDate, time.Minute)
}

func TestUpdateReport(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	stranger := createUser(t, "stranger")
	s1 := createStrain(t, "A")
	s2 := createStrain(t, "B")
	svc := NewReportService(nil)

	start := time.Now().UTC().AddDate(0, 0, -10)
	report, err := svc.Create(ctx, author, ReportInput{Title: "Grow", StartDate: &start, StrainIDs: []uint{s1.ID}})
	require.NoError(t, err)
	createPost(t, report, start.AddDate(0, 0, 2))

	_, err = svc.Update(ctx, stranger, report.ID, ReportInput{Title: "Mine now"})
	assert.ErrorIs(t, err, ErrForbidden)

	tooLate := start.AddDate(0, 0, 5)
	_, err = svc.Update(ctx, author, report.ID, ReportInput{Title: "Grow", StartDate: &tooLate})
	assert.ErrorIs(t, err, ErrInvalidInput, "start may not move past the first update")

	updated, err := svc.Update(ctx, author, report.ID, ReportInput{Title: "Grow v2", Environment: models.EnvironmentOutdoor, StrainIDs: []uint{s2.ID}})
	require.NoError(t, err)
	assert.Equal(t, "Grow v2", updated.Title)

	var reloaded models.Report
	require.NoError(t, db.DB.Preload("Strains").First(&reloaded, report.ID).Error)
	assert.Equal(t, models.EnvironmentOutdoor, reloaded.Environment)
	require.Len(t, reloaded.Strains, 1)
	assert.Equal(t, "B", reloaded.Strains[0].Name)
}

func TestListReports(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")
	strain := createStrain(t, "Blue Dream")
	reports := NewReportService(nil)
	posts := NewPostService(nil)

	start := time.Now().UTC().AddDate(0, 0, -30)
	first, err := reports.Create(ctx, alice, ReportInput{Title: "Tomato tent", StartDate: &start})
	require.NoError(t, err)
	second, err := reports.Create(ctx, alice, ReportInput{Title: "Blue Dream outdoor", StartDate: &start, StrainIDs: []uint{strain.ID}})
	require.NoError(t, err)
	third, err := reports.Create(ctx, bob, ReportInput{Title: "Autos", StartDate: &start})
	require.NoError(t, err)

	_, err = posts.Create(ctx, alice, first.ID, PostInput{Date: timePtr(start.AddDate(0, 0, 1)), GrowStage: models.StageSeedling})
	require.NoError(t, err)
	_, err = posts.Create(ctx, alice, first.ID, PostInput{Date: timePtr(start.AddDate(0, 0, 20)), GrowStage: models.StageFlowering})
	require.NoError(t, err)
	_, err = posts.Create(ctx, bob, third.ID, PostInput{Date: timePtr(start.AddDate(0, 0, 10)), GrowStage: models.StageSeedling})
	require.NoError(t, err)
	db.DB.Model(&models.Report{}).Where("id = ?", second.ID).UpdateColumn("like_count", 5)
	now := time.Now().UTC()
	db.DB.Model(&models.Report{}).Where("id = ?", first.ID).UpdateColumn("updated_at", now.Add(-time.Hour))
	db.DB.Model(&models.Report{}).Where("id = ?", second.ID).UpdateColumn("updated_at", now.Add(-3*time.Hour))
	db.DB.Model(&models.Report{}).Where("id = ?", third.ID).UpdateColumn("updated_at", now.Add(-2*time.Hour))

	t.Run("updated order", func(t *testing.T) {
		page, err := reports.List(ctx, ReportQuery{Sort: "updated"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		require.Len(t, page.Reports, 3)
		assert.Equal(t, []uint{first.ID, third.ID, second.ID},
			[]uint{page.Reports[0].ID, page.Reports[1].ID, page.Reports[2].ID})
	})

	t.Run("likes order", func(t *testing.T) {
		page, err := reports.List(ctx, ReportQuery{Sort: "likes"})
		require.NoError(t, err)
		assert.Equal(t, second.ID, page.Reports[0].ID)
	})

	t.Run("filters", func(t *testing.T) {
		page, err := reports.List(ctx, ReportQuery{Search: "tomato"})
		require.NoError(t, err)
		require.Len(t, page.Reports, 1)
		assert.Equal(t, first.ID, page.Reports[0].ID)

		page, err = reports.List(ctx, ReportQuery{StrainID: strain.ID})
		require.NoError(t, err)
		require.Len(t, page.Reports, 1)
		assert.Equal(t, second.ID, page.Reports[0].ID)

		page, err = reports.List(ctx, ReportQuery{AuthorID: bob.ID})
		require.NoError(t, err)
		require.Len(t, page.Reports, 1)
		assert.Equal(t, third.ID, page.Reports[0].ID)

		// Stage matches the newest post only.
		page, err = reports.List(ctx, ReportQuery{Stage: models.StageSeedling})
		require.NoError(t, err)
		require.Len(t, page.Reports, 1)
		assert.Equal(t, third.ID, page.Reports[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := reports.List(ctx, ReportQuery{Page: 2, PerPage: 2, Sort: "new"})
		require.NoError(t, err)
		assert.Len(t, page.Reports, 1)
		assert.Equal(t, 2, page.TotalPages)
	})
}

func TestGetReportTimeline(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	fan := createUser(t, "fan")
	reports := NewReportService(nil)
	posts := NewPostService(nil)

	start := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	report, err := reports.Create(ctx, author, ReportInput{Title: "Grow", Description: "**bold**", StartDate: &start})
	require.NoError(t, err)
	cover := createImage(t, author, "cover")
	p2, err := posts.Create(ctx, author, report.ID, PostInput{Date: timePtr(start.AddDate(0, 0, 8)), ImageIDs: []uint{cover.ID}})
	require.NoError(t, err)
	_, err = posts.Create(ctx, author, report.ID, PostInput{Date: timePtr(start.Add(3 * time.Hour)), Content: "sprouted"})
	require.NoError(t, err)

	_, err = reports.Get(ctx, 999, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := reports.Get(ctx, report.ID, 0)
	require.NoError(t, err)
	assert.Contains(t, detail.DescriptionHTML, "<strong>bold</strong>")
	assert.Equal(t, "https://img.example.com/cover", detail.CoverURL)
	require.Len(t, detail.Timeline, 2)
	assert.Equal(t, 2, detail.Timeline[0].GrowDay, "01:00 next UTC day is day 2")
	assert.Equal(t, 1, detail.Timeline[0].GrowWeek)
	assert.Contains(t, detail.Timeline[0].ContentHTML, "sprouted")
	assert.Equal(t, 9, detail.Timeline[1].GrowDay)
	assert.Equal(t, 2, detail.Timeline[1].GrowWeek)
	assert.False(t, detail.Liked)

	_, err = NewLikeService(nil).Toggle(ctx, fan.ID, models.Target{Type: models.TargetPost, ID: p2.ID})
	require.NoError(t, err)

	// The shared part comes from cache; liked flags are per viewer.
	viewed, err := reports.Get(ctx, report.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, viewed.Timeline[0].Liked)
	assert.True(t, viewed.Timeline[1].Liked)

	again, err := reports.Get(ctx, report.ID, 0)
	require.NoError(t, err)
	assert.False(t, again.Timeline[1].Liked, "viewer state must not leak into the cache")
}

func TestDeleteReport(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	admin := createUser(t, "admin")
	db.DB.Model(admin).Update("role", models.RoleAdmin)
	admin.Role = models.RoleAdmin
	stranger := createUser(t, "stranger")
	strain := createStrain(t, "X")
	reports := NewReportService(nil)

	start := time.Now().UTC().AddDate(0, 0, -2)
	report, err := reports.Create(ctx, author, ReportInput{Title: "Grow", StartDate: &start, StrainIDs: []uint{strain.ID}})
	require.NoError(t, err)
	img := createImage(t, author, "bud")
	_, err = NewPostService(nil).Create(ctx, author, report.ID, PostInput{ImageIDs: []uint{img.ID}})
	require.NoError(t, err)
	_, err = NewLikeService(nil).Toggle(ctx, stranger.ID, models.Target{Type: models.TargetReport, ID: report.ID})
	require.NoError(t, err)

	_, err = reports.Delete(ctx, stranger, report.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	publicIDs, err := reports.Delete(ctx, admin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bud"}, publicIDs)

	var count int64
	db.DB.Model(&models.Report{}).Count(&count)
	assert.Zero(t, count)
	db.DB.Model(&models.Like{}).Count(&count)
	assert.Zero(t, count)
	db.DB.Model(&models.Notification{}).Count(&count)
	assert.Zero(t, count)
	db.DB.Table("report_strains").Count(&count)
	assert.Zero(t, count)
	db.DB.Model(&models.Strain{}).Count(&count)
	assert.Equal(t, int64(1), count, "strains outlive reports")

	_, err = reports.Get(ctx, report.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReportsCoverFallsBackToDescription(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	reports := NewReportService(nil)

	_, err := reports.Create(ctx, author, ReportInput{
		Title:       "Outdoor",
		Description: "Setup:\n\n![tent](https://img.example.com/setup.jpg)",
	})
	require.NoError(t, err)

	page, err := reports.List(ctx, ReportQuery{PerPage: 500})
	require.NoError(t, err)
	require.Len(t, page.Reports, 1)
	assert.Equal(t, "https://img.example.com/setup.jpg", page.Reports[0].CoverURL)
	assert.Equal(t, 1, page.TotalPages)
}
