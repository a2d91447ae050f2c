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

func createImage(t *testing.T, owner *models.User, publicID string) *models.Image {
	t.Helper()
	img := &models.Image{PublicID: publicID, URL: "https://img.example.com/" + publicID, OwnerID: owner.ID}
	require.NoError(t, db.DB.Create(img).Error)
	return img
}

func timePtr(t time.Time) *time.Time { return &t }

func TestCreatePostValidatesDate(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	start := time.Now().UTC().AddDate(0, 0, -10)
	report := createReport(t, author, start)
	svc := NewPostService(nil)

	_, err := svc.Create(ctx, author, report.ID, PostInput{Date: timePtr(start.AddDate(0, 0, -1))})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, author, report.ID, PostInput{Date: timePtr(time.Now().Add(48 * time.Hour))})
	assert.ErrorIs(t, err, ErrInvalidInput)

	post, err := svc.Create(ctx, author, report.ID, PostInput{Date: timePtr(start), Title: "Day one"})
	require.NoError(t, err)
	assert.Equal(t, models.StagePreparation, post.GrowStage)

	lights := 25
	_, err = svc.Create(ctx, author, report.ID, PostInput{LightHoursPerDay: &lights})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreatePostRequiresReportOwner(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "author")
	other := createUser(t, "other")
	report := createReport(t, author, time.Now().AddDate(0, 0, -1))
	svc := NewPostService(nil)

	_, err := svc.Create(context.Background(), other, report.ID, PostInput{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(context.Background(), author, 999, PostInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePostTouchesReport(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	report := createReport(t, author, time.Now().AddDate(0, 0, -30))
	stats := &recordingScheduler{}
	svc := NewPostService(stats)

	date := time.Now().UTC().Add(12 * time.Hour).Truncate(time.Second)
	_, err := svc.Create(ctx, author, report.ID, PostInput{Date: &date, GrowStage: models.StageFlowering})
	require.NoError(t, err)

	var reloaded models.Report
	require.NoError(t, db.DB.First(&reloaded, report.ID).Error)
	assert.Equal(t, 1, reloaded.PostCount)
	assert.WithinDuration(t, date, reloaded.UpdatedAt, time.Second)
	assert.Equal(t, []uint{report.ID}, stats.scheduled())

	// Without an explicit stage the newest stage carries forward.
	next, err := svc.Create(ctx, author, report.ID, PostInput{})
	require.NoError(t, err)
	assert.Equal(t, models.StageFlowering, next.GrowStage)
}

func TestPostImagesAttachInOrder(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	other := createUser(t, "other")
	report := createReport(t, author, time.Now().AddDate(0, 0, -3))
	a := createImage(t, author, "a")
	b := createImage(t, author, "b")
	foreign := createImage(t, other, "c")
	svc := NewPostService(nil)

	_, err := svc.Create(ctx, author, report.ID, PostInput{ImageIDs: []uint{foreign.ID}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	post, err := svc.Create(ctx, author, report.ID, PostInput{ImageIDs: []uint{b.ID, a.ID}})
	require.NoError(t, err)

	view, err := svc.Get(ctx, post.ID, 0)
	require.NoError(t, err)
	require.Len(t, view.Images, 2)
	assert.Equal(t, "b", view.Images[0].PublicID)
	assert.Equal(t, "a", view.Images[1].PublicID)
	assert.Equal(t, 4, view.GrowDay)

	// An image already on one post cannot move to another.
	_, err = svc.Create(ctx, author, report.ID, PostInput{ImageIDs: []uint{a.ID}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Updating detaches images that are no longer listed.
	_, err = svc.Update(ctx, author, post.ID, PostInput{Title: "edited", ImageIDs: []uint{a.ID}})
	require.NoError(t, err)
	var reloadedB models.Image
	require.NoError(t, db.DB.First(&reloadedB, b.ID).Error)
	assert.Nil(t, reloadedB.PostID)
}

func TestUpdatePostRecomputesReportActivity(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	stranger := createUser(t, "stranger")
	start := time.Now().UTC().AddDate(0, 0, -20).Truncate(time.Second)
	report := createReport(t, author, start)
	require.NoError(t, db.DB.Model(report).UpdateColumn("created_at", start).Error)
	svc := NewPostService(nil)

	early := start.AddDate(0, 0, 2)
	late := start.AddDate(0, 0, 10)
	_, err := svc.Create(ctx, author, report.ID, PostInput{Date: &early})
	require.NoError(t, err)
	latest, err := svc.Create(ctx, author, report.ID, PostInput{Date: &late})
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, latest.ID, PostInput{})
	assert.ErrorIs(t, err, ErrForbidden)

	moved := start.AddDate(0, 0, 5)
	_, err = svc.Update(ctx, author, latest.ID, PostInput{Date: &moved})
	require.NoError(t, err)

	var reloaded models.Report
	require.NoError(t, db.DB.First(&reloaded, report.ID).Error)
	assert.WithinDuration(t, moved, reloaded.UpdatedAt, time.Second)
}

func TestUpdatePostKeepsActivityAfterCreation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	report := createReport(t, author, time.Now().AddDate(0, 0, -5))
	post := createPost(t, report, time.Now().AddDate(0, 0, -3))

	_, err := NewPostService(nil).Update(ctx, author, post.ID, PostInput{Title: "day two"})
	require.NoError(t, err)

	var reloaded models.Report
	require.NoError(t, db.DB.First(&reloaded, report.ID).Error)
	assert.WithinDuration(t, reloaded.CreatedAt, reloaded.UpdatedAt, time.Second)
}

func TestDeletePostCascades(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, "author")
	fan := createUser(t, "fan")
	report := createReport(t, author, time.Now().AddDate(0, 0, -5))
	img := createImage(t, author, "leaf")
	svc := NewPostService(nil)

	post, err := svc.Create(ctx, author, report.ID, PostInput{ImageIDs: []uint{img.ID}})
	require.NoError(t, err)
	comment, err := NewCommentService(nil).Create(ctx, fan, post.ID, CommentInput{Content: "nice"})
	require.NoError(t, err)
	_, err = NewLikeService(nil).Toggle(ctx, fan.ID, models.Target{Type: models.TargetPost, ID: post.ID})
	require.NoError(t, err)
	_, err = NewLikeService(nil).Toggle(ctx, author.ID, models.Target{Type: models.TargetComment, ID: comment.ID})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, fan, post.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	publicIDs, err := svc.Delete(ctx, author, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"leaf"}, publicIDs)

	for _, model := range []interface{}{&models.Post{}, &models.Comment{}, &models.Like{}, &models.Image{}, &models.Notification{}} {
		var count int64
		db.DB.Model(model).Count(&count)
		assert.Zero(t, count, "%T rows left behind", model)
	}

	var reloaded models.Report
	require.NoError(t, db.DB.First(&reloaded, report.ID).Error)
	assert.Zero(t, reloaded.PostCount)
}
