package db

import (
	"errors"
	"testing"
	"time"

	"growjournal/internal/config"
	"growjournal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestSeedStrainsIsIdempotent(t *testing.T) {
	conn := openTestDB(t)

	require.NoError(t, SeedStrains(conn))
	var first int64
	conn.Model(&models.Strain{}).Count(&first)
	assert.Greater(t, first, int64(0))

	require.NoError(t, SeedStrains(conn))
	var second int64
	conn.Model(&models.Strain{}).Count(&second)
	assert.Equal(t, first, second)
}

func TestLikeUniquePerTarget(t *testing.T) {
	conn := openTestDB(t)

	user := models.User{Name: "a", Email: "a@example.com"}
	require.NoError(t, conn.Create(&user).Error)
	report := models.Report{AuthorID: user.ID, Title: "First grow", StartDate: time.Now()}
	require.NoError(t, conn.Create(&report).Error)

	require.NoError(t, conn.Create(&models.Like{UserID: user.ID, ReportID: &report.ID}).Error)

	err := conn.Create(&models.Like{UserID: user.ID, ReportID: &report.ID}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	// A post like with the same id is a different target.
	postID := report.ID
	assert.NoError(t, conn.Create(&models.Like{UserID: user.ID, PostID: &postID}).Error)
}

func TestUserEmailUnique(t *testing.T) {
	conn := openTestDB(t)

	require.NoError(t, conn.Create(&models.User{Name: "a", Email: "dup@example.com"}).Error)
	err := conn.Create(&models.User{Name: "b", Email: "dup@example.com"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
