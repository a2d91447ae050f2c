package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"growjournal/internal/config"
	"growjournal/internal/db"
	"growjournal/internal/models"
	"growjournal/internal/utils"

	"github.com/stretchr/testify/require"
)

// setupTestDB points db.DB at a fresh in-memory SQLite database.
func setupTestDB(t *testing.T) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + name + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	// One connection serialises the background workers with the test's own queries.
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	prev := db.DB
	db.DB = conn
	utils.GetCache().DeletePrefix("")
	t.Cleanup(func() {
		utils.GetCache().DeletePrefix("")
		db.DB = prev
		sqlDB.Close()
	})
}

func createUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, db.DB.Create(u).Error)
	return u
}

func createReport(t *testing.T, author *models.User, start time.Time) *models.Report {
	t.Helper()
	r := &models.Report{AuthorID: author.ID, Title: author.Name + "'s grow", StartDate: start}
	require.NoError(t, db.DB.Create(r).Error)
	return r
}

func createPost(t *testing.T, report *models.Report, date time.Time) *models.Post {
	t.Helper()
	p := &models.Post{ReportID: report.ID, AuthorID: report.AuthorID, Date: date, GrowStage: models.StageVegetative}
	require.NoError(t, db.DB.Create(p).Error)
	return p
}

// recordingScheduler captures scheduled report ids.
type recordingScheduler struct {
	mu  sync.Mutex
	ids []uint
}

func (r *recordingScheduler) ScheduleUpdate(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingScheduler) scheduled() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.ids...)
}
