package services

import (
	"fmt"
	"sync"
	"time"

	"growjournal/internal/db"
	"growjournal/internal/models"
	"growjournal/internal/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	statsBatchSize     = 50
	statsFlushInterval = 500 * time.Millisecond
)

// StatsService recomputes report counters and hot score off the request path.
type StatsService struct {
	queue   chan uint // report ids waiting for recomputation
	pending map[uint]bool
	mu      sync.Mutex

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var (
	statsService *StatsService
	statsOnce    sync.Once
)

// GetStatsService returns the process-wide worker, starting it on first use.
func GetStatsService() *StatsService {
	statsOnce.Do(func() {
		statsService = NewStatsService()
	})
	return statsService
}

func NewStatsService() *StatsService {
	s := &StatsService{
		queue:   make(chan uint, 1000), // buffered so writers never block
		pending: make(map[uint]bool),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.worker()
	return s
}

// ScheduleUpdate queues a report. Ids already waiting are skipped.
func (s *StatsService) ScheduleUpdate(reportID uint) {
	s.mu.Lock()
	if s.pending[reportID] {
		s.mu.Unlock()
		return
	}
	s.pending[reportID] = true
	s.mu.Unlock()

	select {
	case s.queue <- reportID:
	default:
		s.mu.Lock()
		delete(s.pending, reportID)
		s.mu.Unlock()
		log.WithField("report_id", reportID).Warn("stats queue full, skipping report")
	}
}

// Stop flushes queued ids and terminates the worker. Safe to call more than once.
func (s *StatsService) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *StatsService) worker() {
	defer close(s.done)

	batch := make([]uint, 0, statsBatchSize)
	ticker := time.NewTicker(statsFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= statsBatchSize {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-s.stop:
			for {
				select {
				case id := <-s.queue:
					batch = append(batch, id)
				default:
					if len(batch) > 0 {
						s.processBatch(batch)
					}
					return
				}
			}
		}
	}
}

func (s *StatsService) processBatch(reportIDs []uint) {
	for _, id := range reportIDs {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()

		if err := RefreshReportStats(db.DB, id); err != nil {
			log.WithError(err).WithField("report_id", id).Error("refresh report stats failed")
		}
	}
}

// RefreshReportStats recomputes the denormalised counters and hot score of one report.
func RefreshReportStats(conn *gorm.DB, reportID uint) error {
	var report models.Report
	if err := conn.Select("id", "updated_at").First(&report, reportID).Error; err != nil {
		return notFound(err)
	}

	var likes, posts, comments int64
	if err := conn.Model(&models.Like{}).Where("report_id = ?", reportID).Count(&likes).Error; err != nil {
		return fmt.Errorf("count likes: %w", err)
	}
	if err := conn.Model(&models.Post{}).Where("report_id = ?", reportID).Count(&posts).Error; err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	if err := conn.Model(&models.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.report_id = ?", reportID).
		Count(&comments).Error; err != nil {
		return fmt.Errorf("count comments: %w", err)
	}

	score := utils.CalculateScore(report.UpdatedAt, int(likes), int(comments), int(posts))

	// UpdateColumns leaves updated_at alone: counters are not activity.
	err := conn.Model(&models.Report{}).Where("id = ?", reportID).UpdateColumns(map[string]interface{}{
		"like_count":    likes,
		"post_count":    posts,
		"comment_count": comments,
		"score":         int(score),
	}).Error
	if err != nil {
		return err
	}
	utils.GetCache().Delete(reportDetailKey(reportID))
	return nil
}

// StartScheduledRefresh refreshes every report active in the last 7 days once a day at 03:00,
// so hot scores keep decaying for reports nobody touches.
func (s *StatsService) StartScheduledRefresh() {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}

			select {
			case <-time.After(time.Until(next)):
			case <-s.stop:
				return
			}

			log.Info("Refreshing hot scores...")
			s.refreshRecent()
		}
	}()
}

func (s *StatsService) refreshRecent() {
	var ids []uint
	if err := db.DB.Model(&models.Report{}).
		Where("updated_at >= ?", time.Now().AddDate(0, 0, -7)).
		Pluck("id", &ids).Error; err != nil {
		log.WithError(err).Error("load recent reports failed")
		return
	}
	for _, id := range ids {
		s.ScheduleUpdate(id)
	}
	log.WithField("count", len(ids)).Info("Scheduled hot score refresh")
}
