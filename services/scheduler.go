// services/scheduler.go
package services

import (
	"log"
	"time"

	"fishing-tournament-system/models"
	"fishing-tournament-system/rules"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the background housekeeping jobs. Readers
// never depend on these sweeps for correctness — an active session past its
// expiry is already treated as expired, and lifecycle state is always
// derived — they only keep the tables tidy for moderation queries.
func (s *CatchService) StartMaintenanceScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: mark timed-out sessions as expired.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			res := s.DB.Model(&models.CatchSession{}).
				Where("status = ? AND expires_at <= ?", models.SessionStatusActive, time.Now()).
				Update("status", models.SessionStatusExpired)
			if res.Error != nil {
				log.Printf("[Scheduler] session sweep failed: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("[Scheduler] expired %d stale catch sessions", res.RowsAffected)
			}
		}),
	)

	// Every hour: close out review queues of archived tournaments. A pending
	// catch nobody reviewed within the archive window can no longer win
	// anything, so it is rejected rather than left dangling.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-rules.ArchiveAfter)
			res := s.DB.Exec(`
                UPDATE catches SET status = ?
                WHERE status IN (?, ?)
                  AND tournament_id IN (SELECT id FROM tournaments WHERE end_time <= ?)`,
				models.CatchStatusRejected,
				models.CatchStatusPending, models.CatchStatusUnderReview,
				cutoff,
			)
			if res.Error != nil {
				log.Printf("[Scheduler] archive sweep failed: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("[Scheduler] auto-rejected %d unreviewed catches in archived tournaments", res.RowsAffected)
			}
		}),
	)
}
