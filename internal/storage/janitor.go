package storage

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// JournalJanitor prunes aged journal entries on a schedule. The journal is
// a rolling window, not an archive; the platform keeps the permanent record.
type JournalJanitor struct {
	cron      *cron.Cron
	repo      *JournalRepository
	retention time.Duration
}

// NewJournalJanitor creates a janitor keeping entries for the given
// retention window.
func NewJournalJanitor(repo *JournalRepository, retention time.Duration) *JournalJanitor {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &JournalJanitor{
		cron:      cron.New(),
		repo:      repo,
		retention: retention,
	}
}

// Start begins the hourly pruning schedule.
func (j *JournalJanitor) Start() {
	j.cron.AddFunc("@every 1h", j.prune)
	j.cron.Start()
	log.Printf("Journal janitor started (retention %s)", j.retention)
}

// Stop gracefully shuts down the janitor.
func (j *JournalJanitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *JournalJanitor) prune() {
	cutoff := time.Now().UTC().Add(-j.retention)
	removed, err := j.repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		log.Printf("Journal prune failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Journal pruned %d events older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
