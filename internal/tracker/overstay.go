package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/storage/models"
	"github.com/society-gate/agent/internal/websocket"
)

// OverstayWatcher periodically fetches visitors still inside past their
// expected departure and alerts the gate display. Each visitor is alerted
// once; the platform remains the authority on who is overstaying.
type OverstayWatcher struct {
	cron        *cron.Cron
	api         *platform.Client
	journal     *storage.JournalRepository
	broadcaster *websocket.EventBroadcaster
	societyID   int64
	interval    time.Duration

	alerted   map[int64]bool
	alertedMu sync.Mutex
}

// NewOverstayWatcher creates a watcher sweeping on the given interval
// (default 5 minutes).
func NewOverstayWatcher(
	api *platform.Client,
	journal *storage.JournalRepository,
	hub *websocket.Hub,
	societyID int64,
	interval time.Duration,
) *OverstayWatcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &OverstayWatcher{
		cron:        cron.New(),
		api:         api,
		journal:     journal,
		broadcaster: broadcaster,
		societyID:   societyID,
		interval:    interval,
		alerted:     make(map[int64]bool),
	}
}

// Start begins the sweep schedule.
func (w *OverstayWatcher) Start() {
	spec := "@every " + w.interval.String()
	w.cron.AddFunc(spec, w.sweep)
	w.cron.Start()
	log.Printf("Overstay watcher started (every %s)", w.interval)
}

// Stop gracefully shuts down the watcher.
func (w *OverstayWatcher) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	log.Println("Overstay watcher stopped")
}

// Sweep runs one sweep immediately. Exposed for a manual trigger from the
// display API.
func (w *OverstayWatcher) Sweep() {
	w.sweep()
}

func (w *OverstayWatcher) sweep() {
	ctx := context.Background()

	overstaying, err := w.api.OverstayingVisitors(ctx, w.societyID)
	if err != nil {
		log.Printf("Overstay sweep failed: %v", err)
		return
	}

	now := time.Now().UTC()
	current := make(map[int64]bool, len(overstaying))

	for i := range overstaying {
		rec := &overstaying[i]
		current[rec.LogID] = true

		w.alertedMu.Lock()
		already := w.alerted[rec.LogID]
		w.alerted[rec.LogID] = true
		w.alertedMu.Unlock()
		if already {
			continue
		}

		log.Printf("Visitor %d (%s) overstaying at flat %d", rec.LogID, rec.Name, rec.FlatID)
		if w.broadcaster != nil {
			w.broadcaster.BroadcastOverstay(rec, now)
		}
		if w.journal != nil {
			event := &models.GateEvent{
				Action:      models.ActionOverstayAlert,
				LogID:       &rec.LogID,
				VisitorName: rec.Name,
				FlatID:      &rec.FlatID,
				Status:      string(rec.Status),
			}
			if err := w.journal.Record(ctx, event); err != nil {
				log.Printf("Journal write failed (%s): %v", event.Action, err)
			}
		}
	}

	// Visitors who checked out since the last sweep become eligible to
	// alert again on a future visit.
	w.alertedMu.Lock()
	for logID := range w.alerted {
		if !current[logID] {
			delete(w.alerted, logID)
		}
	}
	w.alertedMu.Unlock()
}
