package tracker

import (
	"context"
	"log"
	"time"

	"github.com/society-gate/agent/internal/storage/models"
	"github.com/society-gate/agent/internal/visitor"
)

// DecisionFunc receives the record carrying the first decided status a
// subscription observes. It is invoked exactly once per watch.
type DecisionFunc func(rec *visitor.Log)

// Watch is a polling subscription on one pending visitor. It re-fetches the
// authoritative status on a fixed interval until a decision is observed or
// the owner tears it down, whichever comes first.
type Watch struct {
	logID  int64
	cancel context.CancelFunc
	done   chan struct{}
}

// LogID returns the visitor log this watch polls.
func (w *Watch) LogID() int64 {
	return w.logID
}

// Stop tears the subscription down. Any in-flight poll result is discarded;
// the decision callback will not fire after Stop returns and the watch
// drains.
func (w *Watch) Stop() {
	w.cancel()
}

// Done is closed when the polling goroutine has exited.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Watch starts a polling subscription for logID. A previous watch on the
// same logID is replaced. The subscription is bound to ctx: cancelling it
// tears the watch down exactly like Stop.
func (t *Tracker) Watch(ctx context.Context, logID int64, onDecision DecisionFunc) *Watch {
	wctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		logID:  logID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	t.mu.Lock()
	if previous, ok := t.watches[logID]; ok {
		previous.cancel()
	}
	t.watches[logID] = w
	t.mu.Unlock()

	go t.poll(wctx, w, onDecision)
	return w
}

// Unwatch stops the active watch for logID, if any.
func (t *Tracker) Unwatch(logID int64) {
	t.mu.Lock()
	w, ok := t.watches[logID]
	t.mu.Unlock()
	if ok {
		w.cancel()
	}
}

// Watching reports whether a subscription is active for logID.
func (t *Tracker) Watching(logID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.watches[logID]
	return ok
}

// ActiveWatches returns the number of live subscriptions.
func (t *Tracker) ActiveWatches() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watches)
}

// StopAll tears down every active subscription and waits for the polling
// goroutines to drain. Called at shutdown.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	active := make([]*Watch, 0, len(t.watches))
	for _, w := range t.watches {
		w.cancel()
		active = append(active, w)
	}
	t.mu.Unlock()

	for _, w := range active {
		<-w.done
	}
}

// poll is the subscription loop. Polls are strictly sequential: the fetch
// runs inside the tick arm, so a slow response swallows ticks instead of
// stacking requests. A failed poll is logged and retried on the next tick;
// it never changes state and never stops the subscription.
func (t *Tracker) poll(ctx context.Context, w *Watch, onDecision DecisionFunc) {
	defer close(w.done)
	defer t.forget(w)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			rec, err := t.api.GetVisitorLog(ctx, w.logID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Status poll failed for visitor %d: %v", w.logID, err)
				continue
			}

			// Teardown raced the response: discard it, no dispatch.
			if ctx.Err() != nil {
				return
			}

			if !rec.Status.IsDecided() {
				continue
			}

			t.record(ctx, &models.GateEvent{
				Action:      models.ActionDecisionObserved,
				LogID:       &rec.LogID,
				VisitorName: rec.Name,
				FlatID:      &rec.FlatID,
				Status:      string(rec.Status),
			})
			if t.broadcaster != nil {
				t.broadcaster.BroadcastStatusChanged(rec, visitor.StatusPending)
			}
			if onDecision != nil {
				onDecision(rec)
			}
			return
		}
	}
}

// forget drops w from the watch table unless it was already replaced.
func (t *Tracker) forget(w *Watch) {
	t.mu.Lock()
	if current, ok := t.watches[w.logID]; ok && current == w {
		delete(t.watches, w.logID)
	}
	t.mu.Unlock()
}
