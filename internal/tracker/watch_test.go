package tracker

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/society-gate/agent/internal/visitor"
)

const testPollInterval = 10 * time.Millisecond

// pendingThenDecided serves PENDING for the first pending polls, then the
// decided status forever after. It counts every status fetch.
func pendingThenDecided(pending int64, decided visitor.Status, fetches *int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(fetches, 1)
		status := visitor.StatusPending
		if n > pending {
			status = decided
		}
		writeLog(w, visitor.Log{LogID: 501, Name: "Alice", FlatID: 12, Status: status})
	})
}

func waitDone(t *testing.T, w *Watch) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not finish in time")
	}
}

func TestWatchNotifiesDecisionExactlyOnce(t *testing.T) {
	var fetches, notified int64
	var got atomic.Value

	client, _ := newTestClient(t, pendingThenDecided(2, visitor.StatusApproved, &fetches))
	trk := New(client, nil, nil, testPollInterval)

	w := trk.Watch(context.Background(), 501, func(rec *visitor.Log) {
		atomic.AddInt64(&notified, 1)
		got.Store(rec.Status)
	})
	waitDone(t, w)

	if n := atomic.LoadInt64(&notified); n != 1 {
		t.Fatalf("decision notified %d times, want exactly 1", n)
	}
	if status := got.Load(); status != visitor.StatusApproved {
		t.Errorf("notified status = %v, want APPROVED", status)
	}
	if trk.Watching(501) {
		t.Error("watch should self-terminate after the decision")
	}

	// No polls after self-termination
	settled := atomic.LoadInt64(&fetches)
	time.Sleep(5 * testPollInterval)
	if n := atomic.LoadInt64(&fetches); n != settled {
		t.Errorf("polling continued after decision: %d -> %d fetches", settled, n)
	}
}

func TestWatchTeardownStopsPolling(t *testing.T) {
	var fetches, notified int64

	client, _ := newTestClient(t, pendingThenDecided(1<<30, visitor.StatusApproved, &fetches))
	trk := New(client, nil, nil, testPollInterval)

	w := trk.Watch(context.Background(), 501, func(*visitor.Log) {
		atomic.AddInt64(&notified, 1)
	})

	// Let it poll a few times while the record stays pending
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&fetches) < 2 && time.Now().Before(deadline) {
		time.Sleep(testPollInterval)
	}
	if atomic.LoadInt64(&fetches) < 2 {
		t.Fatal("watch never polled")
	}

	w.Stop()
	waitDone(t, w)

	settled := atomic.LoadInt64(&fetches)
	time.Sleep(5 * testPollInterval)
	if n := atomic.LoadInt64(&fetches); n != settled {
		t.Errorf("polling continued after teardown: %d -> %d fetches", settled, n)
	}
	if n := atomic.LoadInt64(&notified); n != 0 {
		t.Errorf("callback fired %d times after teardown, want 0", n)
	}
	if trk.Watching(501) {
		t.Error("stopped watch should leave the table")
	}
}

func TestWatchCancelledByContext(t *testing.T) {
	var fetches, notified int64

	client, _ := newTestClient(t, pendingThenDecided(1<<30, visitor.StatusApproved, &fetches))
	trk := New(client, nil, nil, testPollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	w := trk.Watch(ctx, 501, func(*visitor.Log) {
		atomic.AddInt64(&notified, 1)
	})

	cancel()
	waitDone(t, w)

	if n := atomic.LoadInt64(&notified); n != 0 {
		t.Errorf("callback fired %d times after cancellation, want 0", n)
	}
}

func TestWatchesAreIndependent(t *testing.T) {
	var notified501, notified502 int64

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/visitors/501":
			writeLog(w, visitor.Log{LogID: 501, Status: visitor.StatusApproved})
		case "/visitors/502":
			writeLog(w, visitor.Log{LogID: 502, Status: visitor.StatusPending})
		}
	}))
	trk := New(client, nil, nil, testPollInterval)
	defer trk.StopAll()

	w501 := trk.Watch(context.Background(), 501, func(*visitor.Log) { atomic.AddInt64(&notified501, 1) })
	trk.Watch(context.Background(), 502, func(*visitor.Log) { atomic.AddInt64(&notified502, 1) })

	waitDone(t, w501)

	if n := atomic.LoadInt64(&notified501); n != 1 {
		t.Errorf("decided watch notified %d times, want 1", n)
	}
	if n := atomic.LoadInt64(&notified502); n != 0 {
		t.Errorf("pending watch notified %d times, want 0", n)
	}
	if trk.Watching(501) {
		t.Error("decided watch should be gone")
	}
	if !trk.Watching(502) {
		t.Error("pending watch should survive its sibling's decision")
	}
}

func TestWatchRetriesAfterTransientFailure(t *testing.T) {
	var fetches, notified int64

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&fetches, 1)
		if n <= 2 {
			http.Error(w, `{"error":"internal_error","message":"boom"}`, http.StatusInternalServerError)
			return
		}
		writeLog(w, visitor.Log{LogID: 501, Status: visitor.StatusRejected})
	}))
	trk := New(client, nil, nil, testPollInterval)

	var got atomic.Value
	w := trk.Watch(context.Background(), 501, func(rec *visitor.Log) {
		atomic.AddInt64(&notified, 1)
		got.Store(rec.Status)
	})
	waitDone(t, w)

	if n := atomic.LoadInt64(&notified); n != 1 {
		t.Fatalf("decision notified %d times, want 1", n)
	}
	if status := got.Load(); status != visitor.StatusRejected {
		t.Errorf("notified status = %v, want REJECTED", status)
	}
	if n := atomic.LoadInt64(&fetches); n < 3 {
		t.Errorf("watch gave up after %d fetches instead of retrying", n)
	}
}

func TestWatchReplacesExisting(t *testing.T) {
	var fetches int64

	client, _ := newTestClient(t, pendingThenDecided(1<<30, visitor.StatusApproved, &fetches))
	trk := New(client, nil, nil, testPollInterval)
	defer trk.StopAll()

	first := trk.Watch(context.Background(), 501, nil)
	second := trk.Watch(context.Background(), 501, nil)

	waitDone(t, first)

	if !trk.Watching(501) {
		t.Error("replacement watch should still be active")
	}
	if n := trk.ActiveWatches(); n != 1 {
		t.Errorf("active watches = %d, want 1", n)
	}

	second.Stop()
	waitDone(t, second)
}

func TestStopAllDrains(t *testing.T) {
	var fetches int64

	client, _ := newTestClient(t, pendingThenDecided(1<<30, visitor.StatusApproved, &fetches))
	trk := New(client, nil, nil, testPollInterval)

	trk.Watch(context.Background(), 501, nil)
	trk.Watch(context.Background(), 502, nil)
	trk.Watch(context.Background(), 503, nil)

	trk.StopAll()

	if n := trk.ActiveWatches(); n != 0 {
		t.Errorf("active watches after StopAll = %d, want 0", n)
	}
}
