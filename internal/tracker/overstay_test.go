package tracker

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/society-gate/agent/internal/visitor"
	ws "github.com/society-gate/agent/internal/websocket"
)

func TestOverstaySweepAlertsOnce(t *testing.T) {
	expected := time.Now().UTC().Add(-30 * time.Minute)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/visitors/overstaying" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]visitor.Log{
			{LogID: 77, Name: "Ravi", FlatID: 3, Status: visitor.StatusCheckedIn, ExpectedOutTime: &expected},
		})
	}))

	hub := ws.NewHub()
	go hub.Run()
	display := ws.NewClient(hub)
	hub.Register(display)

	watcher := NewOverstayWatcher(client, nil, hub, 1, time.Minute)

	watcher.Sweep()
	watcher.Sweep()

	select {
	case msg := <-display.Send():
		var event struct {
			Type ws.MessageType `json:"type"`
		}
		json.Unmarshal(msg, &event)
		if event.Type != ws.TypeVisitorOverstay {
			t.Errorf("type = %s, want %s", event.Type, ws.TypeVisitorOverstay)
		}
	case <-time.After(time.Second):
		t.Fatal("no overstay alert broadcast")
	}

	// Same visitor, second sweep: no second alert
	select {
	case msg := <-display.Send():
		t.Fatalf("unexpected second alert: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOverstaySweepReAlertsAfterCheckout(t *testing.T) {
	var inside bool
	expected := time.Now().UTC().Add(-30 * time.Minute)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !inside {
			json.NewEncoder(w).Encode([]visitor.Log{})
			return
		}
		json.NewEncoder(w).Encode([]visitor.Log{
			{LogID: 77, Name: "Ravi", FlatID: 3, Status: visitor.StatusCheckedIn, ExpectedOutTime: &expected},
		})
	}))

	hub := ws.NewHub()
	go hub.Run()
	display := ws.NewClient(hub)
	hub.Register(display)

	watcher := NewOverstayWatcher(client, nil, hub, 1, time.Minute)

	inside = true
	watcher.Sweep() // first visit alert

	inside = false
	watcher.Sweep() // visitor left, alert state resets

	inside = true
	watcher.Sweep() // back inside on a later visit

	for i := 0; i < 2; i++ {
		select {
		case <-display.Send():
		case <-time.After(time.Second):
			t.Fatalf("expected 2 alerts, got %d", i)
		}
	}
}
