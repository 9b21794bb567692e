package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/society-gate/agent/internal/visitor"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send():
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := NewClient(hub)
	b := NewClient(hub)
	hub.Register(a)
	hub.Register(b)

	if n := hub.ClientCount(); n != 2 {
		t.Fatalf("client count = %d, want 2", n)
	}

	hub.Broadcast([]byte(`{"type":"notification"}`))

	for _, c := range []*Client{a, b} {
		if got := string(receive(t, c)); got != `{"type":"notification"}` {
			t.Errorf("received %q", got)
		}
	}
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := NewClient(hub)
	hub.Register(c)
	hub.Unregister(c)

	// Unregister closes the send channel once processed
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-c.Send():
			if !ok {
				if n := hub.ClientCount(); n != 0 {
					t.Errorf("client count = %d, want 0", n)
				}
				return
			}
		case <-deadline:
			t.Fatal("send channel never closed")
		}
	}
}

func TestEventBroadcasterStatusChanged(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := NewClient(hub)
	hub.Register(c)

	rec := &visitor.Log{
		LogID:      501,
		Name:       "Alice",
		FlatID:     12,
		FlatNumber: "B-404",
		Category:   visitor.CategoryGuest,
		Status:     visitor.StatusApproved,
	}
	NewEventBroadcaster(hub).BroadcastStatusChanged(rec, visitor.StatusPending)

	var msg struct {
		Type    MessageType          `json:"type"`
		Payload VisitorStatusPayload `json:"payload"`
	}
	if err := json.Unmarshal(receive(t, c), &msg); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if msg.Type != TypeVisitorStatusChanged {
		t.Errorf("type = %s, want %s", msg.Type, TypeVisitorStatusChanged)
	}
	if msg.Payload.LogID != 501 || msg.Payload.Status != "APPROVED" || msg.Payload.PreviousStatus != "PENDING" {
		t.Errorf("payload = %+v", msg.Payload)
	}
}

func TestEventBroadcasterOverstay(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := NewClient(hub)
	hub.Register(c)

	expected := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := expected.Add(45 * time.Minute)
	rec := &visitor.Log{LogID: 77, Name: "Ravi", FlatID: 3, ExpectedOutTime: &expected}

	NewEventBroadcaster(hub).BroadcastOverstay(rec, now)

	var msg struct {
		Type    MessageType     `json:"type"`
		Payload OverstayPayload `json:"payload"`
	}
	if err := json.Unmarshal(receive(t, c), &msg); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if msg.Type != TypeVisitorOverstay {
		t.Errorf("type = %s, want %s", msg.Type, TypeVisitorOverstay)
	}
	if msg.Payload.OverdueMinutes != 45 {
		t.Errorf("overdue = %d minutes, want 45", msg.Payload.OverdueMinutes)
	}
}
