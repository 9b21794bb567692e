package websocket

import (
	"log"
	"time"

	"github.com/society-gate/agent/internal/visitor"
)

// EventBroadcaster translates gate happenings into display events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a broadcaster over the hub.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastCheckedIn announces a freshly submitted check-in.
func (b *EventBroadcaster) BroadcastCheckedIn(rec *visitor.Log) {
	b.broadcast(NewMessage(TypeVisitorCheckedIn, visitorPayload(rec, "")))
}

// BroadcastStatusChanged announces a decision on a pending visitor.
func (b *EventBroadcaster) BroadcastStatusChanged(rec *visitor.Log, previous visitor.Status) {
	b.broadcast(NewMessage(TypeVisitorStatusChanged, visitorPayload(rec, previous)))
}

// BroadcastCheckedOut announces a recorded checkout.
func (b *EventBroadcaster) BroadcastCheckedOut(rec *visitor.Log, previous visitor.Status) {
	b.broadcast(NewMessage(TypeVisitorCheckedOut, visitorPayload(rec, previous)))
}

// BroadcastOverstay announces a visitor inside past their expected
// departure.
func (b *EventBroadcaster) BroadcastOverstay(rec *visitor.Log, now time.Time) {
	payload := OverstayPayload{
		LogID:  rec.LogID,
		Name:   rec.Name,
		FlatID: rec.FlatID,
	}
	if rec.ExpectedOutTime != nil {
		payload.ExpectedOutTime = *rec.ExpectedOutTime
		payload.OverdueMinutes = int(now.Sub(*rec.ExpectedOutTime) / time.Minute)
	}
	b.broadcast(NewMessage(TypeVisitorOverstay, payload))
}

// BroadcastScanResult announces the verdict on a scanned token.
func (b *EventBroadcaster) BroadcastScanResult(payload ScanResultPayload) {
	b.broadcast(NewMessage(TypeAccessScanResult, payload))
}

// BroadcastNotification sends a free-form notification to all displays.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:   level,
		Title:   title,
		Message: message,
	}))
}

func visitorPayload(rec *visitor.Log, previous visitor.Status) VisitorStatusPayload {
	return VisitorStatusPayload{
		LogID:          rec.LogID,
		Name:           rec.Name,
		FlatID:         rec.FlatID,
		FlatNumber:     rec.FlatNumber,
		Category:       string(rec.Category),
		PreviousStatus: string(previous),
		Status:         string(rec.Status),
	}
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding display event: %v", err)
		return
	}
	b.hub.Broadcast(data)
}
