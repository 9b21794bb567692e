package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeVisitorCheckedIn     MessageType = "visitor.checked_in"
	TypeVisitorStatusChanged MessageType = "visitor.status_changed"
	TypeVisitorCheckedOut    MessageType = "visitor.checked_out"
	TypeVisitorOverstay      MessageType = "visitor.overstay"
	TypeAccessScanResult     MessageType = "access.scan_result"
	TypeNotification         MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message is the WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// VisitorStatusPayload is the payload for visitor.status_changed and
// visitor.checked_in events.
type VisitorStatusPayload struct {
	LogID          int64  `json:"log_id"`
	Name           string `json:"name"`
	FlatID         int64  `json:"flat_id"`
	FlatNumber     string `json:"flat_number,omitempty"`
	Category       string `json:"category"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Status         string `json:"status"`
}

// OverstayPayload is the payload for visitor.overstay events.
type OverstayPayload struct {
	LogID           int64     `json:"log_id"`
	Name            string    `json:"name"`
	FlatID          int64     `json:"flat_id"`
	ExpectedOutTime time.Time `json:"expected_out_time"`
	OverdueMinutes  int       `json:"overdue_minutes"`
}

// ScanResultPayload is the payload for access.scan_result events.
type ScanResultPayload struct {
	Name       string `json:"name"`
	TokenKind  string `json:"token_kind"` // passcode or qr
	Type       string `json:"type,omitempty"`
	AccessType string `json:"access_type,omitempty"`
	Granted    bool   `json:"granted"`
	Reason     string `json:"reason,omitempty"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level   string `json:"level"` // info, warning, error, success
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
