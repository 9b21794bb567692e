// Package visitor defines the visitor log model and its lifecycle rules.
package visitor

import (
	"time"
)

// Status represents a visitor log's approval/entry state.
type Status string

// Visitor log status constants.
const (
	StatusPending    Status = "PENDING"     // Awaiting resident decision
	StatusApproved   Status = "APPROVED"    // Resident approved, may enter
	StatusRejected   Status = "REJECTED"    // Resident denied entry
	StatusCheckedIn  Status = "CHECKED_IN"  // Inside the premises
	StatusCheckedOut Status = "CHECKED_OUT" // Left the premises
	StatusCancelled  Status = "CANCELLED"   // Abandoned before entry
)

// Category classifies the kind of visitor at the gate.
type Category string

// Visitor category constants.
const (
	CategoryGuest    Category = "GUEST"
	CategoryDelivery Category = "DELIVERY"
	CategoryCab      Category = "CAB"
	CategoryMaid     Category = "MAID"
	CategoryVendor   Category = "VENDOR"
	CategoryService  Category = "SERVICE"
	CategoryOther    Category = "OTHER"
)

// Categories lists all valid visitor categories.
var Categories = []Category{
	CategoryGuest, CategoryDelivery, CategoryCab, CategoryMaid,
	CategoryVendor, CategoryService, CategoryOther,
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Log is a single visitor record, owned by the platform backend for its
// lifetime. The agent only ever holds a snapshot of it.
type Log struct {
	LogID                   int64      `json:"logId"`
	Name                    string     `json:"name"`
	Phone                   string     `json:"phone"`
	Category                Category   `json:"category"`
	Purpose                 string     `json:"purpose,omitempty"`
	VehicleNumber           string     `json:"vehicleNumber,omitempty"`
	IDProofType             string     `json:"idProofType,omitempty"`
	IDProofNumber           string     `json:"idProofNumber,omitempty"`
	ImageURL                string     `json:"imageUrl,omitempty"`
	FlatID                  int64      `json:"flatId"`
	FlatNumber              string     `json:"flatNumber,omitempty"`
	SocietyID               int64      `json:"societyId,omitempty"`
	ExpectedDurationMinutes int        `json:"expectedDurationMinutes,omitempty"`
	InTime                  time.Time  `json:"inTime"`
	OutTime                 *time.Time `json:"outTime,omitempty"`
	ExpectedOutTime         *time.Time `json:"expectedOutTime,omitempty"`
	Status                  Status     `json:"status"`
	GateEntry               string     `json:"gateEntry,omitempty"`
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCheckedOut || s == StatusCancelled
}

// IsDecided reports whether s is past the pending stage. A polling
// subscription stops at the first decided status it observes.
func (s Status) IsDecided() bool {
	return s != StatusPending
}

// transitions encodes the forward-only state machine. Nothing re-enters
// PENDING once left, and terminal states admit no successors.
var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCheckedIn, StatusCheckedOut, StatusCancelled},
	StatusCheckedIn: {StatusCheckedOut, StatusCancelled},
}

// CanTransition reports whether a log may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Overstaying reports whether the visitor is still inside past their
// expected departure time.
func (l *Log) Overstaying(now time.Time) bool {
	if l.OutTime != nil || l.ExpectedOutTime == nil {
		return false
	}
	return now.After(*l.ExpectedOutTime)
}
