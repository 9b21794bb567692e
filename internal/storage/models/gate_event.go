// Package models defines the persisted journal records.
package models

import "time"

// GateEvent is one observable action recorded at this gate: a submission,
// an observed decision, a scan, a checkout or an overstay alert. The journal
// is an audit trail for the display's recent-activity panel, never an
// authority on visitor state.
type GateEvent struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	LogID       *int64    `json:"log_id,omitempty"`
	VisitorName string    `json:"visitor_name,omitempty"`
	FlatID      *int64    `json:"flat_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Journal action constants.
const (
	ActionCheckInSubmitted = "check_in_submitted"
	ActionDecisionObserved = "decision_observed"
	ActionApproved         = "approved"
	ActionRejected         = "rejected"
	ActionCheckedOut       = "checked_out"
	ActionScan             = "scan"
	ActionOverstayAlert    = "overstay_alert"
	ActionPreApproval      = "pre_approval_issued"
)
