// Package tracker orchestrates the visitor lifecycle at the gate: check-in
// submission, approval transitions, checkout and status polling. The
// platform backend stays authoritative throughout; the tracker never
// mutates local state ahead of a response.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/storage/models"
	"github.com/society-gate/agent/internal/visitor"
	"github.com/society-gate/agent/internal/websocket"
)

// Precondition and permission failures, reported before any network call.
var (
	ErrPhotoRequired     = errors.New("visitor photo reference is required before check-in")
	ErrInvalidDescriptor = errors.New("invalid visitor descriptor")
	ErrNotPermitted      = errors.New("actor is not permitted to perform this transition")
)

// TransitionError reports a transition the state machine refuses.
type TransitionError struct {
	From visitor.Status
	To   visitor.Status
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("visitor status %s is terminal", e.From)
	}
	return fmt.Sprintf("cannot transition visitor from %s to %s", e.From, e.To)
}

// DefaultPollInterval is how often a subscription re-fetches a pending
// visitor's status.
const DefaultPollInterval = 3 * time.Second

// Tracker is the visitor access tracker for one gate.
type Tracker struct {
	api          *platform.Client
	journal      *storage.JournalRepository
	broadcaster  *websocket.EventBroadcaster
	validate     *validator.Validate
	pollInterval time.Duration

	watches map[int64]*Watch
	mu      sync.Mutex
}

// New creates a tracker. The journal and hub may be nil; polling uses
// DefaultPollInterval when pollInterval is zero.
func New(api *platform.Client, journal *storage.JournalRepository, hub *websocket.Hub, pollInterval time.Duration) *Tracker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Tracker{
		api:          api,
		journal:      journal,
		broadcaster:  broadcaster,
		validate:     validator.New(),
		pollInterval: pollInterval,
		watches:      make(map[int64]*Watch),
	}
}

// CheckIn submits a visitor at the gate. The photo reference and descriptor
// shape are local preconditions: a failing descriptor issues no network
// request. The returned record carries the backend-decided initial status,
// PENDING unless a standing arrangement matched.
func (t *Tracker) CheckIn(ctx context.Context, req platform.CheckInRequest) (*visitor.Log, error) {
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, ErrPhotoRequired
	}
	if !visitor.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidDescriptor, req.Category)
	}
	if err := t.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	rec, err := t.api.SubmitCheckIn(ctx, req)
	if err != nil {
		return nil, err
	}

	t.record(ctx, &models.GateEvent{
		Action:      models.ActionCheckInSubmitted,
		LogID:       &rec.LogID,
		VisitorName: rec.Name,
		FlatID:      &rec.FlatID,
		Status:      string(rec.Status),
	})
	if t.broadcaster != nil {
		t.broadcaster.BroadcastCheckedIn(rec)
	}
	return rec, nil
}

// Approve records the actor's approval for a pending visitor. The current
// status is re-fetched first; terminal or already-decided records are
// refused locally without issuing the transition.
func (t *Tracker) Approve(ctx context.Context, logID int64, actor visitor.Actor) (*visitor.Log, error) {
	if !actor.CanApprove() {
		return nil, ErrNotPermitted
	}
	return t.transition(ctx, logID, visitor.StatusApproved, actor, models.ActionApproved, t.api.Approve)
}

// Reject records the actor's rejection for a pending visitor.
func (t *Tracker) Reject(ctx context.Context, logID int64, actor visitor.Actor) (*visitor.Log, error) {
	if !actor.CanApprove() {
		return nil, ErrNotPermitted
	}
	return t.transition(ctx, logID, visitor.StatusRejected, actor, models.ActionRejected, t.api.Reject)
}

// CheckOut records the visitor leaving. Only entered visitors check out;
// the terminal-state guard applies as for any transition.
func (t *Tracker) CheckOut(ctx context.Context, logID int64, actor visitor.Actor) (*visitor.Log, error) {
	if !actor.CanCheckOut() {
		return nil, ErrNotPermitted
	}
	return t.transition(ctx, logID, visitor.StatusCheckedOut, actor, models.ActionCheckedOut, t.api.CheckOut)
}

// transition fetches the authoritative status, guards the state machine and
// then performs the platform call. Never optimistic: the returned record is
// whatever the platform answered.
func (t *Tracker) transition(
	ctx context.Context,
	logID int64,
	to visitor.Status,
	actor visitor.Actor,
	action string,
	op func(context.Context, int64) (*visitor.Log, error),
) (*visitor.Log, error) {
	current, err := t.api.GetVisitorLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if !visitor.CanTransition(current.Status, to) {
		return nil, &TransitionError{From: current.Status, To: to}
	}

	updated, err := op(ctx, logID)
	if err != nil {
		return nil, err
	}
	if updated == nil || updated.LogID == 0 {
		// Backend may answer an empty body for transitions; re-fetch so the
		// caller always sees the authoritative record.
		updated, err = t.api.GetVisitorLog(ctx, logID)
		if err != nil {
			return nil, err
		}
	}

	t.record(ctx, &models.GateEvent{
		Action:      action,
		LogID:       &updated.LogID,
		VisitorName: updated.Name,
		FlatID:      &updated.FlatID,
		Status:      string(updated.Status),
		Actor:       actor.Name,
	})
	if t.broadcaster != nil {
		if to == visitor.StatusCheckedOut {
			t.broadcaster.BroadcastCheckedOut(updated, current.Status)
		} else {
			t.broadcaster.BroadcastStatusChanged(updated, current.Status)
		}
	}
	return updated, nil
}

// record writes to the journal when one is configured. Journal failures are
// logged by the repository caller, never fatal to the gate flow.
func (t *Tracker) record(ctx context.Context, event *models.GateEvent) {
	if t.journal == nil {
		return
	}
	if err := t.journal.Record(ctx, event); err != nil {
		log.Printf("Journal write failed (%s): %v", event.Action, err)
	}
}
