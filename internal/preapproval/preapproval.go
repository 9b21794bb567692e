// Package preapproval issues resident-granted advance authorizations.
// The platform assigns the 6-digit code; this service enforces the local
// preconditions and the default validity window before anything leaves
// the process.
package preapproval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/storage/models"
	"github.com/society-gate/agent/internal/visitor"
)

// DefaultValidity is the issuance window applied when the resident gives
// none: from now until a day out.
const DefaultValidity = 24 * time.Hour

// Precondition failures, reported before any network call.
var (
	ErrNoResidentIdentity = errors.New("issuing resident identity is required")
	ErrNoFlatIdentity     = errors.New("destination flat identity is required")
	ErrInvalidGuest       = errors.New("invalid guest details")
	ErrInvalidWindow      = errors.New("validity window ends before it starts")
)

// Request is the resident's issuance input.
type Request struct {
	VisitorName  string           `json:"visitorName" validate:"required"`
	VisitorPhone string           `json:"visitorPhone" validate:"required,min=7,max=15"`
	Category     visitor.Category `json:"category"`
	ValidFrom    time.Time        `json:"validFrom,omitempty"`
	ValidUntil   time.Time        `json:"validUntil,omitempty"`
	ResidentID   int64            `json:"residentId"`
	FlatID       int64            `json:"flatId"`
}

// Service issues pre-approvals through the platform.
type Service struct {
	api      *platform.Client
	journal  *storage.JournalRepository
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates the issuance service. The journal may be nil.
func NewService(api *platform.Client, journal *storage.JournalRepository) *Service {
	return &Service{
		api:      api,
		journal:  journal,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Issue registers a pre-approval and returns the platform-assigned code and
// expiry, for out-of-band relay to the guest. A request without a resolved
// resident and flat identity fails here, with zero network requests.
func (s *Service) Issue(ctx context.Context, req Request) (*platform.PreApproval, error) {
	if req.ResidentID <= 0 {
		return nil, ErrNoResidentIdentity
	}
	if req.FlatID <= 0 {
		return nil, ErrNoFlatIdentity
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGuest, err)
	}

	if req.Category == "" {
		req.Category = visitor.CategoryGuest
	} else if !visitor.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidGuest, req.Category)
	}

	now := s.now().UTC()
	if req.ValidFrom.IsZero() {
		req.ValidFrom = now
	}
	if req.ValidUntil.IsZero() {
		req.ValidUntil = req.ValidFrom.Add(DefaultValidity)
	}
	if !req.ValidUntil.After(req.ValidFrom) {
		return nil, ErrInvalidWindow
	}

	pass, err := s.api.CreatePreApproval(ctx, platform.PreApprovalRequest{
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Category:     req.Category,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		Resident:     platform.ResidentRef{ResidentID: req.ResidentID},
		Flat:         platform.FlatRef{FlatID: req.FlatID},
	})
	if err != nil {
		return nil, err
	}

	if s.journal != nil {
		event := &models.GateEvent{
			Action:      models.ActionPreApproval,
			VisitorName: pass.VisitorName,
			FlatID:      &req.FlatID,
			Detail:      fmt.Sprintf("valid until %s", pass.ValidUntil.Format(time.RFC3339)),
		}
		// Best effort; the code itself is never journalled.
		s.journal.Record(ctx, event)
	}

	return pass, nil
}
