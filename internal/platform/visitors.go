package platform

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/society-gate/agent/internal/visitor"
)

// CheckInRequest is the visitor descriptor submitted at the gate.
// A photo reference is a local precondition enforced before submission;
// the validate tags back that up for the rest of the descriptor.
type CheckInRequest struct {
	Name                    string           `json:"name" validate:"required"`
	Phone                   string           `json:"phone,omitempty"`
	Category                visitor.Category `json:"category" validate:"required"`
	Purpose                 string           `json:"purpose,omitempty"`
	FlatID                  int64            `json:"flatId" validate:"required,gt=0"`
	ImageURL                string           `json:"imageUrl" validate:"required"`
	VehicleNumber           string           `json:"vehicleNumber,omitempty"`
	IDProofType             string           `json:"idProofType,omitempty"`
	IDProofNumber           string           `json:"idProofNumber,omitempty"`
	ExpectedDurationMinutes int              `json:"expectedDurationMinutes,omitempty" validate:"omitempty,gt=0"`
}

// SubmitCheckIn submits a visitor check-in. The backend decides the initial
// status: APPROVED when a standing arrangement (pre-approval, frequent
// visitor) matches, PENDING otherwise.
func (c *Client) SubmitCheckIn(ctx context.Context, req CheckInRequest) (*visitor.Log, error) {
	var log visitor.Log
	if err := c.post(ctx, "/visitors/check-in", req, &log); err != nil {
		return nil, fmt.Errorf("check-in: %w", err)
	}
	return &log, nil
}

// GetVisitorLog fetches the authoritative state of a single visitor log.
func (c *Client) GetVisitorLog(ctx context.Context, logID int64) (*visitor.Log, error) {
	var log visitor.Log
	if err := c.get(ctx, fmt.Sprintf("/visitors/%d", logID), nil, &log); err != nil {
		return nil, fmt.Errorf("fetching visitor log %d: %w", logID, err)
	}
	return &log, nil
}

// Approve records a resident's approval for a pending visitor.
func (c *Client) Approve(ctx context.Context, logID int64) (*visitor.Log, error) {
	var log visitor.Log
	if err := c.post(ctx, fmt.Sprintf("/visitors/%d/approve", logID), nil, &log); err != nil {
		return nil, fmt.Errorf("approving visitor %d: %w", logID, err)
	}
	return &log, nil
}

// Reject records a resident's rejection for a pending visitor.
func (c *Client) Reject(ctx context.Context, logID int64) (*visitor.Log, error) {
	var log visitor.Log
	if err := c.post(ctx, fmt.Sprintf("/visitors/%d/reject", logID), nil, &log); err != nil {
		return nil, fmt.Errorf("rejecting visitor %d: %w", logID, err)
	}
	return &log, nil
}

// CheckOut records a visitor leaving the premises.
func (c *Client) CheckOut(ctx context.Context, logID int64) (*visitor.Log, error) {
	var log visitor.Log
	if err := c.post(ctx, fmt.Sprintf("/visitors/check-out/%d", logID), nil, &log); err != nil {
		return nil, fmt.Errorf("checking out visitor %d: %w", logID, err)
	}
	return &log, nil
}

// ActiveVisitors lists visitors currently inside. A zero societyID lists
// across all societies the session may see.
func (c *Client) ActiveVisitors(ctx context.Context, societyID int64) ([]visitor.Log, error) {
	var logs []visitor.Log
	if err := c.get(ctx, "/visitors/active", societyQuery(societyID), &logs); err != nil {
		return nil, fmt.Errorf("listing active visitors: %w", err)
	}
	return logs, nil
}

// VisitorHistory lists all visitor logs, newest first.
func (c *Client) VisitorHistory(ctx context.Context, societyID int64) ([]visitor.Log, error) {
	var logs []visitor.Log
	if err := c.get(ctx, "/visitors/history", societyQuery(societyID), &logs); err != nil {
		return nil, fmt.Errorf("listing visitor history: %w", err)
	}
	return logs, nil
}

// VisitorsByFlat lists visitor logs for a destination flat.
func (c *Client) VisitorsByFlat(ctx context.Context, flatID int64) ([]visitor.Log, error) {
	var logs []visitor.Log
	if err := c.get(ctx, fmt.Sprintf("/visitors/flat/%d", flatID), nil, &logs); err != nil {
		return nil, fmt.Errorf("listing visitors for flat %d: %w", flatID, err)
	}
	return logs, nil
}

// SearchVisitors searches visitor logs by name and/or phone.
func (c *Client) SearchVisitors(ctx context.Context, societyID int64, name, phone string) ([]visitor.Log, error) {
	query := societyQuery(societyID)
	if name != "" {
		query.Set("name", name)
	}
	if phone != "" {
		query.Set("phone", phone)
	}

	var logs []visitor.Log
	if err := c.get(ctx, "/visitors/search", query, &logs); err != nil {
		return nil, fmt.Errorf("searching visitors: %w", err)
	}
	return logs, nil
}

// FilterByCategory lists visitor logs of one category.
func (c *Client) FilterByCategory(ctx context.Context, societyID int64, category visitor.Category) ([]visitor.Log, error) {
	query := societyQuery(societyID)
	query.Set("category", string(category))

	var logs []visitor.Log
	if err := c.get(ctx, "/visitors/filter", query, &logs); err != nil {
		return nil, fmt.Errorf("filtering visitors by category: %w", err)
	}
	return logs, nil
}

// FilterByDateRange lists visitor logs whose in-time falls in [start, end].
func (c *Client) FilterByDateRange(ctx context.Context, societyID int64, start, end time.Time) ([]visitor.Log, error) {
	query := societyQuery(societyID)
	query.Set("startDate", start.Format(time.RFC3339))
	query.Set("endDate", end.Format(time.RFC3339))

	var logs []visitor.Log
	if err := c.get(ctx, "/visitors/filter", query, &logs); err != nil {
		return nil, fmt.Errorf("filtering visitors by date: %w", err)
	}
	return logs, nil
}

// OverstayingVisitors lists visitors still inside past their expected
// departure time.
func (c *Client) OverstayingVisitors(ctx context.Context, societyID int64) ([]visitor.Log, error) {
	var logs []visitor.Log
	if err := c.get(ctx, "/visitors/overstaying", societyQuery(societyID), &logs); err != nil {
		return nil, fmt.Errorf("listing overstaying visitors: %w", err)
	}
	return logs, nil
}

// PendingApprovals lists visitor logs awaiting a specific resident's
// decision.
func (c *Client) PendingApprovals(ctx context.Context, residentID int64) ([]visitor.Log, error) {
	var logs []visitor.Log
	if err := c.get(ctx, fmt.Sprintf("/visitors/pending-approvals/%d", residentID), nil, &logs); err != nil {
		return nil, fmt.Errorf("listing pending approvals: %w", err)
	}
	return logs, nil
}

func societyQuery(societyID int64) url.Values {
	query := url.Values{}
	if societyID > 0 {
		query.Set("societyId", strconv.FormatInt(societyID, 10))
	}
	return query
}
