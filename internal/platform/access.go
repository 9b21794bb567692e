package platform

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/society-gate/agent/internal/visitor"
)

// PreApprovalRequest is a resident-issued advance authorization for an
// expected guest. The platform assigns the access code.
type PreApprovalRequest struct {
	VisitorName  string           `json:"visitorName" validate:"required"`
	VisitorPhone string           `json:"visitorPhone" validate:"required,min=7,max=15"`
	Category     visitor.Category `json:"category" validate:"required"`
	ValidFrom    time.Time        `json:"validFrom"`
	ValidUntil   time.Time        `json:"validUntil"`
	Resident     ResidentRef      `json:"resident"`
	Flat         FlatRef          `json:"flat"`
}

// ResidentRef identifies the issuing resident.
type ResidentRef struct {
	ResidentID int64 `json:"residentId"`
}

// FlatRef identifies the destination flat.
type FlatRef struct {
	FlatID int64 `json:"flatId"`
}

// PreApproval is the issued authorization as returned by the platform.
type PreApproval struct {
	ID           int64            `json:"id"`
	Code         string           `json:"code"`
	VisitorName  string           `json:"visitorName"`
	VisitorPhone string           `json:"visitorPhone"`
	Category     visitor.Category `json:"category"`
	ValidFrom    time.Time        `json:"validFrom"`
	ValidUntil   time.Time        `json:"validUntil"`
	Used         bool             `json:"isUsed"`
}

// CreatePreApproval registers a pre-approval and returns the issued code.
func (c *Client) CreatePreApproval(ctx context.Context, req PreApprovalRequest) (*PreApproval, error) {
	var pass PreApproval
	if err := c.post(ctx, "/visitors/pre-approve", req, &pass); err != nil {
		return nil, fmt.Errorf("creating pre-approval: %w", err)
	}
	return &pass, nil
}

// AccessResult is the platform's verdict on a scanned token or passcode.
type AccessResult struct {
	Name       string `json:"name"`
	Type       string `json:"type"`       // VISITOR, RESIDENT or HELP
	AccessType string `json:"accessType"` // ENTRY or EXIT
	Status     string `json:"status"`     // GRANTED
}

// validateRequest wraps the scanned token for the validation endpoint.
type validateRequest struct {
	Token string `json:"token"`
}

// ValidateAccess redeems a scanned QR payload or 6-digit passcode at the
// gate. Expired or unknown tokens come back as an *APIError; no entry is
// recorded in that case.
func (c *Client) ValidateAccess(ctx context.Context, token string) (*AccessResult, error) {
	var result AccessResult
	if err := c.post(ctx, "/access/validate-qr", validateRequest{Token: token}, &result); err != nil {
		return nil, fmt.Errorf("validating access token: %w", err)
	}
	return &result, nil
}

// UploadResult is the stored location of an uploaded file.
type UploadResult struct {
	URL string `json:"url"`
}

// UploadVisitorPhoto uploads a captured visitor photo and returns its URL,
// which check-in then requires as the photo reference.
func (c *Client) UploadVisitorPhoto(ctx context.Context, image []byte, filename string) (*UploadResult, error) {
	if filename == "" {
		filename = "visitor_photo.jpg"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("writing upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/files/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("uploading photo: %w", err)
	}
	return &result, nil
}
