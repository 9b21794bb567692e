// Package access handles guard-side redemption of scanned tokens: 6-digit
// pre-approval passcodes and TYPE:ID:NAME QR payloads. The verdict belongs
// to the platform; this service only pre-checks the token shape and relays
// the outcome to the display.
package access

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/storage/models"
	"github.com/society-gate/agent/internal/websocket"
)

// TokenKind classifies the shape of a scanned token.
type TokenKind string

const (
	// KindPasscode is a 6-digit pre-approval code.
	KindPasscode TokenKind = "passcode"
	// KindQR is a TYPE:ID:NAME identity payload.
	KindQR TokenKind = "qr"
)

// ErrMalformedToken is reported for tokens matching neither shape, with
// zero network requests.
var ErrMalformedToken = errors.New("token is neither a 6-digit passcode nor a QR payload")

var passcodePattern = regexp.MustCompile(`^\d{6}$`)

// Classify determines a token's shape. Returns ErrMalformedToken when the
// token fits neither.
func Classify(token string) (TokenKind, error) {
	token = strings.TrimSpace(token)
	if passcodePattern.MatchString(token) {
		return KindPasscode, nil
	}
	if parts := strings.Split(token, ":"); len(parts) >= 3 && parts[0] != "" && parts[1] != "" {
		return KindQR, nil
	}
	return "", ErrMalformedToken
}

// Service validates scanned tokens at the gate.
type Service struct {
	api         *platform.Client
	journal     *storage.JournalRepository
	broadcaster *websocket.EventBroadcaster
}

// NewService creates the validation service. The journal and hub may be nil.
func NewService(api *platform.Client, journal *storage.JournalRepository, hub *websocket.Hub) *Service {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}
	return &Service{api: api, journal: journal, broadcaster: broadcaster}
}

// Validate redeems a scanned token. Malformed tokens fail locally; the
// platform decides everything else. A denial changes no local state and
// simply surfaces to the caller.
func (s *Service) Validate(ctx context.Context, token string) (*platform.AccessResult, error) {
	kind, err := Classify(token)
	if err != nil {
		return nil, err
	}

	result, err := s.api.ValidateAccess(ctx, token)
	if err != nil {
		s.announce(ctx, websocket.ScanResultPayload{
			TokenKind: string(kind),
			Granted:   false,
			Reason:    err.Error(),
		})
		return nil, err
	}

	s.announce(ctx, websocket.ScanResultPayload{
		Name:       result.Name,
		TokenKind:  string(kind),
		Type:       result.Type,
		AccessType: result.AccessType,
		Granted:    true,
	})
	return result, nil
}

func (s *Service) announce(ctx context.Context, payload websocket.ScanResultPayload) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastScanResult(payload)
	}
	if s.journal != nil {
		status := "DENIED"
		if payload.Granted {
			status = "GRANTED"
		}
		s.journal.Record(ctx, &models.GateEvent{
			Action:      models.ActionScan,
			VisitorName: payload.Name,
			Status:      status,
			Detail:      payload.Reason,
		})
	}
}
