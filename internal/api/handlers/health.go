package handlers

import (
	"net/http"
	"time"

	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/tracker"
	"github.com/society-gate/agent/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	DBConnected   bool   `json:"db_connected"`
	Authenticated bool   `json:"platform_authenticated"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB, session *platform.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil
		authenticated := session.Authenticated() && !session.Expired(time.Now())

		status := "healthy"
		if !dbConnected || !authenticated {
			status = "degraded"
		}

		response := HealthResponse{
			Status:        status,
			DBConnected:   dbConnected,
			Authenticated: authenticated,
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, response)
	}
}

// StatusResponse represents the station status response.
type StatusResponse struct {
	Gate              string `json:"gate"`
	ConnectedDisplays int    `json:"connected_displays"`
	ActiveWatches     int    `json:"active_watches"`
	EventsLast24h     int    `json:"events_last_24h"`
	SessionExpiresAt  string `json:"session_expires_at,omitempty"`
}

// Status returns a handler that reports what the station is doing right now.
func Status(api *platform.Client, journal *storage.JournalRepository, trk *tracker.Tracker, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		count, err := journal.CountSince(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			count = 0
		}

		response := StatusResponse{
			Gate:              api.Gate(),
			ConnectedDisplays: hub.ClientCount(),
			ActiveWatches:     trk.ActiveWatches(),
			EventsLast24h:     count,
		}
		if expires := api.Session().ExpiresAt(); !expires.IsZero() {
			response.SessionExpiresAt = expires.Format(time.RFC3339)
		}

		writeJSON(w, http.StatusOK, response)
	}
}
