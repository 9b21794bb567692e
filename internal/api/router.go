// Package api provides HTTP routing and handlers for the gate display API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/society-gate/agent/internal/access"
	"github.com/society-gate/agent/internal/api/handlers"
	"github.com/society-gate/agent/internal/api/middleware"
	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/preapproval"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/tracker"
	"github.com/society-gate/agent/internal/websocket"
)

// Services bundles everything the routes need.
type Services struct {
	DB           *storage.DB
	Journal      *storage.JournalRepository
	Hub          *websocket.Hub
	Platform     *platform.Client
	Tracker      *tracker.Tracker
	PreApprovals *preapproval.Service
	Access       *access.Service
	SocietyID    int64
	StaticDir    string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB, s.Platform.Session())).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.Platform, s.Journal, s.Tracker, s.Hub)).Methods("GET")

	// WebSocket endpoint for gate displays
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods("GET")

	// Visitor lifecycle endpoints
	api.HandleFunc("/visitors/check-in", handlers.CheckInVisitor(s.Tracker)).Methods("POST")
	api.HandleFunc("/visitors/photo", handlers.UploadVisitorPhoto(s.Platform)).Methods("POST")
	api.HandleFunc("/visitors", handlers.ListVisitors(s.Platform, s.SocietyID)).Methods("GET")
	api.HandleFunc("/visitors/search", handlers.SearchVisitors(s.Platform, s.SocietyID)).Methods("GET")
	api.HandleFunc("/visitors/flat/{flatId}", handlers.FlatVisitors(s.Platform)).Methods("GET")
	api.HandleFunc("/visitors/pending-approvals/{residentId}", handlers.PendingApprovals(s.Platform)).Methods("GET")
	api.HandleFunc("/visitors/{id}", handlers.GetVisitor(s.Platform)).Methods("GET")
	api.HandleFunc("/visitors/{id}/approve", handlers.ApproveVisitor(s.Tracker)).Methods("POST")
	api.HandleFunc("/visitors/{id}/reject", handlers.RejectVisitor(s.Tracker)).Methods("POST")
	api.HandleFunc("/visitors/{id}/check-out", handlers.CheckOutVisitor(s.Tracker)).Methods("POST")
	api.HandleFunc("/visitors/{id}/watch", handlers.WatchVisitor(s.Tracker)).Methods("POST")
	api.HandleFunc("/visitors/{id}/watch", handlers.UnwatchVisitor(s.Tracker)).Methods("DELETE")
	api.HandleFunc("/visitors/{id}/journal", handlers.VisitorJournal(s.Journal)).Methods("GET")

	// Pre-approval endpoints
	api.HandleFunc("/pre-approvals", handlers.CreatePreApproval(s.PreApprovals)).Methods("POST")

	// Access validation endpoint for scanned tokens
	api.HandleFunc("/access/validate", handlers.ValidateAccess(s.Access)).Methods("POST")

	// Journal endpoints
	api.HandleFunc("/journal", handlers.ListJournal(s.Journal)).Methods("GET")

	// Serve static display files
	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}
