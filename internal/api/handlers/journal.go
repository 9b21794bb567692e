package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/society-gate/agent/internal/api/middleware"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/storage/models"
)

// ListJournal returns the newest gate events, up to the limit query
// parameter (default 50).
func ListJournal(repo *storage.JournalRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		events, err := repo.ListRecent(r.Context(), limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query journal")
			return
		}
		if events == nil {
			events = []models.GateEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// VisitorJournal returns every gate event recorded against one visitor log,
// oldest first.
func VisitorJournal(repo *storage.JournalRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil || logID <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid visitor id")
			return
		}

		events, err := repo.ListByVisitor(r.Context(), logID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query journal")
			return
		}
		if events == nil {
			events = []models.GateEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}
