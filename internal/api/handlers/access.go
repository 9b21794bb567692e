package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/society-gate/agent/internal/access"
	"github.com/society-gate/agent/internal/api/middleware"
)

// ValidateAccess redeems a scanned token (6-digit passcode or QR payload)
// against the platform and relays the verdict.
func ValidateAccess(svc *access.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		result, err := svc.Validate(r.Context(), req.Token)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
