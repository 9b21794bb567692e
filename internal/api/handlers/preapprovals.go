package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/society-gate/agent/internal/api/middleware"
	"github.com/society-gate/agent/internal/preapproval"
)

// CreatePreApproval issues a resident-granted advance authorization and
// returns the platform-assigned passcode for out-of-band relay to the guest.
func CreatePreApproval(svc *preapproval.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req preapproval.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		pass, err := svc.Issue(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, pass)
	}
}
