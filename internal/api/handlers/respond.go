// Package handlers provides HTTP request handlers for the gate display API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/society-gate/agent/internal/access"
	"github.com/society-gate/agent/internal/api/middleware"
	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/preapproval"
	"github.com/society-gate/agent/internal/tracker"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service and platform failures onto the API error
// envelope. Local precondition failures stay 4xx; platform verdicts keep
// their upstream status; anything else is a 502 toward the backend.
func writeServiceError(w http.ResponseWriter, err error) {
	var transition *tracker.TransitionError
	var apiErr *platform.APIError

	switch {
	case errors.Is(err, tracker.ErrPhotoRequired),
		errors.Is(err, tracker.ErrInvalidDescriptor),
		errors.Is(err, preapproval.ErrInvalidGuest),
		errors.Is(err, preapproval.ErrInvalidWindow),
		errors.Is(err, access.ErrMalformedToken):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())

	case errors.Is(err, preapproval.ErrNoResidentIdentity),
		errors.Is(err, preapproval.ErrNoFlatIdentity):
		middleware.WriteError(w, http.StatusPreconditionFailed, middleware.ErrBadRequest, err.Error())

	case errors.Is(err, tracker.ErrNotPermitted):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, err.Error())

	case errors.As(err, &transition):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrBadRequest, transition.Error())

	case errors.As(err, &apiErr):
		code := apiErr.Code
		if code == "" {
			code = middleware.ErrUpstream
		}
		middleware.WriteError(w, apiErr.StatusCode, code, apiErr.Message)

	default:
		middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUpstream, err.Error())
	}
}
