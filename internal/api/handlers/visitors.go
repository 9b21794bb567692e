package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/society-gate/agent/internal/api/middleware"
	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/tracker"
	"github.com/society-gate/agent/internal/visitor"
)

// actorRequest carries the acting user on transition requests. When the
// display sends none, the station itself acts as the guard on duty.
type actorRequest struct {
	Actor *visitor.Actor `json:"actor"`
}

func requestActor(r *http.Request) visitor.Actor {
	var body actorRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Actor != nil {
		return *body.Actor
	}
	return visitor.Actor{Name: "gate-station", Roles: []visitor.Role{visitor.RoleGuard}}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

// CheckInVisitor submits a walk-in visitor and, when the backend leaves the
// record pending, starts a status subscription so the display hears the
// decision without polling the station.
func CheckInVisitor(trk *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req platform.CheckInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		rec, err := trk.CheckIn(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if rec.Status == visitor.StatusPending {
			// Subscription outlives the request; shutdown stops it.
			trk.Watch(context.Background(), rec.LogID, nil)
		}

		writeJSON(w, http.StatusCreated, rec)
	}
}

// GetVisitor fetches the authoritative state of one visitor log.
func GetVisitor(api *platform.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid visitor id")
			return
		}

		rec, err := api.GetVisitorLog(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// ApproveVisitor records an approval for a pending visitor.
func ApproveVisitor(trk *tracker.Tracker) http.HandlerFunc {
	return transitionHandler(trk.Approve)
}

// RejectVisitor records a rejection for a pending visitor.
func RejectVisitor(trk *tracker.Tracker) http.HandlerFunc {
	return transitionHandler(trk.Reject)
}

// CheckOutVisitor records a visitor leaving the premises.
func CheckOutVisitor(trk *tracker.Tracker) http.HandlerFunc {
	return transitionHandler(trk.CheckOut)
}

func transitionHandler(op func(context.Context, int64, visitor.Actor) (*visitor.Log, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid visitor id")
			return
		}

		rec, err := op(r.Context(), id, requestActor(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// WatchVisitor starts a status subscription for a visitor log. Idempotent:
// watching an already watched log replaces the subscription.
func WatchVisitor(trk *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid visitor id")
			return
		}

		trk.Watch(context.Background(), id, nil)
		writeJSON(w, http.StatusAccepted, map[string]any{"logId": id, "watching": true})
	}
}

// UnwatchVisitor tears down the status subscription for a visitor log.
func UnwatchVisitor(trk *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid visitor id")
			return
		}

		trk.Unwatch(id)
		writeJSON(w, http.StatusOK, map[string]any{"logId": id, "watching": false})
	}
}

// ListVisitors serves the display roster views. The view query parameter
// selects active (default), history or overstaying.
func ListVisitors(api *platform.Client, societyID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var (
			logs []visitor.Log
			err  error
		)
		switch view := r.URL.Query().Get("view"); view {
		case "", "active":
			logs, err = api.ActiveVisitors(ctx, societyID)
		case "history":
			logs, err = api.VisitorHistory(ctx, societyID)
		case "overstaying":
			logs, err = api.OverstayingVisitors(ctx, societyID)
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Unknown view: "+view)
			return
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if logs == nil {
			logs = []visitor.Log{}
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

// SearchVisitors searches visitor logs by name and/or phone, or filters by
// category or date range when those parameters are present.
func SearchVisitors(api *platform.Client, societyID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		var (
			logs []visitor.Log
			err  error
		)
		switch {
		case q.Get("category") != "":
			logs, err = api.FilterByCategory(ctx, societyID, visitor.Category(q.Get("category")))
		case q.Get("startDate") != "" && q.Get("endDate") != "":
			var start, end time.Time
			start, err = time.Parse(time.RFC3339, q.Get("startDate"))
			if err == nil {
				end, err = time.Parse(time.RFC3339, q.Get("endDate"))
			}
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Dates must be RFC 3339")
				return
			}
			logs, err = api.FilterByDateRange(ctx, societyID, start, end)
		default:
			logs, err = api.SearchVisitors(ctx, societyID, q.Get("name"), q.Get("phone"))
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if logs == nil {
			logs = []visitor.Log{}
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

// FlatVisitors lists visitor logs for one destination flat.
func FlatVisitors(api *platform.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flatID, err := strconv.ParseInt(mux.Vars(r)["flatId"], 10, 64)
		if err != nil || flatID <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid flat id")
			return
		}

		logs, err := api.VisitorsByFlat(r.Context(), flatID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if logs == nil {
			logs = []visitor.Log{}
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

// PendingApprovals lists visitor logs awaiting one resident's decision.
func PendingApprovals(api *platform.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		residentID, err := strconv.ParseInt(mux.Vars(r)["residentId"], 10, 64)
		if err != nil || residentID <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid resident id")
			return
		}

		logs, err := api.PendingApprovals(r.Context(), residentID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if logs == nil {
			logs = []visitor.Log{}
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

// UploadVisitorPhoto relays a captured visitor photo to the platform's file
// store and returns the reference the check-in descriptor needs.
func UploadVisitorPhoto(api *platform.Client) http.HandlerFunc {
	const maxPhotoBytes = 8 << 20

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid multipart body")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Missing file field")
			return
		}
		defer file.Close()

		image, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Failed to read upload")
			return
		}

		result, err := api.UploadVisitorPhoto(r.Context(), image, header.Filename)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}
