package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/leave"
)

// LeaveService is the ledger surface the HTTP layer needs.
type LeaveService interface {
	Add(ctx context.Context, in leave.AddInput) (leave.Leave, error)
	Remove(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, practitionerID *uuid.UUID, upcomingOnly bool) ([]leave.Leave, error)
}

// LeavePreviewer is the conflict detector surface.
type LeavePreviewer interface {
	Preview(ctx context.Context, in leave.AddInput) ([]leave.AffectedAppointment, error)
}

func decodeLeaveRequest(w http.ResponseWriter, r *http.Request) (leave.AddInput, bool) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "could not parse JSON: "+err.Error())
		return leave.AddInput{}, false
	}

	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "practitioner_id must be a valid UUID")
		return leave.AddInput{}, false
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, KindValidation, "date is required")
		return leave.AddInput{}, false
	}

	return leave.AddInput{
		PractitionerID: practitionerID,
		Date:           req.Date,
		FullDay:        req.FullDay,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Reason:         req.Reason,
	}, true
}

// previewLeaveHandler is the pure first phase of the two-phase leave flow:
// it reports which booked visits the candidate leave would invalidate and
// changes nothing. Commit stays a separate call.
func previewLeaveHandler(detector LeavePreviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeLeaveRequest(w, r)
		if !ok {
			return
		}

		affected, err := detector.Preview(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PreviewResponse{Affected: affected, Count: len(affected)})
	}
}

func commitLeaveHandler(svc LeaveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeLeaveRequest(w, r)
		if !ok {
			return
		}

		created, err := svc.Add(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toLeaveResponse(created))
	}
}

func removeLeaveHandler(svc LeaveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "leave id")
		if !ok {
			return
		}

		if err := svc.Remove(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listLeavesHandler(svc LeaveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var practitionerID *uuid.UUID
		if raw := r.URL.Query().Get("practitioner_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, KindValidation, "practitioner_id must be a valid UUID")
				return
			}
			practitionerID = &id
		}
		upcomingOnly := r.URL.Query().Get("upcoming") == "true"

		leaves, err := svc.List(r.Context(), practitionerID, upcomingOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]LeaveResponse, 0, len(leaves))
		for _, l := range leaves {
			out = append(out, toLeaveResponse(l))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
