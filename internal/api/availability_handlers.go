package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

// AvailabilityService is the slice of the availability store the HTTP layer
// needs.
type AvailabilityService interface {
	SetWeek(ctx context.Context, practitionerID uuid.UUID, week availability.Week) error
	GetWeek(ctx context.Context, practitionerID uuid.UUID) (availability.Week, error)
}

func setWeekHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, ok := pathUUID(w, r, "id", "practitioner id")
		if !ok {
			return
		}

		var req SetWeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "could not parse JSON: "+err.Error())
			return
		}

		var week availability.Week
		for i, d := range req.Days {
			week[i] = availability.WeeklyTemplate{
				Enabled:             d.Enabled,
				StartTime:           d.StartTime,
				EndTime:             d.EndTime,
				SlotDurationMinutes: d.SlotDurationMinutes,
				MaxPatientsPerSlot:  d.MaxPatientsPerSlot,
			}
		}

		if err := svc.SetWeek(r.Context(), practitionerID, week); err != nil {
			writeDomainError(w, err)
			return
		}

		saved, err := svc.GetWeek(r.Context(), practitionerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWeekResponse(practitionerID, saved))
	}
}

func getWeekHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, ok := pathUUID(w, r, "id", "practitioner id")
		if !ok {
			return
		}

		week, err := svc.GetWeek(r.Context(), practitionerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWeekResponse(practitionerID, week))
	}
}

// pathUUID parses a UUID chi path parameter, writing the error response
// itself when the value is malformed.
func pathUUID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, label+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryDate parses a required date query parameter.
func queryDate(w http.ResponseWriter, r *http.Request, param string) (availability.Date, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		writeError(w, http.StatusBadRequest, KindValidation, param+" query parameter is required")
		return availability.Date{}, false
	}
	date, err := availability.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, err.Error())
		return availability.Date{}, false
	}
	return date, true
}
