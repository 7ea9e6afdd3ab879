package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
	"github.com/clinicore/clinic-scheduling/internal/queue"
)

// QueueService is the coordinator surface the HTTP layer needs.
type QueueService interface {
	RegisterWalkIn(ctx context.Context, in queue.RegisterInput) (*queue.Appointment, error)
	BookSlot(ctx context.Context, in queue.BookInput) (*queue.Appointment, error)
	ListQueue(ctx context.Context, clinicID uuid.UUID, date availability.Date, practitionerID *uuid.UUID) ([]queue.QueueEntry, error)
	Transition(ctx context.Context, id uuid.UUID, to queue.Status) (*queue.Appointment, error)
	DaySchedule(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]queue.SlotAvailability, error)
}

func registerWalkInHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterWalkInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "could not parse JSON: "+err.Error())
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "clinic_id must be a valid UUID")
			return
		}
		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "practitioner_id must be a valid UUID")
			return
		}
		if req.PatientRef == "" {
			writeError(w, http.StatusBadRequest, KindValidation, "patient_ref is required")
			return
		}
		if req.Date.IsZero() {
			writeError(w, http.StatusBadRequest, KindValidation, "date is required")
			return
		}

		appt, err := svc.RegisterWalkIn(r.Context(), queue.RegisterInput{
			ClinicID:       clinicID,
			PractitionerID: practitionerID,
			PatientRef:     req.PatientRef,
			Date:           req.Date,
			ChiefComplaint: req.ChiefComplaint,
			Override:       req.Override,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func bookSlotHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "could not parse JSON: "+err.Error())
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "clinic_id must be a valid UUID")
			return
		}
		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "practitioner_id must be a valid UUID")
			return
		}
		if req.PatientRef == "" {
			writeError(w, http.StatusBadRequest, KindValidation, "patient_ref is required")
			return
		}

		appt, err := svc.BookSlot(r.Context(), queue.BookInput{
			ClinicID:       clinicID,
			PractitionerID: practitionerID,
			PatientRef:     req.PatientRef,
			Date:           req.Date,
			SlotStart:      req.SlotStart,
			ChiefComplaint: req.ChiefComplaint,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listQueueHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, ok := pathUUID(w, r, "clinicID", "clinic id")
		if !ok {
			return
		}
		date, err := availability.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, err.Error())
			return
		}

		var practitionerID *uuid.UUID
		if raw := r.URL.Query().Get("practitioner_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, KindValidation, "practitioner_id must be a valid UUID")
				return
			}
			practitionerID = &id
		}

		entries, err := svc.ListQueue(r.Context(), clinicID, date, practitionerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]QueueEntryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, QueueEntryResponse{
				AppointmentResponse: toAppointmentResponse(&entries[i].Appointment),
				WaitingAhead:        entries[i].WaitingAhead,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func dayScheduleHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, ok := pathUUID(w, r, "id", "practitioner id")
		if !ok {
			return
		}
		date, ok := queryDate(w, r, "date")
		if !ok {
			return
		}

		slots, err := svc.DaySchedule(r.Context(), practitionerID, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := DayScheduleResponse{
			PractitionerID: practitionerID,
			Date:           date,
			Slots:          make([]SlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotResponse{
				Start:     s.Slot.Start,
				End:       s.Slot.End,
				Capacity:  s.Capacity,
				Booked:    s.Booked,
				Remaining: s.Remaining,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func transitionStatusHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "appointment id")
		if !ok {
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, KindValidation, "could not parse JSON: "+err.Error())
			return
		}

		status, ok2 := queue.ParseStatus(req.Status)
		if !ok2 {
			writeError(w, http.StatusBadRequest, KindValidation, "unknown status "+req.Status)
			return
		}

		appt, err := svc.Transition(r.Context(), id, status)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
