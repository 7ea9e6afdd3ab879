package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
	"github.com/clinicore/clinic-scheduling/internal/leave"
	"github.com/clinicore/clinic-scheduling/internal/queue"
)

// DayTemplate is one weekday's template on the wire. Times are "HH:MM".
type DayTemplate struct {
	Enabled             bool                     `json:"enabled"`
	StartTime           availability.MinuteOfDay `json:"start_time"`
	EndTime             availability.MinuteOfDay `json:"end_time"`
	SlotDurationMinutes int                      `json:"slot_duration_minutes"`
	MaxPatientsPerSlot  int                      `json:"max_patients_per_slot"`
}

// SetWeekRequest carries all seven days, Sunday first. The whole week is
// replaced on every save.
type SetWeekRequest struct {
	Days [7]DayTemplate `json:"days"`
}

type WeekResponse struct {
	PractitionerID uuid.UUID      `json:"practitioner_id"`
	Days           [7]DayTemplate `json:"days"`
}

type SlotResponse struct {
	Start     availability.MinuteOfDay `json:"start"`
	End       availability.MinuteOfDay `json:"end"`
	Capacity  int                      `json:"capacity"`
	Booked    int                      `json:"booked"`
	Remaining int                      `json:"remaining"`
}

type DayScheduleResponse struct {
	PractitionerID uuid.UUID         `json:"practitioner_id"`
	Date           availability.Date `json:"date"`
	Slots          []SlotResponse    `json:"slots"`
}

// LeaveRequest is shared by preview and commit; preview ignores Reason.
type LeaveRequest struct {
	PractitionerID string                   `json:"practitioner_id"`
	Date           availability.Date        `json:"date"`
	FullDay        bool                     `json:"full_day"`
	StartTime      availability.MinuteOfDay `json:"start_time"`
	EndTime        availability.MinuteOfDay `json:"end_time"`
	Reason         string                   `json:"reason"`
}

type LeaveResponse struct {
	ID             uuid.UUID                `json:"id"`
	PractitionerID uuid.UUID                `json:"practitioner_id"`
	Date           availability.Date        `json:"date"`
	FullDay        bool                     `json:"full_day"`
	StartTime      availability.MinuteOfDay `json:"start_time,omitempty"`
	EndTime        availability.MinuteOfDay `json:"end_time,omitempty"`
	Reason         string                   `json:"reason"`
	CreatedAt      time.Time                `json:"created_at"`
}

type PreviewResponse struct {
	Affected []leave.AffectedAppointment `json:"affected"`
	Count    int                         `json:"count"`
}

type RegisterWalkInRequest struct {
	ClinicID       string            `json:"clinic_id"`
	PractitionerID string            `json:"practitioner_id"`
	PatientRef     string            `json:"patient_ref"`
	Date           availability.Date `json:"date"`
	ChiefComplaint *string           `json:"chief_complaint,omitempty"`
	Override       bool              `json:"override,omitempty"`
}

type BookSlotRequest struct {
	ClinicID       string                   `json:"clinic_id"`
	PractitionerID string                   `json:"practitioner_id"`
	PatientRef     string                   `json:"patient_ref"`
	Date           availability.Date        `json:"date"`
	SlotStart      availability.MinuteOfDay `json:"slot_start"`
	ChiefComplaint *string                  `json:"chief_complaint,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID                `json:"id"`
	ClinicID       uuid.UUID                `json:"clinic_id"`
	PractitionerID uuid.UUID                `json:"practitioner_id"`
	PatientRef     string                   `json:"patient_ref"`
	Date           availability.Date        `json:"date"`
	SlotStart      availability.MinuteOfDay `json:"slot_start"`
	SlotEnd        availability.MinuteOfDay `json:"slot_end"`
	TokenNumber    int                      `json:"token_number"`
	Status         string                   `json:"status"`
	ChiefComplaint *string                  `json:"chief_complaint,omitempty"`
}

type QueueEntryResponse struct {
	AppointmentResponse
	WaitingAhead int `json:"waiting_ahead"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

// ErrorResponse is the stable error shape; UI layers localize off kind.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func toLeaveResponse(l leave.Leave) LeaveResponse {
	resp := LeaveResponse{
		ID:             l.ID,
		PractitionerID: l.PractitionerID,
		Date:           l.Date,
		FullDay:        l.FullDay,
		Reason:         l.Reason,
		CreatedAt:      l.CreatedAt,
	}
	if !l.FullDay {
		resp.StartTime = l.StartTime
		resp.EndTime = l.EndTime
	}
	return resp
}

func toAppointmentResponse(a *queue.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		ClinicID:       a.ClinicID,
		PractitionerID: a.PractitionerID,
		PatientRef:     a.PatientRef,
		Date:           a.Date,
		SlotStart:      a.SlotStart,
		SlotEnd:        a.SlotEnd,
		TokenNumber:    a.TokenNumber,
		Status:         string(a.Status),
		ChiefComplaint: a.ChiefComplaint,
	}
}

func toWeekResponse(practitionerID uuid.UUID, week availability.Week) WeekResponse {
	resp := WeekResponse{PractitionerID: practitionerID}
	for i, t := range week {
		resp.Days[i] = DayTemplate{
			Enabled:             t.Enabled,
			StartTime:           t.StartTime,
			EndTime:             t.EndTime,
			SlotDurationMinutes: t.SlotDurationMinutes,
			MaxPatientsPerSlot:  t.MaxPatientsPerSlot,
		}
	}
	return resp
}
