package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusCheckedIn  Status = "checked_in"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ParseStatus maps a wire value to a known status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusScheduled, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(s), true
	}
	return "", false
}

// Appointment is a visit in the day's queue, whether booked into a template
// slot or registered as a walk-in. Rows are never deleted; cancelled and
// no-show visits stay behind as audit history.
type Appointment struct {
	ID             uuid.UUID
	ClinicID       uuid.UUID
	PractitionerID uuid.UUID
	PatientRef     string
	Date           availability.Date
	SlotStart      availability.MinuteOfDay
	SlotEnd        availability.MinuteOfDay
	TokenNumber    int
	Status         Status
	ChiefComplaint *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// QueueEntry is an appointment with its position context in the visible line.
type QueueEntry struct {
	Appointment
	WaitingAhead int
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
