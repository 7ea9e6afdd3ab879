package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrTxContention marks a transient storage conflict (serialization
	// failure, deadlock) worth retrying before giving up.
	ErrTxContention = errors.New("storage contention, retry")
)

// CreateInput creates an appointment together with its token. The repository
// allocates the token and inserts the row in one transaction: no appointment
// without a token, no token without an appointment.
type CreateInput struct {
	ClinicID       uuid.UUID
	PractitionerID uuid.UUID
	PatientRef     string
	Date           availability.Date
	SlotStart      availability.MinuteOfDay
	SlotEnd        availability.MinuteOfDay
	ChiefComplaint *string
}

// Repository contains all DB interactions needed by the coordinator.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CreateWithToken atomically allocates the next token for
	// (clinic, practitioner, date) and inserts the appointment as scheduled.
	CreateWithToken(ctx context.Context, in CreateInput) (*Appointment, error)

	// UpdateStatus is a compare-and-set: it only applies when the row still
	// has status from, and returns ErrAppointmentNotFound otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// ListQueue returns the day's line ordered by token number ascending.
	ListQueue(ctx context.Context, clinicID uuid.UUID, date availability.Date, practitionerID *uuid.UUID) ([]Appointment, error)

	// FindActiveByPractitionerAndDate returns scheduled and checked-in
	// visits only.
	FindActiveByPractitionerAndDate(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]Appointment, error)

	// CountBookedForSlot counts active visits occupying a template slot.
	CountBookedForSlot(ctx context.Context, practitionerID uuid.UUID, date availability.Date, slotStart availability.MinuteOfDay) (int, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
