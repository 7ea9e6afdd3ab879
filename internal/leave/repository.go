package leave

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

// ListFilter narrows a leave listing. Nil fields match everything.
type ListFilter struct {
	PractitionerID *uuid.UUID
	Date           *availability.Date // exact date
	From           *availability.Date // date >= From
}

// Repository contains the DB interactions needed by the ledger.
type Repository interface {
	Insert(ctx context.Context, l Leave) (Leave, error)

	// Delete removes a leave by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns leaves matching the filter, ordered by date ascending.
	List(ctx context.Context, filter ListFilter) ([]Leave, error)
}

// BookedVisit is the slice of an appointment the conflict detector needs.
// Status filtering (active visits only) is the reader's responsibility.
type BookedVisit struct {
	ID           uuid.UUID
	Start        availability.MinuteOfDay
	End          availability.MinuteOfDay
	PatientLabel string
}

// AppointmentReader is the read port onto appointment storage. The detector
// never mutates through it.
type AppointmentReader interface {
	FindActiveByPractitionerAndDate(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]BookedVisit, error)
}
