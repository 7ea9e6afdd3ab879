package queue

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
	"github.com/clinicore/clinic-scheduling/internal/leave"
)

// VisitReader exposes the queue's appointment storage to the leave conflict
// detector as a read-only port.
type VisitReader struct {
	repo Repository
}

func NewVisitReader(repo Repository) *VisitReader {
	return &VisitReader{repo: repo}
}

func (v *VisitReader) FindActiveByPractitionerAndDate(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]leave.BookedVisit, error) {
	appts, err := v.repo.FindActiveByPractitionerAndDate(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}

	visits := make([]leave.BookedVisit, 0, len(appts))
	for _, a := range appts {
		visits = append(visits, leave.BookedVisit{
			ID:           a.ID,
			Start:        a.SlotStart,
			End:          a.SlotEnd,
			PatientLabel: a.PatientRef,
		})
	}
	return visits, nil
}
