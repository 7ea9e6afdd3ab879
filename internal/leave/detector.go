package leave

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

// AffectedAppointment is a booked visit a candidate leave would invalidate.
type AffectedAppointment struct {
	ID           uuid.UUID           `json:"id"`
	TimeSlot     availability.Window `json:"time_slot"`
	PatientLabel string              `json:"patient_label"`
}

// Detector previews the impact of a candidate leave on already-booked visits.
// It is a pure read; committing the leave, and cancelling any affected visit,
// remain separate explicit actions.
type Detector struct {
	appts AppointmentReader
}

func NewDetector(appts AppointmentReader) *Detector {
	return &Detector{appts: appts}
}

// Preview returns every active (scheduled or checked-in) appointment whose
// slot intersects the candidate leave's blocked interval. Completed,
// cancelled and no-show visits are never affected. The result is ordered by
// slot start.
func (d *Detector) Preview(ctx context.Context, in AddInput) ([]AffectedAppointment, error) {
	if !in.FullDay && in.EndTime <= in.StartTime {
		return nil, ErrInvalidWindow
	}
	blocked := in.window()

	visits, err := d.appts.FindActiveByPractitionerAndDate(ctx, in.PractitionerID, in.Date)
	if err != nil {
		return nil, fmt.Errorf("find booked visits: %w", err)
	}

	affected := make([]AffectedAppointment, 0)
	for _, v := range visits {
		slot := availability.Window{Start: v.Start, End: v.End}
		if blocked.Overlaps(slot) {
			affected = append(affected, AffectedAppointment{
				ID:           v.ID,
				TimeSlot:     slot,
				PatientLabel: v.PatientLabel,
			})
		}
	}

	sort.Slice(affected, func(i, j int) bool {
		return affected[i].TimeSlot.Start < affected[j].TimeSlot.Start
	})
	return affected, nil
}
