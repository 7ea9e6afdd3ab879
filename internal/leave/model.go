package leave

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

var (
	ErrReasonRequired = errors.New("leave reason is required")
	ErrInvalidWindow  = errors.New("leave end time must be after start time")
	ErrLeaveNotFound  = errors.New("leave not found")
)

// OverlapError rejects a leave whose window intersects an existing leave for
// the same practitioner and date. Policy is reject, not merge, so the clash
// surfaces to staff for explicit resolution.
type OverlapError struct {
	ExistingID uuid.UUID
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlaps existing leave %s for that date", e.ExistingID)
}

// Leave is a date-scoped absence overriding the weekly template. Partial-day
// leaves carry a time window; full-day leaves block the whole date.
type Leave struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Date           availability.Date
	FullDay        bool
	StartTime      availability.MinuteOfDay
	EndTime        availability.MinuteOfDay
	Reason         string
	CreatedAt      time.Time
}

// Window is the blocked interval: the whole day for full-day leaves.
func (l Leave) Window() availability.Window {
	if l.FullDay {
		return availability.FullDay
	}
	return availability.Window{Start: l.StartTime, End: l.EndTime}
}
