package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AllowedSlotDurations are the slot sizes a template may use, in minutes.
var AllowedSlotDurations = map[int]bool{
	10: true,
	15: true,
	20: true,
	30: true,
	45: true,
	60: true,
}

// WeeklyTemplate is the recurring availability for one practitioner on one
// day of the week. Disabled days carry no bookable slots regardless of the
// stored start/end values.
type WeeklyTemplate struct {
	PractitionerID      uuid.UUID
	Weekday             time.Weekday
	Enabled             bool
	StartTime           MinuteOfDay
	EndTime             MinuteOfDay
	SlotDurationMinutes int
	MaxPatientsPerSlot  int
	UpdatedAt           time.Time
}

// Week holds one template per weekday, indexed by time.Weekday (Sunday=0).
type Week [7]WeeklyTemplate

// Validate checks an enabled template's time range, slot duration and
// capacity. Disabled templates always validate.
func (t WeeklyTemplate) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.EndTime <= t.StartTime {
		return fmt.Errorf("end time %s must be after start time %s", t.EndTime, t.StartTime)
	}
	if t.EndTime > EndOfDay {
		return fmt.Errorf("end time %s is past midnight", t.EndTime)
	}
	if !AllowedSlotDurations[t.SlotDurationMinutes] {
		return fmt.Errorf("slot duration %d minutes is not allowed", t.SlotDurationMinutes)
	}
	if t.MaxPatientsPerSlot < 1 {
		return fmt.Errorf("max patients per slot must be at least 1, got %d", t.MaxPatientsPerSlot)
	}
	return nil
}

// Slot is a single bookable interval within a working day.
type Slot struct {
	Start MinuteOfDay `json:"start"`
	End   MinuteOfDay `json:"end"`
}

// Slots derives the candidate slots for the template by walking
// [StartTime, EndTime) in SlotDurationMinutes steps. A trailing remainder
// shorter than one slot is dropped. Recomputed on every call, never cached.
func (t WeeklyTemplate) Slots() []Slot {
	if !t.Enabled {
		return nil
	}

	step := MinuteOfDay(t.SlotDurationMinutes)
	var slots []Slot
	for start := t.StartTime; start+step <= t.EndTime; start += step {
		slots = append(slots, Slot{Start: start, End: start + step})
	}
	return slots
}

// Window is a half-open [Start, End) interval within a day.
type Window struct {
	Start MinuteOfDay `json:"start"`
	End   MinuteOfDay `json:"end"`
}

// FullDay covers the entire day.
var FullDay = Window{Start: 0, End: EndOfDay}

// Overlaps reports whether two half-open intervals intersect.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

// EffectiveSlots returns the template's slots minus any slot intersecting a
// blocked window. This is the single source of effective availability; there
// is no materialized view to drift from the templates or the leave ledger.
func EffectiveSlots(t WeeklyTemplate, blocked []Window) []Slot {
	candidates := t.Slots()
	if len(blocked) == 0 {
		return candidates
	}

	var out []Slot
	for _, s := range candidates {
		covered := false
		for _, b := range blocked {
			if b.Overlaps(Window{Start: s.Start, End: s.End}) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, s)
		}
	}
	return out
}
