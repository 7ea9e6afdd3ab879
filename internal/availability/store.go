package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WeekValidationError reports which days of a setWeek call failed validation.
// The whole call is rejected; no day is applied.
type WeekValidationError struct {
	Days map[time.Weekday]string
}

func (e *WeekValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid weekly template:")
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if msg, ok := e.Days[wd]; ok {
			fmt.Fprintf(&b, " %s: %s;", wd, msg)
		}
	}
	return strings.TrimSuffix(b.String(), ";")
}

// Store manages recurring weekly availability templates.
type Store struct {
	repo Repository
	log  zerolog.Logger
}

func NewStore(repo Repository, log zerolog.Logger) *Store {
	return &Store{repo: repo, log: log}
}

// SetWeek validates and replaces the practitioner's full week. Validation
// failures come back as a per-day error map and nothing is written.
func (s *Store) SetWeek(ctx context.Context, practitionerID uuid.UUID, week Week) error {
	dayErrs := make(map[time.Weekday]string)
	for i := range week {
		week[i].PractitionerID = practitionerID
		week[i].Weekday = time.Weekday(i)
		if err := week[i].Validate(); err != nil {
			dayErrs[time.Weekday(i)] = err.Error()
		}
	}
	if len(dayErrs) > 0 {
		return &WeekValidationError{Days: dayErrs}
	}

	if err := s.repo.ReplaceWeek(ctx, practitionerID, week); err != nil {
		return fmt.Errorf("replace week: %w", err)
	}

	s.log.Info().
		Str("practitioner_id", practitionerID.String()).
		Msg("weekly templates replaced")

	return nil
}

// GetWeek returns the practitioner's seven templates, with disabled defaults
// for days that were never configured.
func (s *Store) GetWeek(ctx context.Context, practitionerID uuid.UUID) (Week, error) {
	week, err := s.repo.GetWeek(ctx, practitionerID)
	if err != nil {
		return Week{}, fmt.Errorf("get week: %w", err)
	}

	for i := range week {
		week[i].PractitionerID = practitionerID
		week[i].Weekday = time.Weekday(i)
	}
	return week, nil
}

// TemplateFor returns the template governing a specific calendar date.
func (s *Store) TemplateFor(ctx context.Context, practitionerID uuid.UUID, date Date) (WeeklyTemplate, error) {
	week, err := s.GetWeek(ctx, practitionerID)
	if err != nil {
		return WeeklyTemplate{}, err
	}
	return week[date.Weekday()], nil
}

// SlotsFor derives the candidate slots for the date from the weekly template,
// before any leave is subtracted. Empty when the day is disabled.
func (s *Store) SlotsFor(ctx context.Context, practitionerID uuid.UUID, date Date) ([]Slot, error) {
	tmpl, err := s.TemplateFor(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}
	return tmpl.Slots(), nil
}
