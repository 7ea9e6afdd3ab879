package leave

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

// AddInput is a candidate leave. StartTime/EndTime are ignored for full-day
// leaves.
type AddInput struct {
	PractitionerID uuid.UUID
	Date           availability.Date
	FullDay        bool
	StartTime      availability.MinuteOfDay
	EndTime        availability.MinuteOfDay
	Reason         string
}

func (in AddInput) validate() error {
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	if !in.FullDay && in.EndTime <= in.StartTime {
		return ErrInvalidWindow
	}
	return nil
}

func (in AddInput) window() availability.Window {
	if in.FullDay {
		return availability.FullDay
	}
	return availability.Window{Start: in.StartTime, End: in.EndTime}
}

const (
	EventLeaveCommitted = "LEAVE_COMMITTED"
	EventLeaveRemoved   = "LEAVE_REMOVED"
)

// EventSink receives best-effort audit events. Implementations must not fail
// the calling operation.
type EventSink interface {
	Record(ctx context.Context, eventType string, payload map[string]any)
}

// Ledger manages date-scoped leave records. Past leaves are kept as history
// and only ever removed by explicit staff deletion.
type Ledger struct {
	repo   Repository
	events EventSink
	log    zerolog.Logger
}

// NewLedger creates a ledger. A nil events sink disables the audit trail.
func NewLedger(repo Repository, events EventSink, log zerolog.Logger) *Ledger {
	return &Ledger{repo: repo, events: events, log: log}
}

// Add commits a leave. Overlapping leave for the same practitioner and date
// is rejected; a full-day leave clashes with any existing window and vice
// versa.
func (g *Ledger) Add(ctx context.Context, in AddInput) (Leave, error) {
	if err := in.validate(); err != nil {
		return Leave{}, err
	}

	date := in.Date
	existing, err := g.repo.List(ctx, ListFilter{PractitionerID: &in.PractitionerID, Date: &date})
	if err != nil {
		return Leave{}, fmt.Errorf("check existing leave: %w", err)
	}
	for _, l := range existing {
		if l.Window().Overlaps(in.window()) {
			return Leave{}, &OverlapError{ExistingID: l.ID}
		}
	}

	created, err := g.repo.Insert(ctx, Leave{
		ID:             uuid.New(),
		PractitionerID: in.PractitionerID,
		Date:           in.Date,
		FullDay:        in.FullDay,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Reason:         strings.TrimSpace(in.Reason),
	})
	if err != nil {
		return Leave{}, fmt.Errorf("insert leave: %w", err)
	}

	if g.events != nil {
		g.events.Record(ctx, EventLeaveCommitted, map[string]any{
			"leave_id":        created.ID.String(),
			"practitioner_id": created.PractitionerID.String(),
			"date":            created.Date.String(),
			"full_day":        created.FullDay,
		})
	}

	g.log.Info().
		Str("leave_id", created.ID.String()).
		Str("practitioner_id", created.PractitionerID.String()).
		Str("date", created.Date.String()).
		Bool("full_day", created.FullDay).
		Msg("leave committed")

	return created, nil
}

// Remove deletes a leave by id. Removing an id that no longer exists is a
// no-op success, so a double-clicked delete button stays harmless.
func (g *Ledger) Remove(ctx context.Context, id uuid.UUID) error {
	if err := g.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete leave: %w", err)
	}
	if g.events != nil {
		g.events.Record(ctx, EventLeaveRemoved, map[string]any{"leave_id": id.String()})
	}
	g.log.Info().Str("leave_id", id.String()).Msg("leave removed")
	return nil
}

// List returns leaves ordered by date ascending, optionally scoped to one
// practitioner and to dates from today onward.
func (g *Ledger) List(ctx context.Context, practitionerID *uuid.UUID, upcomingOnly bool) ([]Leave, error) {
	filter := ListFilter{PractitionerID: practitionerID}
	if upcomingOnly {
		today := availability.Today()
		filter.From = &today
	}

	leaves, err := g.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	return leaves, nil
}

// BlockedWindows returns the blocked intervals for a practitioner on a date,
// for subtraction from the weekly template.
func (g *Ledger) BlockedWindows(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]availability.Window, error) {
	leaves, err := g.repo.List(ctx, ListFilter{PractitionerID: &practitionerID, Date: &date})
	if err != nil {
		return nil, fmt.Errorf("list leaves for date: %w", err)
	}

	windows := make([]availability.Window, 0, len(leaves))
	for _, l := range leaves {
		windows = append(windows, l.Window())
	}
	return windows, nil
}
