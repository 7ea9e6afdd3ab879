package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/availability"
	"github.com/clinicore/clinic-scheduling/internal/config"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

const (
	EventWalkInRegistered = "WALKIN_REGISTERED"
	EventSlotBooked       = "SLOT_BOOKED"
	EventStatusChanged    = "STATUS_CHANGED"
)

var (
	ErrOutsideHours  = errors.New("practitioner has no effective availability on that date")
	ErrSlotFull      = errors.New("slot is at capacity")
	ErrUnknownSlot   = errors.New("no such slot in the practitioner's template")
	ErrSlotOnLeave   = errors.New("slot is blocked by a leave")
	ErrQueueBusy     = errors.New("queue is busy, please retry")
	ErrTransient     = errors.New("registration did not complete, please retry")
	ErrUnknownStatus = errors.New("unknown status")
)

// TemplateSource supplies the weekly template governing a date.
type TemplateSource interface {
	TemplateFor(ctx context.Context, practitionerID uuid.UUID, date availability.Date) (availability.WeeklyTemplate, error)
}

// LeaveSource supplies the blocked windows for a practitioner and date.
type LeaveSource interface {
	BlockedWindows(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]availability.Window, error)
}

// Coordinator runs the same-day queue: it assigns tokens, places visits into
// slots and drives them through the status machine.
type Coordinator struct {
	repo      Repository
	templates TemplateSource
	leaves    LeaveSource
	locker    redisclient.Locker
	cfg       config.Config
	log       zerolog.Logger
}

func NewCoordinator(repo Repository, templates TemplateSource, leaves LeaveSource, locker redisclient.Locker, cfg config.Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		repo:      repo,
		templates: templates,
		leaves:    leaves,
		locker:    locker,
		cfg:       cfg,
		log:       log,
	}
}

// RegisterInput registers a walk-in. Override asks to bypass the
// effective-availability check; it is only honored when the deployment
// enables ALLOW_OUTSIDE_HOURS.
type RegisterInput struct {
	ClinicID       uuid.UUID
	PractitionerID uuid.UUID
	PatientRef     string
	Date           availability.Date
	ChiefComplaint *string
	Override       bool
}

// RegisterWalkIn assigns the next token for (clinic, practitioner, date) and
// creates the visit in scheduled status. Token allocation and appointment
// creation are one transaction; concurrent registrations serialize on the
// queue lock so no token is ever duplicated or lost.
func (c *Coordinator) RegisterWalkIn(ctx context.Context, in RegisterInput) (*Appointment, error) {
	tmpl, err := c.templates.TemplateFor(ctx, in.PractitionerID, in.Date)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	blocked, err := c.leaves.BlockedWindows(ctx, in.PractitionerID, in.Date)
	if err != nil {
		return nil, fmt.Errorf("load leave windows: %w", err)
	}

	effective := availability.EffectiveSlots(tmpl, blocked)
	if len(effective) == 0 {
		if !(c.cfg.AllowOutsideHours && in.Override) {
			return nil, ErrOutsideHours
		}
	}

	// A walk-in is not pinned to one slot; it occupies the working window
	// and is seen in token order.
	window := availability.FullDay
	if tmpl.Enabled {
		window = availability.Window{Start: tmpl.StartTime, End: tmpl.EndTime}
	}

	var created *Appointment
	err = c.locker.WithQueueLock(ctx, in.ClinicID, in.PractitionerID, in.Date.String(), func(lockCtx context.Context) error {
		appt, err := c.createWithRetry(lockCtx, CreateInput{
			ClinicID:       in.ClinicID,
			PractitionerID: in.PractitionerID,
			PatientRef:     in.PatientRef,
			Date:           in.Date,
			SlotStart:      window.Start,
			SlotEnd:        window.End,
			ChiefComplaint: in.ChiefComplaint,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrQueueBusy
		}
		return nil, err
	}

	c.logEvent(ctx, created.ID, EventWalkInRegistered, map[string]any{
		"clinic_id":       in.ClinicID.String(),
		"practitioner_id": in.PractitionerID.String(),
		"date":            in.Date.String(),
		"token_number":    created.TokenNumber,
		"override":        in.Override,
	})

	c.log.Info().
		Str("appointment_id", created.ID.String()).
		Int("token_number", created.TokenNumber).
		Str("date", in.Date.String()).
		Msg("walk-in registered")

	return created, nil
}

// BookInput places a patient into a specific template slot.
type BookInput struct {
	ClinicID       uuid.UUID
	PractitionerID uuid.UUID
	PatientRef     string
	Date           availability.Date
	SlotStart      availability.MinuteOfDay
	ChiefComplaint *string
}

// BookSlot creates a scheduled visit in a concrete template slot, after
// capacity and leave checks. The booked visit joins the same token sequence
// as walk-ins, so the day's queue is a single line.
func (c *Coordinator) BookSlot(ctx context.Context, in BookInput) (*Appointment, error) {
	tmpl, err := c.templates.TemplateFor(ctx, in.PractitionerID, in.Date)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if !tmpl.Enabled {
		return nil, ErrOutsideHours
	}

	var slot *availability.Slot
	for _, s := range tmpl.Slots() {
		if s.Start == in.SlotStart {
			slot = &s
			break
		}
	}
	if slot == nil {
		return nil, ErrUnknownSlot
	}

	blocked, err := c.leaves.BlockedWindows(ctx, in.PractitionerID, in.Date)
	if err != nil {
		return nil, fmt.Errorf("load leave windows: %w", err)
	}
	for _, b := range blocked {
		if b.Overlaps(availability.Window{Start: slot.Start, End: slot.End}) {
			return nil, ErrSlotOnLeave
		}
	}

	var created *Appointment
	err = c.locker.WithQueueLock(ctx, in.ClinicID, in.PractitionerID, in.Date.String(), func(lockCtx context.Context) error {
		booked, err := c.repo.CountBookedForSlot(lockCtx, in.PractitionerID, in.Date, slot.Start)
		if err != nil {
			return fmt.Errorf("count booked for slot: %w", err)
		}
		if booked >= tmpl.MaxPatientsPerSlot {
			return ErrSlotFull
		}

		appt, err := c.createWithRetry(lockCtx, CreateInput{
			ClinicID:       in.ClinicID,
			PractitionerID: in.PractitionerID,
			PatientRef:     in.PatientRef,
			Date:           in.Date,
			SlotStart:      slot.Start,
			SlotEnd:        slot.End,
			ChiefComplaint: in.ChiefComplaint,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrQueueBusy
		}
		return nil, err
	}

	c.logEvent(ctx, created.ID, EventSlotBooked, map[string]any{
		"slot_start":   created.SlotStart.String(),
		"slot_end":     created.SlotEnd.String(),
		"token_number": created.TokenNumber,
	})

	return created, nil
}

// createWithRetry retries CreateWithToken on transient storage contention
// with bounded attempts. Validation and business failures surface at once.
func (c *Coordinator) createWithRetry(ctx context.Context, in CreateInput) (*Appointment, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.TokenRetryAttempts; attempt++ {
		appt, err := c.repo.CreateWithToken(ctx, in)
		if err == nil {
			return appt, nil
		}
		if !errors.Is(err, ErrTxContention) {
			return nil, fmt.Errorf("create appointment: %w", err)
		}
		lastErr = err

		c.log.Warn().
			Int("attempt", attempt).
			Str("date", in.Date.String()).
			Msg("token allocation contention, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.TokenRetryBackoff):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrTransient, lastErr)
}

// ListQueue returns the visible line for a clinic and date, ordered by token
// number, optionally filtered to one practitioner. WaitingAhead counts only
// active (scheduled or checked-in) entries with a lower token.
func (c *Coordinator) ListQueue(ctx context.Context, clinicID uuid.UUID, date availability.Date, practitionerID *uuid.UUID) ([]QueueEntry, error) {
	appts, err := c.repo.ListQueue(ctx, clinicID, date, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}

	entries := make([]QueueEntry, 0, len(appts))
	ahead := 0
	for _, a := range appts {
		entries = append(entries, QueueEntry{Appointment: a, WaitingAhead: ahead})
		if a.Status == StatusScheduled || a.Status == StatusCheckedIn {
			ahead++
		}
	}
	return entries, nil
}

// SlotAvailability is one effective slot with its occupancy.
type SlotAvailability struct {
	Slot      availability.Slot
	Capacity  int
	Booked    int
	Remaining int
}

// DaySchedule returns the practitioner's effective slots for a date (weekly
// template minus leave) with per-slot remaining capacity. Derived fresh on
// every call; template edits affect future queries, never past visits.
func (c *Coordinator) DaySchedule(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]SlotAvailability, error) {
	tmpl, err := c.templates.TemplateFor(ctx, practitionerID, date)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	blocked, err := c.leaves.BlockedWindows(ctx, practitionerID, date)
	if err != nil {
		return nil, fmt.Errorf("load leave windows: %w", err)
	}

	slots := availability.EffectiveSlots(tmpl, blocked)
	out := make([]SlotAvailability, 0, len(slots))
	for _, s := range slots {
		booked, err := c.repo.CountBookedForSlot(ctx, practitionerID, date, s.Start)
		if err != nil {
			return nil, fmt.Errorf("count booked for slot: %w", err)
		}
		remaining := tmpl.MaxPatientsPerSlot - booked
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, SlotAvailability{
			Slot:      s,
			Capacity:  tmpl.MaxPatientsPerSlot,
			Booked:    booked,
			Remaining: remaining,
		})
	}
	return out, nil
}

// Transition moves a visit one step through the status machine. Repeating a
// terminal-setting call is a safe no-op; every other illegal move fails with
// ErrInvalidTransition.
func (c *Coordinator) Transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	appt, err := c.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == to && IsTerminal(to) {
		return appt, nil
	}
	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := c.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a compare-and-set race; re-read to stay idempotent.
			current, readErr := c.repo.GetAppointmentByID(ctx, id)
			if readErr != nil {
				return nil, readErr
			}
			if current.Status == to {
				return current, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	c.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	c.log.Info().
		Str("appointment_id", id.String()).
		Str("from", string(appt.Status)).
		Str("to", string(to)).
		Msg("status transition")

	return updated, nil
}

// logEvent appends to the audit trail. Failures are logged, never fatal.
func (c *Coordinator) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := c.repo.InsertEvent(ctx, ev); err != nil {
		c.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
