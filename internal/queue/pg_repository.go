package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, clinic_id, practitioner_id, patient_ref, visit_date,
	slot_start_minute, slot_end_minute, token_number, status,
	chief_complaint, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a                Appointment
		visitDate        time.Time
		startMin, endMin int
	)
	err := row.Scan(
		&a.ID, &a.ClinicID, &a.PractitionerID, &a.PatientRef, &visitDate,
		&startMin, &endMin, &a.TokenNumber, &a.Status,
		&a.ChiefComplaint, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = availability.DateOf(visitDate)
	a.SlotStart = availability.MinuteOfDay(startMin)
	a.SlotEnd = availability.MinuteOfDay(endMin)
	return &a, nil
}

// isContention reports whether the error is a transient conflict worth a
// retry: serialization failure, deadlock, or a token uniqueness collision.
func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "23505":
		return true
	}
	return false
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// CreateWithToken allocates the next token for (clinic, practitioner, date)
// and inserts the appointment in one transaction. The counter upsert
// increments and reads atomically, so concurrent registrations get distinct,
// strictly increasing tokens and an aborted insert rolls the token back.
func (r *PgRepository) CreateWithToken(ctx context.Context, in CreateInput) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var token int
	row := tx.QueryRow(ctx, `
		INSERT INTO token_sequences (clinic_id, practitioner_id, for_date, next_number)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (clinic_id, practitioner_id, for_date)
		DO UPDATE SET next_number = token_sequences.next_number + 1
		RETURNING next_number
	`, in.ClinicID, in.PractitionerID, in.Date.Time())
	if err = row.Scan(&token); err != nil {
		if isContention(err) {
			return nil, fmt.Errorf("%w: %v", ErrTxContention, err)
		}
		return nil, fmt.Errorf("allocate token: %w", err)
	}

	id := uuid.New()
	row = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, clinic_id, practitioner_id, patient_ref, visit_date,
			 slot_start_minute, slot_end_minute, token_number, status,
			 chief_complaint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'scheduled', $9, now(), now())
		RETURNING`+appointmentColumns+`
	`, id, in.ClinicID, in.PractitionerID, in.PatientRef, in.Date.Time(),
		int(in.SlotStart), int(in.SlotEnd), token, in.ChiefComplaint)

	appt, err := scanAppointment(row)
	if err != nil {
		if isContention(err) {
			return nil, fmt.Errorf("%w: %v", ErrTxContention, err)
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		if isContention(err) {
			return nil, fmt.Errorf("%w: %v", ErrTxContention, err)
		}
		return nil, fmt.Errorf("commit: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING`+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ListQueue(ctx context.Context, clinicID uuid.UUID, date availability.Date, practitionerID *uuid.UUID) ([]Appointment, error) {
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE clinic_id = $1 AND visit_date = $2`
	args := []any{clinicID, date.Time()}

	if practitionerID != nil {
		args = append(args, *practitionerID)
		query += fmt.Sprintf(" AND practitioner_id = $%d", len(args))
	}
	query += " ORDER BY token_number ASC"

	return r.queryAppointments(ctx, query, args...)
}

func (r *PgRepository) FindActiveByPractitionerAndDate(ctx context.Context, practitionerID uuid.UUID, date availability.Date) ([]Appointment, error) {
	return r.queryAppointments(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND visit_date = $2
		  AND status IN ('scheduled', 'checked_in')
		ORDER BY slot_start_minute ASC, token_number ASC
	`, practitionerID, date.Time())
}

func (r *PgRepository) CountBookedForSlot(ctx context.Context, practitionerID uuid.UUID, date availability.Date, slotStart availability.MinuteOfDay) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE practitioner_id = $1
		  AND visit_date = $2
		  AND slot_start_minute = $3
		  AND status IN ('scheduled', 'checked_in')
	`, practitionerID, date.Time(), int(slotStart)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func (r *PgRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
