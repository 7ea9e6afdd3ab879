package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/availability"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanLeave(row pgx.Row) (Leave, error) {
	var (
		l                Leave
		date             time.Time
		startMin, endMin int
	)
	err := row.Scan(&l.ID, &l.PractitionerID, &date, &l.FullDay,
		&startMin, &endMin, &l.Reason, &l.CreatedAt)
	if err != nil {
		return Leave{}, err
	}
	l.Date = availability.DateOf(date)
	l.StartTime = availability.MinuteOfDay(startMin)
	l.EndTime = availability.MinuteOfDay(endMin)
	return l, nil
}

func (r *PgRepository) Insert(ctx context.Context, l Leave) (Leave, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leaves
			(id, practitioner_id, leave_date, full_day, start_minute, end_minute, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, practitioner_id, leave_date, full_day, start_minute, end_minute, reason, created_at
	`, l.ID, l.PractitionerID, l.Date.Time(), l.FullDay, int(l.StartTime), int(l.EndTime), l.Reason)

	return scanLeave(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Absent rows are fine, the UI may double-submit deletes.
	_, err := r.pool.Exec(ctx, `DELETE FROM leaves WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete leave: %w", err)
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, filter ListFilter) ([]Leave, error) {
	query := `
		SELECT id, practitioner_id, leave_date, full_day, start_minute, end_minute, reason, created_at
		FROM leaves
		WHERE 1=1`
	args := []any{}

	if filter.PractitionerID != nil {
		args = append(args, *filter.PractitionerID)
		query += fmt.Sprintf(" AND practitioner_id = $%d", len(args))
	}
	if filter.Date != nil {
		args = append(args, filter.Date.Time())
		query += fmt.Sprintf(" AND leave_date = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, filter.From.Time())
		query += fmt.Sprintf(" AND leave_date >= $%d", len(args))
	}
	query += " ORDER BY leave_date ASC, created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
