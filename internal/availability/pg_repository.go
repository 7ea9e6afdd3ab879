package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) ReplaceWeek(ctx context.Context, practitionerID uuid.UUID, week Week) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		DELETE FROM weekly_templates
		WHERE practitioner_id = $1
	`, practitionerID); err != nil {
		return fmt.Errorf("clear weekly templates: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range week {
		batch.Queue(`
			INSERT INTO weekly_templates
				(practitioner_id, weekday, enabled, start_minute, end_minute,
				 slot_duration_minutes, max_patients_per_slot, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		`, practitionerID, int(t.Weekday), t.Enabled, int(t.StartTime), int(t.EndTime),
			t.SlotDurationMinutes, t.MaxPatientsPerSlot)
	}

	br := tx.SendBatch(ctx, batch)
	for range week {
		if _, err = br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert weekly template: %w", err)
		}
	}
	if err = br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PgRepository) GetWeek(ctx context.Context, practitionerID uuid.UUID) (Week, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, enabled, start_minute, end_minute,
		       slot_duration_minutes, max_patients_per_slot, updated_at
		FROM weekly_templates
		WHERE practitioner_id = $1
	`, practitionerID)
	if err != nil {
		return Week{}, err
	}
	defer rows.Close()

	var week Week
	for rows.Next() {
		var (
			weekday          int
			startMin, endMin int
			t                WeeklyTemplate
			updatedAt        time.Time
		)
		if err := rows.Scan(&weekday, &t.Enabled, &startMin, &endMin,
			&t.SlotDurationMinutes, &t.MaxPatientsPerSlot, &updatedAt); err != nil {
			return Week{}, err
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		t.PractitionerID = practitionerID
		t.Weekday = time.Weekday(weekday)
		t.StartTime = MinuteOfDay(startMin)
		t.EndTime = MinuteOfDay(endMin)
		t.UpdatedAt = updatedAt
		week[weekday] = t
	}

	if err := rows.Err(); err != nil {
		return Week{}, err
	}
	return week, nil
}
