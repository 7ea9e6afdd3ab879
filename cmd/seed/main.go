package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/availability"
	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/leave"
	"github.com/clinicore/clinic-scheduling/internal/queue"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicID := uuid.New()
	practitioners := make([]uuid.UUID, 8)
	for i := range practitioners {
		practitioners[i] = uuid.New()
	}
	log.Printf("seeding clinic %s with %d practitioners", clinicID, len(practitioners))

	if err := seedTemplates(context.Background(), pool, practitioners); err != nil {
		log.Fatalf("seed templates: %v", err)
	}
	if err := seedLeaves(context.Background(), pool, practitioners); err != nil {
		log.Fatalf("seed leaves: %v", err)
	}
	if err := seedQueue(context.Background(), pool, clinicID, practitioners); err != nil {
		log.Fatalf("seed queue: %v", err)
	}

	log.Println("seed complete")
}

func seedTemplates(ctx context.Context, pool *pgxpool.Pool, practitioners []uuid.UUID) error {
	repo := availability.NewPgRepository(pool)
	durations := []int{10, 15, 20, 30}

	for _, id := range practitioners {
		var week availability.Week
		for wd := time.Monday; wd <= time.Friday; wd++ {
			start, _ := availability.ParseClock("09:00")
			end, _ := availability.ParseClock("17:00")
			week[wd] = availability.WeeklyTemplate{
				Enabled:             true,
				StartTime:           start,
				EndTime:             end,
				SlotDurationMinutes: durations[gofakeit.Number(0, len(durations)-1)],
				MaxPatientsPerSlot:  gofakeit.Number(1, 3),
			}
		}
		if err := repo.ReplaceWeek(ctx, id, week); err != nil {
			return err
		}
	}

	log.Printf("seeded weekday templates for %d practitioners", len(practitioners))
	return nil
}

func seedLeaves(ctx context.Context, pool *pgxpool.Pool, practitioners []uuid.UUID) error {
	repo := leave.NewPgRepository(pool)
	reasons := []string{
		"Annual leave",
		"Conference",
		"Medical camp",
		"Family emergency",
		"Training day",
	}

	count := 0
	for _, id := range practitioners {
		if gofakeit.Bool() {
			continue
		}
		date := availability.DateOf(time.Now().AddDate(0, 0, gofakeit.Number(1, 21)))
		l := leave.Leave{
			ID:             uuid.New(),
			PractitionerID: id,
			Date:           date,
			FullDay:        gofakeit.Bool(),
			Reason:         reasons[gofakeit.Number(0, len(reasons)-1)],
		}
		if !l.FullDay {
			l.StartTime, _ = availability.ParseClock("13:00")
			l.EndTime, _ = availability.ParseClock("17:00")
		}
		if _, err := repo.Insert(ctx, l); err != nil {
			return err
		}
		count++
	}

	log.Printf("seeded %d leaves", count)
	return nil
}

func seedQueue(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, practitioners []uuid.UUID) error {
	repo := queue.NewPgRepository(pool)
	today := availability.Today()
	nine, _ := availability.ParseClock("09:00")

	count := 0
	for _, id := range practitioners {
		walkIns := gofakeit.Number(2, 6)
		for i := 0; i < walkIns; i++ {
			slotStart := nine + availability.MinuteOfDay(15*i)
			complaint := gofakeit.LoremIpsumSentence(4)
			appt, err := repo.CreateWithToken(ctx, queue.CreateInput{
				ClinicID:       clinicID,
				PractitionerID: id,
				PatientRef:     gofakeit.Name(),
				Date:           today,
				SlotStart:      slotStart,
				SlotEnd:        slotStart + 15,
				ChiefComplaint: &complaint,
			})
			if err != nil {
				return err
			}
			count++

			// Walk a few visits forward so the board looks lived-in.
			if i == 0 {
				if _, err := repo.UpdateStatus(ctx, appt.ID, queue.StatusScheduled, queue.StatusCheckedIn); err != nil {
					return err
				}
			}
		}
	}

	log.Printf("seeded %d queue entries for %s", count, today)
	return nil
}
