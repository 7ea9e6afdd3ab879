package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Availability AvailabilityService
	Leaves       LeaveService
	Previewer    LeavePreviewer
	Queue        QueueService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
	Log          zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Weekly availability
	r.Put("/practitioners/{id}/week", setWeekHandler(cfg.Availability))
	r.Get("/practitioners/{id}/week", getWeekHandler(cfg.Availability))
	r.Get("/practitioners/{id}/slots", dayScheduleHandler(cfg.Queue))

	// Leave: preview is pure, commit is the separate second phase
	r.Post("/leaves/preview", previewLeaveHandler(cfg.Previewer))
	r.Post("/leaves", commitLeaveHandler(cfg.Leaves))
	r.Delete("/leaves/{id}", removeLeaveHandler(cfg.Leaves))
	r.Get("/leaves", listLeavesHandler(cfg.Leaves))

	// Walk-in queue and status machine
	r.Post("/queue/register", registerWalkInHandler(cfg.Queue))
	r.Post("/queue/book", bookSlotHandler(cfg.Queue))
	r.Get("/queue/{clinicID}/{date}", listQueueHandler(cfg.Queue))
	r.Post("/appointments/{id}/status", transitionStatusHandler(cfg.Queue))

	return r
}
