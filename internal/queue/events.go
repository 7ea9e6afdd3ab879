package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventRecorder appends audit events that are not tied to one appointment,
// such as leave changes. Satisfies leave.EventSink.
type EventRecorder struct {
	repo Repository
	log  zerolog.Logger
}

func NewEventRecorder(repo Repository, log zerolog.Logger) *EventRecorder {
	return &EventRecorder{repo: repo, log: log}
}

// Record is best-effort: failures are logged and never surface to the caller.
func (r *EventRecorder) Record(ctx context.Context, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	if err := r.repo.InsertEvent(ctx, ev); err != nil {
		r.log.Error().Err(err).Str("event_type", eventType).Msg("insert event log")
	}
}
