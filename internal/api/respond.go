package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicore/clinic-scheduling/internal/availability"
	"github.com/clinicore/clinic-scheduling/internal/leave"
	"github.com/clinicore/clinic-scheduling/internal/queue"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

const (
	KindValidation        = "validation"
	KindConflict          = "conflict"
	KindOutsideHours      = "outside_hours"
	KindInvalidTransition = "invalid_transition"
	KindNotFound          = "not_found"
	KindTransient         = "transient"
	KindInternal          = "internal"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Kind: kind, Message: message})
}

func writeErrorDetails(w http.ResponseWriter, status int, kind, message string, details any) {
	writeJSON(w, status, ErrorResponse{Kind: kind, Message: message, Details: details})
}

// writeDomainError maps engine errors onto the wire taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	var weekErr *availability.WeekValidationError
	if errors.As(err, &weekErr) {
		days := make(map[string]string, len(weekErr.Days))
		for wd, msg := range weekErr.Days {
			days[wd.String()] = msg
		}
		writeErrorDetails(w, http.StatusBadRequest, KindValidation, "weekly template rejected", days)
		return
	}

	var overlapErr *leave.OverlapError
	if errors.As(err, &overlapErr) {
		writeErrorDetails(w, http.StatusConflict, KindConflict, err.Error(),
			map[string]string{"existing_leave_id": overlapErr.ExistingID.String()})
		return
	}

	switch {
	case errors.Is(err, leave.ErrReasonRequired),
		errors.Is(err, leave.ErrInvalidWindow),
		errors.Is(err, queue.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, KindValidation, err.Error())
	case errors.Is(err, queue.ErrOutsideHours),
		errors.Is(err, queue.ErrSlotOnLeave):
		writeError(w, http.StatusConflict, KindOutsideHours, err.Error())
	case errors.Is(err, queue.ErrSlotFull):
		writeError(w, http.StatusConflict, KindConflict, err.Error())
	case errors.Is(err, queue.ErrInvalidTransition):
		writeError(w, http.StatusConflict, KindInvalidTransition, err.Error())
	case errors.Is(err, queue.ErrAppointmentNotFound),
		errors.Is(err, queue.ErrUnknownSlot),
		errors.Is(err, leave.ErrLeaveNotFound):
		writeError(w, http.StatusNotFound, KindNotFound, err.Error())
	case errors.Is(err, queue.ErrQueueBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, KindTransient, "queue is busy, please retry shortly")
	case errors.Is(err, queue.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, KindTransient, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, KindTransient, "request timed out")
	default:
		writeError(w, http.StatusInternalServerError, KindInternal, err.Error())
	}
}
