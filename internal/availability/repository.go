package availability

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains the DB interactions needed by the availability store.
type Repository interface {
	// ReplaceWeek overwrites all seven templates for the practitioner in a
	// single transaction. Partial application is never visible.
	ReplaceWeek(ctx context.Context, practitionerID uuid.UUID, week Week) error

	// GetWeek returns the stored templates for the practitioner. Days never
	// configured come back as zero-value (disabled) templates.
	GetWeek(ctx context.Context, practitionerID uuid.UUID) (Week, error)
}
