package message

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ses-pipeline/internal/domain"
)

// ErrNotFound is returned when no message matches the provider message id.
var ErrNotFound = errors.New("message: not found")

// Repository is the persistence contract for message state.
type Repository interface {
	// GetByProviderMessageID loads the message correlated with a delivery
	// event. Returns ErrNotFound when no message matches.
	GetByProviderMessageID(ctx context.Context, providerID string) (*domain.Message, error)

	// TransitionStatus atomically moves a message from one status to another.
	// It returns false with no error when the message is no longer in the
	// expected status, meaning a concurrent writer got there first.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (bool, error)

	// SetFirstDeferredAt records the first deferral time. The update only
	// applies when the column is still unset.
	SetFirstDeferredAt(ctx context.Context, id uuid.UUID, at time.Time) error

	// AppendEvent writes one audit row. Events are append-only.
	AppendEvent(ctx context.Context, ev *domain.Event) error
}

// Suppressor records recipients that must not be mailed again. Returns
// false when the address was already suppressed.
type Suppressor interface {
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason) (bool, error)
}
