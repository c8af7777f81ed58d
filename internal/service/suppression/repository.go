package suppression

import (
	"context"

	"github.com/ignite/ses-pipeline/internal/domain"
)

// ListFilter narrows and pages List results.
type ListFilter struct {
	Reason domain.SuppressionReason // empty matches all reasons
	Limit  int
	Offset int
}

// Repository is the persistence contract for the suppression list.
type Repository interface {
	// Insert adds a suppression row. It returns false with no error when the
	// address already has a row, leaving the existing reason in place.
	Insert(ctx context.Context, s *domain.Suppression) (bool, error)

	// Remove deletes the row for an address. Returns ErrNotFound when no row
	// exists.
	Remove(ctx context.Context, email string) error

	// IsSuppressed reports whether an address has a row.
	IsSuppressed(ctx context.Context, email string) (bool, error)

	// Get loads the row for an address. Returns ErrNotFound when absent.
	Get(ctx context.Context, email string) (*domain.Suppression, error)

	// List returns a page of rows plus the total count for the filter.
	List(ctx context.Context, filter ListFilter) ([]domain.Suppression, int, error)

	// CountByReason aggregates row counts per reason.
	CountByReason(ctx context.Context) (map[domain.SuppressionReason]int, error)
}
