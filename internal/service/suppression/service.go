package suppression

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/pkg/emailutil"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

// Service manages the suppression list. cache may be nil, in which case
// every check hits the repository.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService builds the suppression service.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Suppress adds an address to the list. Returns false with no error when the
// address was already suppressed: the original reason stands.
func (s *Service) Suppress(ctx context.Context, email string, reason domain.SuppressionReason) (bool, error) {
	email = emailutil.Normalize(email)
	if !emailutil.Valid(email) {
		return false, ErrInvalidEmail
	}
	if !reason.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidReason, reason)
	}

	added, err := s.repo.Insert(ctx, &domain.Suppression{
		ID:        uuid.New(),
		Email:     email,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("insert suppression: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, email, true)
	}
	if added {
		logger.Info("address suppressed", "recipient", email, "reason", string(reason))
	}
	return added, nil
}

// Remove deletes an address from the list.
func (s *Service) Remove(ctx context.Context, email string) error {
	email = emailutil.Normalize(email)
	if err := s.repo.Remove(ctx, email); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Set(ctx, email, false)
	}
	logger.Info("address unsuppressed", "recipient", email)
	return nil
}

// IsSuppressed reports whether an address may not be mailed. The cache is
// consulted first; a miss falls through to the repository and backfills.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	email = emailutil.Normalize(email)

	if s.cache != nil {
		if suppressed, ok := s.cache.Get(ctx, email); ok {
			return suppressed, nil
		}
	}

	suppressed, err := s.repo.IsSuppressed(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check suppression: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, email, suppressed)
	}
	return suppressed, nil
}

// Check loads the full suppression record for an address. Returns
// ErrNotFound when the address is not suppressed.
func (s *Service) Check(ctx context.Context, email string) (*domain.Suppression, error) {
	return s.repo.Get(ctx, emailutil.Normalize(email))
}

// List returns a page of suppressions and the total matching count. A
// non-positive limit defaults to 50, capped at 500.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.Suppression, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Reason != "" && !filter.Reason.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidReason, filter.Reason)
	}
	return s.repo.List(ctx, filter)
}

// Stats aggregates suppression counts per reason.
func (s *Service) Stats(ctx context.Context) (map[domain.SuppressionReason]int, error) {
	return s.repo.CountByReason(ctx)
}
