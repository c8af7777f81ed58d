package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/service/suppression"
)

// SuppressionRepo persists the suppression list.
type SuppressionRepo struct {
	db *sql.DB
}

// NewSuppressionRepo builds a SuppressionRepo.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo {
	return &SuppressionRepo{db: db}
}

// Insert adds a suppression row. ON CONFLICT DO NOTHING makes concurrent
// suppressions of the same address race-free and first-reason-wins.
func (r *SuppressionRepo) Insert(ctx context.Context, s *domain.Suppression) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO suppressions (id, email, reason, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING`,
		s.ID, s.Email, s.Reason, s.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert suppression: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert suppression: %w", err)
	}
	return n == 1, nil
}

// Remove deletes the row for an address.
func (r *SuppressionRepo) Remove(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM suppressions WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("remove suppression: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove suppression: %w", err)
	}
	if n == 0 {
		return suppression.ErrNotFound
	}
	return nil
}

// IsSuppressed reports whether an address has a row.
func (r *SuppressionRepo) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM suppressions WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check suppression: %w", err)
	}
	return exists, nil
}

// Get loads the row for an address.
func (r *SuppressionRepo) Get(ctx context.Context, email string) (*domain.Suppression, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, reason, created_at FROM suppressions WHERE email = $1`, email)

	var s domain.Suppression
	if err := row.Scan(&s.ID, &s.Email, &s.Reason, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, suppression.ErrNotFound
		}
		return nil, fmt.Errorf("get suppression: %w", err)
	}
	return &s, nil
}

// List returns a page of rows plus the total count for the filter.
func (r *SuppressionRepo) List(ctx context.Context, filter suppression.ListFilter) ([]domain.Suppression, int, error) {
	where := ""
	countArgs := []any{}
	if filter.Reason != "" {
		where = "WHERE reason = $1"
		countArgs = append(countArgs, filter.Reason)
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM suppressions "+where, countArgs...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count suppressions: %w", err)
	}

	args := append([]any{}, countArgs...)
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, email, reason, created_at FROM suppressions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(countArgs)+1, len(countArgs)+2)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suppression
	for rows.Next() {
		var s domain.Suppression
		if err := rows.Scan(&s.ID, &s.Email, &s.Reason, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan suppression: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list suppressions: %w", err)
	}
	return out, total, nil
}

// CountByReason aggregates row counts per reason.
func (r *SuppressionRepo) CountByReason(ctx context.Context) (map[domain.SuppressionReason]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM suppressions GROUP BY reason`)
	if err != nil {
		return nil, fmt.Errorf("count by reason: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.SuppressionReason]int)
	for rows.Next() {
		var reason domain.SuppressionReason
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by reason: %w", err)
	}
	return counts, nil
}
