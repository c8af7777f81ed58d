// Package postgres implements the persistence contracts against Postgres
// using database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/service/message"
	"github.com/ignite/ses-pipeline/internal/service/tracking"
)

// MessageRepo persists messages, their audit events and engagement records.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo builds a MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// InsertMessage creates a message row.
func (r *MessageRepo) InsertMessage(ctx context.Context, msg *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, provider_message_id, to_email, from_email, subject, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		msg.ID, msg.ProviderMessageID, msg.ToEmail, msg.FromEmail, msg.Subject, msg.Status, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetByProviderMessageID loads a message by its provider correlation key.
func (r *MessageRepo) GetByProviderMessageID(ctx context.Context, providerID string) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, provider_message_id, to_email, from_email, subject, status, opened_at, first_deferred_at, created_at
		FROM messages WHERE provider_message_id = $1`, providerID)

	var msg domain.Message
	err := row.Scan(&msg.ID, &msg.ProviderMessageID, &msg.ToEmail, &msg.FromEmail,
		&msg.Subject, &msg.Status, &msg.OpenedAt, &msg.FirstDeferredAt, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, message.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

// TransitionStatus performs the compare-and-swap status update. The WHERE
// clause on the current status is what makes concurrent webhook deliveries
// safe.
func (r *MessageRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	return n == 1, nil
}

// SetFirstDeferredAt records the first deferral time; later deferrals are
// no-ops thanks to the IS NULL guard.
func (r *MessageRepo) SetFirstDeferredAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET first_deferred_at = $2, updated_at = NOW()
		WHERE id = $1 AND first_deferred_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("set first deferred: %w", err)
	}
	return nil
}

// AppendEvent writes one audit row.
func (r *MessageRepo) AppendEvent(ctx context.Context, ev *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, message_id, kind, bounce_type, delay_type, reason, raw_payload, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.MessageID, ev.Kind,
		nullString(ev.BounceType), nullString(ev.DelayType), nullString(ev.Reason),
		[]byte(ev.RawPayload), ev.OccurredAt, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// MessageExists reports whether a message id is known.
func (r *MessageRepo) MessageExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("message exists: %w", err)
	}
	return exists, nil
}

// InsertClick appends one click record.
func (r *MessageRepo) InsertClick(ctx context.Context, click *domain.ClickEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO click_events (id, message_id, url, clicked_at)
		VALUES ($1, $2, $3, $4)`,
		click.ID, click.MessageID, click.URL, click.ClickedAt)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// MarkOpened sets opened_at if still unset. When the update touches no row
// it distinguishes an already-opened message from an unknown one.
func (r *MessageRepo) MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET opened_at = $2, updated_at = NOW()
		WHERE id = $1 AND opened_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark opened: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark opened: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	exists, err := r.MessageExists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, tracking.ErrUnknownMessage
	}
	return false, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
