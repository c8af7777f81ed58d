// Package tracking records engagement signals from tracking pixels and
// rewritten links. Opens are recorded at most once per message; every click
// is recorded.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

// ErrUnknownMessage is returned when the tracking reference does not
// resolve to a message.
var ErrUnknownMessage = errors.New("tracking: unknown message")

// OpenResult says what recording an open did.
type OpenResult int

const (
	OpenRecorded OpenResult = iota
	OpenAlreadyRecorded
	OpenUnknownMessage
)

// Repository is the persistence contract for engagement records.
type Repository interface {
	// MessageExists reports whether a message id is known.
	MessageExists(ctx context.Context, id uuid.UUID) (bool, error)

	// InsertClick appends one click record.
	InsertClick(ctx context.Context, click *domain.ClickEvent) error

	// MarkOpened sets the open time if it is still unset. Returns false with
	// no error when an open was already recorded, and ErrUnknownMessage when
	// the message does not exist.
	MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// Service records opens and clicks.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the tracking service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// RecordOpen marks a message opened. The first open per message sticks;
// later opens are acknowledged but not recorded.
func (s *Service) RecordOpen(ctx context.Context, ref string) (OpenResult, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return OpenUnknownMessage, nil
	}

	recorded, err := s.repo.MarkOpened(ctx, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			return OpenUnknownMessage, nil
		}
		return OpenUnknownMessage, fmt.Errorf("mark opened: %w", err)
	}
	if !recorded {
		return OpenAlreadyRecorded, nil
	}

	logger.Info("open recorded", "message_id", id.String())
	return OpenRecorded, nil
}

// RecordClick appends a click record for a message. Unlike opens, every
// click is kept.
func (s *Service) RecordClick(ctx context.Context, ref, targetURL string) error {
	id, err := uuid.Parse(ref)
	if err != nil {
		return ErrUnknownMessage
	}

	exists, err := s.repo.MessageExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check message: %w", err)
	}
	if !exists {
		return ErrUnknownMessage
	}

	click := &domain.ClickEvent{
		ID:        uuid.New(),
		MessageID: id,
		URL:       targetURL,
		ClickedAt: s.now().UTC(),
	}
	if err := s.repo.InsertClick(ctx, click); err != nil {
		return fmt.Errorf("insert click: %w", err)
	}

	logger.Info("click recorded", "message_id", id.String())
	return nil
}
