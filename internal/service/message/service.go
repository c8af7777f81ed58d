package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

// IgnoreReason says why an event produced no status change.
type IgnoreReason string

const (
	IgnoreNone              IgnoreReason = ""
	IgnoreUnknownMessage    IgnoreReason = "unknown_message"
	IgnoreInvalidTransition IgnoreReason = "invalid_transition"
)

// maxApplyRetries bounds the compare-and-swap loop when concurrent webhook
// deliveries race on the same message.
const maxApplyRetries = 3

// Outcome reports what applying one event did.
type Outcome struct {
	Applied   bool
	NewStatus domain.Status
	Ignored   IgnoreReason
}

// Service is the delivery event state machine.
type Service struct {
	repo       Repository
	suppressor Suppressor
}

// NewService builds the state machine service. suppressor may be nil when
// suppression side effects are disabled.
func NewService(repo Repository, suppressor Suppressor) *Service {
	return &Service{repo: repo, suppressor: suppressor}
}

// Apply correlates a decoded event with its message, applies the status
// transition if one is defined, records the event for audit either way, and
// runs side effects only when the transition applied. Events for unknown
// messages are dropped without error.
func (s *Service) Apply(ctx context.Context, ev *domain.DeliveryEvent) (*Outcome, error) {
	msg, err := s.repo.GetByProviderMessageID(ctx, ev.ProviderMessageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Info("event for unknown message dropped",
				"provider_message_id", ev.ProviderMessageID, "kind", string(ev.Kind))
			return &Outcome{Ignored: IgnoreUnknownMessage}, nil
		}
		return nil, fmt.Errorf("load message: %w", err)
	}

	outcome, err := s.applyTransition(ctx, msg, ev)
	if err != nil {
		return nil, err
	}

	if err := s.appendEvent(ctx, msg.ID, ev); err != nil {
		return nil, err
	}

	if outcome.Applied {
		s.runSideEffects(ctx, msg, ev)
	}
	return outcome, nil
}

// applyTransition attempts the status change with a bounded CAS retry loop.
// Losing a race re-fetches the message and re-evaluates the transition from
// the fresh status.
func (s *Service) applyTransition(ctx context.Context, msg *domain.Message, ev *domain.DeliveryEvent) (*Outcome, error) {
	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		next, ok := domain.NextStatus(msg.Status, ev.Kind)
		if !ok {
			logger.Debug("transition not defined, event recorded only",
				"message_id", msg.ID.String(), "status", string(msg.Status), "kind", string(ev.Kind))
			return &Outcome{NewStatus: msg.Status, Ignored: IgnoreInvalidTransition}, nil
		}

		applied, err := s.repo.TransitionStatus(ctx, msg.ID, msg.Status, next)
		if err != nil {
			return nil, fmt.Errorf("transition status: %w", err)
		}
		if applied {
			msg.Status = next
			logger.Info("message status updated",
				"message_id", msg.ID.String(), "status", string(next), "kind", string(ev.Kind))
			return &Outcome{Applied: true, NewStatus: next}, nil
		}

		// Lost the race; reload and retry from the current status.
		fresh, err := s.repo.GetByProviderMessageID(ctx, ev.ProviderMessageID)
		if err != nil {
			return nil, fmt.Errorf("reload message: %w", err)
		}
		*msg = *fresh
	}

	return &Outcome{NewStatus: msg.Status, Ignored: IgnoreInvalidTransition}, nil
}

func (s *Service) appendEvent(ctx context.Context, messageID uuid.UUID, ev *domain.DeliveryEvent) error {
	record := &domain.Event{
		ID:         uuid.New(),
		MessageID:  messageID,
		Kind:       ev.Kind,
		BounceType: ev.BounceType,
		DelayType:  ev.DelayType,
		Reason:     ev.Reason,
		RawPayload: ev.RawPayload,
		OccurredAt: ev.OccurredAt,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.AppendEvent(ctx, record); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// runSideEffects handles the consequences of an applied transition. Side
// effect failures are logged and swallowed: the status change already
// committed and the webhook must still acknowledge.
func (s *Service) runSideEffects(ctx context.Context, msg *domain.Message, ev *domain.DeliveryEvent) {
	switch {
	case ev.Kind == domain.KindDeliveryDelay:
		if err := s.repo.SetFirstDeferredAt(ctx, msg.ID, ev.OccurredAt); err != nil {
			logger.Error("record first deferral failed",
				"message_id", msg.ID.String(), "error", err.Error())
		}
	case ev.Kind == domain.KindBounce && ev.BounceType == domain.BounceHard:
		s.suppress(ctx, msg.ToEmail, domain.ReasonHardBounce)
	case ev.Kind == domain.KindComplaint:
		s.suppress(ctx, msg.ToEmail, domain.ReasonComplaint)
	}
}

func (s *Service) suppress(ctx context.Context, email string, reason domain.SuppressionReason) {
	if s.suppressor == nil {
		return
	}
	added, err := s.suppressor.Suppress(ctx, email, reason)
	if err != nil {
		logger.Error("suppression side effect failed",
			"recipient", email, "reason", string(reason), "error", err.Error())
		return
	}
	if added {
		logger.Info("recipient suppressed", "recipient", email, "reason", string(reason))
	}
}
