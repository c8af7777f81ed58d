package ses

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/ses-pipeline/internal/domain"
)

var (
	// ErrNestedParse means the Message field did not contain a valid JSON
	// event document.
	ErrNestedParse = errors.New("ses: nested event parse failed")

	// ErrUnknownKind means the event names a type the pipeline does not
	// process.
	ErrUnknownKind = errors.New("ses: unknown event kind")

	// ErrMissingCorrelationKey means the event has no mail.messageId to
	// correlate against a sent message.
	ErrMissingCorrelationKey = errors.New("ses: missing correlation key")
)

// Decode parses the inner event JSON from a verified envelope's Message
// field. The event type comes from eventType, falling back to
// notificationType for configurations publishing the older shape. now is
// the fallback timestamp when the event carries none.
func Decode(body string, now time.Time) (*domain.DeliveryEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNestedParse, err)
	}

	kindName := n.EventType
	if kindName == "" {
		kindName = n.NotificationType
	}

	ev := &domain.DeliveryEvent{
		ProviderMessageID: normalizeMessageID(n.Mail.MessageID),
		RawPayload:        json.RawMessage(body),
	}
	if ev.ProviderMessageID == "" {
		return nil, ErrMissingCorrelationKey
	}

	var eventTimestamp string
	switch kindName {
	case "Delivery":
		ev.Kind = domain.KindDelivery
		if n.Delivery != nil {
			eventTimestamp = n.Delivery.Timestamp
		}
	case "Bounce":
		ev.Kind = domain.KindBounce
		ev.BounceType = domain.BounceSoft
		if n.Bounce != nil {
			if n.Bounce.BounceType == "Permanent" {
				ev.BounceType = domain.BounceHard
			}
			eventTimestamp = n.Bounce.Timestamp
			if len(n.Bounce.BouncedRecipients) > 0 {
				ev.Reason = n.Bounce.BouncedRecipients[0].DiagnosticCode
			}
		}
	case "Complaint":
		ev.Kind = domain.KindComplaint
		if n.Complaint != nil {
			eventTimestamp = n.Complaint.Timestamp
			ev.Reason = n.Complaint.ComplaintFeedbackType
		}
	case "DeliveryDelay":
		ev.Kind = domain.KindDeliveryDelay
		if n.DeliveryDelay != nil {
			ev.DelayType = n.DeliveryDelay.DelayType
			eventTimestamp = n.DeliveryDelay.Timestamp
			if len(n.DeliveryDelay.DelayedRecipients) > 0 {
				ev.Reason = n.DeliveryDelay.DelayedRecipients[0].DiagnosticCode
			}
		}
	case "Reject":
		ev.Kind = domain.KindReject
		if n.Reject != nil {
			ev.Reason = n.Reject.Reason
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}

	ev.OccurredAt = parseTimestamp(eventTimestamp, n.Mail.Timestamp, now)
	return ev, nil
}

// normalizeMessageID strips the angle brackets some configurations wrap
// around the provider message id.
func normalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return id
}

// parseTimestamp prefers the event-specific timestamp, then the mail
// timestamp, then the receipt time.
func parseTimestamp(eventTS, mailTS string, now time.Time) time.Time {
	for _, ts := range []string{eventTS, mailTS} {
		if ts == "" {
			continue
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			return parsed
		}
	}
	return now
}
