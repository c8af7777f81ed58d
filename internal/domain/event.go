package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the delivery-status notifications the pipeline
// accepts. The set is closed: unknown kinds are rejected at decode time.
type EventKind string

const (
	KindDelivery      EventKind = "delivery"
	KindBounce        EventKind = "bounce"
	KindComplaint     EventKind = "complaint"
	KindDeliveryDelay EventKind = "delay"
	KindReject        EventKind = "reject"
)

// Bounce sub-types. Hard bounces suppress the recipient; soft bounces do not.
const (
	BounceHard = "hard"
	BounceSoft = "soft"
)

// DeliveryEvent is one decoded provider notification, normalized for the
// state machine. RawPayload keeps the verified inner payload for audit.
type DeliveryEvent struct {
	Kind              EventKind
	ProviderMessageID string
	BounceType        string // hard or soft, bounce events only
	DelayType         string // delay events only
	Reason            string // diagnostic text, bounce and delay events only
	RawPayload        json.RawMessage
	OccurredAt        time.Time
}

// Event is the append-only audit record of one notification applied to a
// message. Rows are never updated or deleted.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	MessageID  uuid.UUID       `json:"message_id"`
	Kind       EventKind       `json:"kind"`
	BounceType string          `json:"bounce_type,omitempty"`
	DelayType  string          `json:"delay_type,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	RawPayload json.RawMessage `json:"raw_payload"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
}
