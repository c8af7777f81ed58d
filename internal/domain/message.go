package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a sent message.
type Status string

const (
	StatusSent       Status = "sent"
	StatusDelivered  Status = "delivered"
	StatusBounced    Status = "bounced"
	StatusDeferred   Status = "deferred"
	StatusRejected   Status = "rejected"
	StatusComplained Status = "complained"
)

// transitions maps (current status, event kind) to the next status.
// rejected is terminal: no entry leaves it.
var transitions = map[Status]map[EventKind]Status{
	StatusSent: {
		KindDelivery:      StatusDelivered,
		KindBounce:        StatusBounced,
		KindDeliveryDelay: StatusDeferred,
		KindReject:        StatusRejected,
	},
	StatusDeferred: {
		KindDelivery: StatusDelivered,
		KindBounce:   StatusBounced,
	},
	StatusDelivered: {
		KindComplaint: StatusComplained,
	},
}

// NextStatus returns the status a message in current moves to when kind is
// applied, and whether that transition is defined. Undefined pairs, such as
// any event on a rejected message, are ignored by the state machine.
func NextStatus(current Status, kind EventKind) (Status, bool) {
	next, ok := transitions[current][kind]
	return next, ok
}

// Message is a sent-email record tracked by the pipeline. The send workflow
// creates it in status sent; afterwards only the engine mutates status,
// opened_at and first_deferred_at.
type Message struct {
	ID                uuid.UUID  `json:"id"`
	ProviderMessageID string     `json:"provider_message_id"`
	ToEmail           string     `json:"to_email"`
	FromEmail         string     `json:"from_email"`
	Subject           string     `json:"subject"`
	Status            Status     `json:"status"`
	OpenedAt          *time.Time `json:"opened_at,omitempty"`
	FirstDeferredAt   *time.Time `json:"first_deferred_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
