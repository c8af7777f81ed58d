package domain

import (
	"time"

	"github.com/google/uuid"
)

// SuppressionReason enumerates why an address was suppressed.
type SuppressionReason string

const (
	ReasonHardBounce  SuppressionReason = "hard_bounce"
	ReasonComplaint   SuppressionReason = "complaint"
	ReasonUnsubscribe SuppressionReason = "unsubscribe"
	ReasonManual      SuppressionReason = "manual"
)

// Valid reports whether r is a member of the reason enum.
func (r SuppressionReason) Valid() bool {
	switch r {
	case ReasonHardBounce, ReasonComplaint, ReasonUnsubscribe, ReasonManual:
		return true
	}
	return false
}

// Suppression is a standing block preventing further sends to an address.
// At most one active row exists per address; the first reason wins.
type Suppression struct {
	ID        uuid.UUID         `json:"id"`
	Email     string            `json:"email"`
	Reason    SuppressionReason `json:"reason"`
	CreatedAt time.Time         `json:"created_at"`
}
