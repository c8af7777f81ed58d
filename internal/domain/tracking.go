package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClickEvent is one recorded link click. Append-only and unbounded per
// message: repeat clicks on the same link are distinct events.
type ClickEvent struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	URL       string    `json:"url"`
	ClickedAt time.Time `json:"clicked_at"`
}
