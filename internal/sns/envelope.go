// Package sns verifies signed notification envelopes delivered to the
// webhook endpoint before any payload is trusted.
package sns

// Envelope message types.
const (
	TypeNotification             = "Notification"
	TypeSubscriptionConfirmation = "SubscriptionConfirmation"
	TypeUnsubscribeConfirmation  = "UnsubscribeConfirmation"
)

// Envelope is the outer signed document posted to the webhook. The Message
// field carries the JSON-encoded delivery event as a string.
type Envelope struct {
	Type             string `json:"Type"`
	MessageID        string `json:"MessageId"`
	TopicARN         string `json:"TopicArn"`
	Subject          string `json:"Subject,omitempty"`
	Message          string `json:"Message"`
	Timestamp        string `json:"Timestamp"`
	SignatureVersion string `json:"SignatureVersion"`
	Signature        string `json:"Signature"`
	SigningCertURL   string `json:"SigningCertURL"`
	SubscribeURL     string `json:"SubscribeURL,omitempty"`
	Token            string `json:"Token,omitempty"`
	UnsubscribeURL   string `json:"UnsubscribeURL,omitempty"`
}

// signingString builds the canonical string the envelope signature covers:
// alternating "Field\nValue\n" lines in a fixed per-type order, with absent
// optional fields skipped entirely.
func (e *Envelope) signingString() []byte {
	var pairs []string

	switch e.Type {
	case TypeSubscriptionConfirmation, TypeUnsubscribeConfirmation:
		pairs = []string{
			"Message", e.Message,
			"MessageId", e.MessageID,
			"SubscribeURL", e.SubscribeURL,
			"Timestamp", e.Timestamp,
			"Token", e.Token,
			"TopicArn", e.TopicARN,
			"Type", e.Type,
		}
	default:
		pairs = []string{
			"Message", e.Message,
			"MessageId", e.MessageID,
			"Subject", e.Subject,
			"Timestamp", e.Timestamp,
			"TopicArn", e.TopicARN,
			"Type", e.Type,
		}
	}

	var buf []byte
	for i := 0; i < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		buf = append(buf, pairs[i]...)
		buf = append(buf, '\n')
		buf = append(buf, pairs[i+1]...)
		buf = append(buf, '\n')
	}
	return buf
}
