// Package ses decodes the JSON delivery events carried inside verified
// envelope Message fields into domain events.
package ses

// notification mirrors the event document SES publishes. Only the fields
// the pipeline consumes are declared.
type notification struct {
	EventType        string            `json:"eventType"`
	NotificationType string            `json:"notificationType"`
	Mail             mailObject        `json:"mail"`
	Delivery         *timestampedEvent `json:"delivery"`
	Bounce           *bounceObject     `json:"bounce"`
	Complaint        *complaintObject  `json:"complaint"`
	DeliveryDelay    *delayObject      `json:"deliveryDelay"`
	Reject           *rejectObject     `json:"reject"`
}

type mailObject struct {
	MessageID   string   `json:"messageId"`
	Timestamp   string   `json:"timestamp"`
	Source      string   `json:"source"`
	Destination []string `json:"destination"`
}

type timestampedEvent struct {
	Timestamp string `json:"timestamp"`
}

type bounceObject struct {
	BounceType        string             `json:"bounceType"`
	BounceSubType     string             `json:"bounceSubType"`
	Timestamp         string             `json:"timestamp"`
	BouncedRecipients []bouncedRecipient `json:"bouncedRecipients"`
}

type bouncedRecipient struct {
	EmailAddress   string `json:"emailAddress"`
	DiagnosticCode string `json:"diagnosticCode"`
}

type complaintObject struct {
	ComplaintFeedbackType string `json:"complaintFeedbackType"`
	Timestamp             string `json:"timestamp"`
}

type delayObject struct {
	DelayType         string             `json:"delayType"`
	Timestamp         string             `json:"timestamp"`
	DelayedRecipients []bouncedRecipient `json:"delayedRecipients"`
}

type rejectObject struct {
	Reason string `json:"reason"`
}
