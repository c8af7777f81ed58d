package ses

import (
	"errors"
	"testing"
	"time"

	"github.com/ignite/ses-pipeline/internal/domain"
)

var receiptTime = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestDecode_Delivery(t *testing.T) {
	body := `{
		"eventType": "Delivery",
		"mail": {"messageId": "0100018c-abc", "timestamp": "2026-08-30T10:00:00.000Z"},
		"delivery": {"timestamp": "2026-08-30T10:00:05.000Z"}
	}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Kind != domain.KindDelivery {
		t.Errorf("Kind = %q", ev.Kind)
	}
	if ev.ProviderMessageID != "0100018c-abc" {
		t.Errorf("ProviderMessageID = %q", ev.ProviderMessageID)
	}
	want := time.Date(2026, 8, 30, 10, 0, 5, 0, time.UTC)
	if !ev.OccurredAt.Equal(want) {
		t.Errorf("OccurredAt = %v, want %v", ev.OccurredAt, want)
	}
}

func TestDecode_NotificationTypeFallback(t *testing.T) {
	body := `{
		"notificationType": "Bounce",
		"mail": {"messageId": "fallback-id"},
		"bounce": {"bounceType": "Permanent", "bouncedRecipients": [{"emailAddress": "a@example.com", "diagnosticCode": "550 5.1.1 user unknown"}]}
	}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Kind != domain.KindBounce {
		t.Errorf("Kind = %q", ev.Kind)
	}
	if ev.BounceType != domain.BounceHard {
		t.Errorf("BounceType = %q, want hard", ev.BounceType)
	}
	if ev.Reason != "550 5.1.1 user unknown" {
		t.Errorf("Reason = %q", ev.Reason)
	}
}

func TestDecode_TransientBounceIsSoft(t *testing.T) {
	body := `{
		"eventType": "Bounce",
		"mail": {"messageId": "m1"},
		"bounce": {"bounceType": "Transient", "timestamp": "2026-08-30T10:00:00Z"}
	}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.BounceType != domain.BounceSoft {
		t.Errorf("BounceType = %q, want soft", ev.BounceType)
	}
}

func TestDecode_AngleBracketsStripped(t *testing.T) {
	body := `{"eventType": "Delivery", "mail": {"messageId": "<abc@mail.example.com>"}}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.ProviderMessageID != "abc@mail.example.com" {
		t.Errorf("ProviderMessageID = %q", ev.ProviderMessageID)
	}
}

func TestDecode_DeliveryDelay(t *testing.T) {
	body := `{
		"eventType": "DeliveryDelay",
		"mail": {"messageId": "m2"},
		"deliveryDelay": {"delayType": "MailboxFull", "timestamp": "2026-08-30T11:30:00Z", "delayedRecipients": [{"emailAddress": "a@example.com", "diagnosticCode": "452 4.2.2 mailbox full"}]}
	}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Kind != domain.KindDeliveryDelay {
		t.Errorf("Kind = %q", ev.Kind)
	}
	if ev.DelayType != "MailboxFull" {
		t.Errorf("DelayType = %q", ev.DelayType)
	}
	if ev.Reason != "452 4.2.2 mailbox full" {
		t.Errorf("Reason = %q", ev.Reason)
	}
}

func TestDecode_DelayWithoutRecipients(t *testing.T) {
	body := `{
		"eventType": "DeliveryDelay",
		"mail": {"messageId": "m2"},
		"deliveryDelay": {"delayType": "TransientCommunicationFailure"}
	}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Reason != "" {
		t.Errorf("Reason = %q, want empty", ev.Reason)
	}
}

func TestDecode_Complaint(t *testing.T) {
	body := `{
		"eventType": "Complaint",
		"mail": {"messageId": "m3"},
		"complaint": {"complaintFeedbackType": "abuse", "timestamp": "2026-08-30T11:00:00Z"}
	}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Kind != domain.KindComplaint {
		t.Errorf("Kind = %q", ev.Kind)
	}
	if ev.Reason != "abuse" {
		t.Errorf("Reason = %q", ev.Reason)
	}
}

func TestDecode_Reject(t *testing.T) {
	body := `{"eventType": "Reject", "mail": {"messageId": "m4", "timestamp": "2026-08-30T09:00:00Z"}, "reject": {"reason": "Bad content"}}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Kind != domain.KindReject {
		t.Errorf("Kind = %q", ev.Kind)
	}
	// No event-level timestamp; mail timestamp wins.
	want := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	if !ev.OccurredAt.Equal(want) {
		t.Errorf("OccurredAt = %v, want %v", ev.OccurredAt, want)
	}
}

func TestDecode_MissingTimestampsUsesReceipt(t *testing.T) {
	body := `{"eventType": "Delivery", "mail": {"messageId": "m5"}}`

	ev, err := Decode(body, receiptTime)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !ev.OccurredAt.Equal(receiptTime) {
		t.Errorf("OccurredAt = %v, want receipt time", ev.OccurredAt)
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"not json", "not json at all", ErrNestedParse},
		{"unknown kind", `{"eventType": "Send", "mail": {"messageId": "x"}}`, ErrUnknownKind},
		{"missing message id", `{"eventType": "Delivery", "mail": {}}`, ErrMissingCorrelationKey},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Decode(c.body, receiptTime); !errors.Is(err, c.want) {
				t.Errorf("err = %v, want %v", err, c.want)
			}
		})
	}
}
