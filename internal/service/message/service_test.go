package message

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ses-pipeline/internal/domain"
)

// mockRepo keeps messages in memory with real compare-and-swap semantics.
type mockRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.Message // keyed by provider message id
	events   []*domain.Event
	deferred map[uuid.UUID]time.Time

	// onTransition runs inside TransitionStatus before the swap, letting
	// tests inject a concurrent writer.
	onTransition func()
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		messages: make(map[string]*domain.Message),
		deferred: make(map[uuid.UUID]time.Time),
	}
}

func (m *mockRepo) add(msg *domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ProviderMessageID] = msg
}

func (m *mockRepo) GetByProviderMessageID(_ context.Context, providerID string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[providerID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

func (m *mockRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to domain.Status) (bool, error) {
	if m.onTransition != nil {
		hook := m.onTransition
		m.onTransition = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			if msg.Status != from {
				return false, nil
			}
			msg.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) SetFirstDeferredAt(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deferred[id]; !ok {
		m.deferred[id] = at
	}
	return nil
}

func (m *mockRepo) AppendEvent(_ context.Context, ev *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

type mockSuppressor struct {
	mu    sync.Mutex
	calls []struct {
		email  string
		reason domain.SuppressionReason
	}
}

func (m *mockSuppressor) Suppress(_ context.Context, email string, reason domain.SuppressionReason) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, struct {
		email  string
		reason domain.SuppressionReason
	}{email, reason})
	return true, nil
}

func testMessage(status domain.Status) *domain.Message {
	return &domain.Message{
		ID:                uuid.New(),
		ProviderMessageID: "prov-1",
		ToEmail:           "recipient@example.com",
		Status:            status,
		CreatedAt:         time.Now().UTC(),
	}
}

func testEvent(kind domain.EventKind) *domain.DeliveryEvent {
	return &domain.DeliveryEvent{
		Kind:              kind,
		ProviderMessageID: "prov-1",
		RawPayload:        json.RawMessage(`{}`),
		OccurredAt:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestApply_TransitionTable(t *testing.T) {
	cases := []struct {
		from    domain.Status
		kind    domain.EventKind
		applied bool
		want    domain.Status
	}{
		{domain.StatusSent, domain.KindDelivery, true, domain.StatusDelivered},
		{domain.StatusSent, domain.KindBounce, true, domain.StatusBounced},
		{domain.StatusSent, domain.KindDeliveryDelay, true, domain.StatusDeferred},
		{domain.StatusSent, domain.KindReject, true, domain.StatusRejected},
		{domain.StatusSent, domain.KindComplaint, false, domain.StatusSent},
		{domain.StatusDeferred, domain.KindDelivery, true, domain.StatusDelivered},
		{domain.StatusDeferred, domain.KindBounce, true, domain.StatusBounced},
		{domain.StatusDeferred, domain.KindComplaint, false, domain.StatusDeferred},
		{domain.StatusDeferred, domain.KindReject, false, domain.StatusDeferred},
		{domain.StatusDelivered, domain.KindComplaint, true, domain.StatusComplained},
		{domain.StatusDelivered, domain.KindDelivery, false, domain.StatusDelivered},
		{domain.StatusDelivered, domain.KindBounce, false, domain.StatusDelivered},
		{domain.StatusBounced, domain.KindDelivery, false, domain.StatusBounced},
		{domain.StatusRejected, domain.KindDelivery, false, domain.StatusRejected},
		{domain.StatusRejected, domain.KindBounce, false, domain.StatusRejected},
		{domain.StatusComplained, domain.KindComplaint, false, domain.StatusComplained},
	}

	for _, c := range cases {
		t.Run(string(c.from)+"_"+string(c.kind), func(t *testing.T) {
			repo := newMockRepo()
			repo.add(testMessage(c.from))
			svc := NewService(repo, &mockSuppressor{})

			out, err := svc.Apply(context.Background(), testEvent(c.kind))
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if out.Applied != c.applied {
				t.Errorf("Applied = %v, want %v", out.Applied, c.applied)
			}
			if out.NewStatus != c.want {
				t.Errorf("NewStatus = %q, want %q", out.NewStatus, c.want)
			}
			if !c.applied && out.Ignored != IgnoreInvalidTransition {
				t.Errorf("Ignored = %q, want invalid_transition", out.Ignored)
			}
			// The audit trail records every event, applied or not.
			if len(repo.events) != 1 {
				t.Errorf("events recorded = %d, want 1", len(repo.events))
			}
		})
	}
}

func TestApply_UnknownMessageDropped(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockSuppressor{})

	out, err := svc.Apply(context.Background(), testEvent(domain.KindDelivery))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Applied || out.Ignored != IgnoreUnknownMessage {
		t.Errorf("outcome = %+v, want unknown_message ignore", out)
	}
	if len(repo.events) != 0 {
		t.Errorf("events recorded for unknown message")
	}
}

func TestApply_DuplicateDeliveryIdempotent(t *testing.T) {
	repo := newMockRepo()
	repo.add(testMessage(domain.StatusSent))
	svc := NewService(repo, &mockSuppressor{})

	first, err := svc.Apply(context.Background(), testEvent(domain.KindDelivery))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Apply(context.Background(), testEvent(domain.KindDelivery))
	if err != nil {
		t.Fatal(err)
	}

	if !first.Applied {
		t.Error("first delivery not applied")
	}
	if second.Applied {
		t.Error("duplicate delivery applied")
	}
	if second.NewStatus != domain.StatusDelivered {
		t.Errorf("status after duplicate = %q", second.NewStatus)
	}
	if len(repo.events) != 2 {
		t.Errorf("events = %d, want both recorded", len(repo.events))
	}
}

func TestApply_HardBounceSuppresses(t *testing.T) {
	repo := newMockRepo()
	repo.add(testMessage(domain.StatusSent))
	sup := &mockSuppressor{}
	svc := NewService(repo, sup)

	ev := testEvent(domain.KindBounce)
	ev.BounceType = domain.BounceHard
	if _, err := svc.Apply(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if len(sup.calls) != 1 {
		t.Fatalf("suppress calls = %d, want 1", len(sup.calls))
	}
	if sup.calls[0].email != "recipient@example.com" || sup.calls[0].reason != domain.ReasonHardBounce {
		t.Errorf("suppress call = %+v", sup.calls[0])
	}
}

func TestApply_SoftBounceDoesNotSuppress(t *testing.T) {
	repo := newMockRepo()
	repo.add(testMessage(domain.StatusSent))
	sup := &mockSuppressor{}
	svc := NewService(repo, sup)

	ev := testEvent(domain.KindBounce)
	ev.BounceType = domain.BounceSoft
	if _, err := svc.Apply(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if len(sup.calls) != 0 {
		t.Errorf("soft bounce suppressed recipient")
	}
}

func TestApply_ComplaintSuppresses(t *testing.T) {
	repo := newMockRepo()
	repo.add(testMessage(domain.StatusDelivered))
	sup := &mockSuppressor{}
	svc := NewService(repo, sup)

	if _, err := svc.Apply(context.Background(), testEvent(domain.KindComplaint)); err != nil {
		t.Fatal(err)
	}

	if len(sup.calls) != 1 || sup.calls[0].reason != domain.ReasonComplaint {
		t.Errorf("suppress calls = %+v", sup.calls)
	}
}

func TestApply_FirstDeferralRecordedOnce(t *testing.T) {
	repo := newMockRepo()
	msg := testMessage(domain.StatusSent)
	repo.add(msg)
	svc := NewService(repo, &mockSuppressor{})

	first := testEvent(domain.KindDeliveryDelay)
	if _, err := svc.Apply(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	// A second delay from deferred is not a defined transition, so the side
	// effect must not run again either.
	second := testEvent(domain.KindDeliveryDelay)
	second.OccurredAt = first.OccurredAt.Add(time.Hour)
	out, err := svc.Apply(context.Background(), second)
	if err != nil {
		t.Fatal(err)
	}
	if out.Applied {
		t.Error("second delay applied")
	}
	if got := repo.deferred[msg.ID]; !got.Equal(first.OccurredAt) {
		t.Errorf("first_deferred_at = %v, want %v", got, first.OccurredAt)
	}
}

func TestApply_RetriesLostRace(t *testing.T) {
	repo := newMockRepo()
	msg := testMessage(domain.StatusSent)
	repo.add(msg)
	svc := NewService(repo, &mockSuppressor{})

	// A concurrent delay lands between the read and the swap.
	repo.onTransition = func() {
		repo.TransitionStatus(context.Background(), msg.ID, domain.StatusSent, domain.StatusDeferred)
	}

	out, err := svc.Apply(context.Background(), testEvent(domain.KindDelivery))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Applied {
		t.Fatal("delivery not applied after race")
	}
	if out.NewStatus != domain.StatusDelivered {
		t.Errorf("NewStatus = %q, want delivered", out.NewStatus)
	}
}
