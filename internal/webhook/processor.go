// Package webhook receives signed delivery notifications, verifies them,
// decodes the nested event and feeds it to the state machine. The endpoint
// always acknowledges: a failure here must never make the notifier retry or
// disable the subscription.
package webhook

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/pkg/httpretry"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
	"github.com/ignite/ses-pipeline/internal/ses"
	"github.com/ignite/ses-pipeline/internal/service/message"
	"github.com/ignite/ses-pipeline/internal/sns"
)

// Status classifies what processing one webhook body did.
type Status string

const (
	StatusApplied             Status = "applied"
	StatusIgnored             Status = "ignored"
	StatusConfirmationHandled Status = "confirmation_handled"
)

// Result is the per-request processing summary, logged and returned in the
// acknowledgement body.
type Result struct {
	Status    Status           `json:"status"`
	EventKind domain.EventKind `json:"event_kind,omitempty"`
	Detail    string           `json:"detail,omitempty"`
}

// Verifier authenticates raw envelope bodies.
type Verifier interface {
	Verify(ctx context.Context, raw []byte) (*sns.Envelope, error)
}

// Applier runs decoded events through the state machine.
type Applier interface {
	Apply(ctx context.Context, ev *domain.DeliveryEvent) (*message.Outcome, error)
}

// Processor handles one verified notification end to end.
type Processor struct {
	verifier Verifier
	applier  Applier
	client   httpretry.HTTPDoer
	now      func() time.Time
}

// NewProcessor builds a Processor. A nil client gets a retrying default for
// subscription confirmation fetches.
func NewProcessor(verifier Verifier, applier Applier, client httpretry.HTTPDoer) *Processor {
	if client == nil {
		client = httpretry.NewClient(nil, 3)
	}
	return &Processor{
		verifier: verifier,
		applier:  applier,
		client:   client,
		now:      time.Now,
	}
}

// ProcessNotification verifies and applies one raw webhook body. It never
// returns an error: every failure mode degrades to an ignored Result so the
// handler can acknowledge unconditionally.
func (p *Processor) ProcessNotification(ctx context.Context, raw []byte) *Result {
	env, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		logger.Warn("envelope rejected", "error", err.Error())
		return &Result{Status: StatusIgnored, Detail: "verification failed"}
	}

	if env.Type != sns.TypeNotification {
		p.confirmSubscription(ctx, env)
		return &Result{Status: StatusConfirmationHandled}
	}

	ev, err := ses.Decode(env.Message, p.now().UTC())
	if err != nil {
		logger.Warn("event decode failed", "envelope_id", env.MessageID, "error", err.Error())
		return &Result{Status: StatusIgnored, Detail: "decode failed"}
	}

	outcome, err := p.applier.Apply(ctx, ev)
	if err != nil {
		logger.Error("event apply failed",
			"provider_message_id", ev.ProviderMessageID, "kind", string(ev.Kind), "error", err.Error())
		return &Result{Status: StatusIgnored, EventKind: ev.Kind, Detail: "apply failed"}
	}

	if !outcome.Applied {
		return &Result{Status: StatusIgnored, EventKind: ev.Kind, Detail: string(outcome.Ignored)}
	}
	return &Result{Status: StatusApplied, EventKind: ev.Kind}
}

// confirmSubscription visits the SubscribeURL from a confirmation envelope.
// Failures are logged only; the notifier re-sends confirmations on its own.
func (p *Processor) confirmSubscription(ctx context.Context, env *sns.Envelope) {
	if env.SubscribeURL == "" {
		logger.Warn("confirmation without subscribe URL", "envelope_id", env.MessageID)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.SubscribeURL, nil)
	if err != nil {
		logger.Error("build confirmation request failed", "error", err.Error())
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		logger.Error("subscription confirmation failed",
			"envelope_id", env.MessageID, "error", err.Error())
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	logger.Info("subscription confirmed",
		"topic_arn", env.TopicARN, "status", resp.StatusCode)
}
