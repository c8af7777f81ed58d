// Package mailing sends instrumented email: outbound HTML is rewritten so
// links and opens route through the tracking endpoints and every message
// carries a signed unsubscribe link. Suppressed recipients are refused
// before anything reaches the provider.
package mailing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/pkg/emailutil"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

var (
	// ErrSuppressed means the recipient is on the suppression list.
	ErrSuppressed = errors.New("mailing: recipient suppressed")

	// ErrInvalidRecipient means the address fails syntax validation.
	ErrInvalidRecipient = errors.New("mailing: invalid recipient")
)

// SendRequest is one outbound email.
type SendRequest struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// SuppressionGate answers whether an address may be mailed.
type SuppressionGate interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// TokenIssuer creates unsubscribe links.
type TokenIssuer interface {
	URL(baseURL, email, messageID string) (string, error)
}

// Repository persists sent messages so later delivery events can correlate.
type Repository interface {
	InsertMessage(ctx context.Context, msg *domain.Message) error
}

// sesAPI is the slice of the SES client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Options configure a Sender.
type Options struct {
	FromEmail        string
	FromName         string
	ConfigurationSet string
	// BaseURL is the public origin for tracking and unsubscribe links.
	BaseURL string
}

// Sender sends instrumented email through SES.
type Sender struct {
	client sesAPI
	gate   SuppressionGate
	tokens TokenIssuer
	repo   Repository
	opts   Options
}

// NewSender builds a Sender.
func NewSender(client sesAPI, gate SuppressionGate, tokens TokenIssuer, repo Repository, opts Options) *Sender {
	return &Sender{client: client, gate: gate, tokens: tokens, repo: repo, opts: opts}
}

// Send validates the recipient against the suppression list, instruments
// the HTML body and dispatches through the provider. The message row is
// created in status sent with the provider's message id as correlation key.
func (s *Sender) Send(ctx context.Context, req SendRequest) (*domain.Message, error) {
	to := emailutil.Normalize(req.To)
	if !emailutil.Valid(to) {
		return nil, ErrInvalidRecipient
	}

	suppressed, err := s.gate.IsSuppressed(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("suppression check: %w", err)
	}
	if suppressed {
		logger.Info("send refused, recipient suppressed", "recipient", to)
		return nil, ErrSuppressed
	}

	messageID := uuid.New()

	htmlBody := RewriteLinks(req.HTMLBody, s.opts.BaseURL, messageID.String())
	htmlBody = InjectPixel(htmlBody, s.opts.BaseURL, messageID.String())

	unsubURL, err := s.tokens.URL(s.opts.BaseURL, to, messageID.String())
	if err != nil {
		return nil, fmt.Errorf("issue unsubscribe link: %w", err)
	}
	htmlBody = InjectUnsubscribeLink(htmlBody, unsubURL)

	from := s.opts.FromEmail
	if s.opts.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.opts.FromName, s.opts.FromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(req.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	}
	if req.TextBody != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(req.TextBody)}
	}
	if s.opts.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.opts.ConfigurationSet)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("provider send: %w", err)
	}

	msg := &domain.Message{
		ID:                messageID,
		ProviderMessageID: aws.ToString(out.MessageId),
		ToEmail:           to,
		FromEmail:         s.opts.FromEmail,
		Subject:           req.Subject,
		Status:            domain.StatusSent,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		// The mail is already out; without the row, delivery events for it
		// will be dropped as unknown.
		return nil, fmt.Errorf("persist message: %w", err)
	}

	logger.Info("email sent",
		"message_id", messageID.String(),
		"provider_message_id", msg.ProviderMessageID,
		"recipient", to)
	return msg, nil
}
