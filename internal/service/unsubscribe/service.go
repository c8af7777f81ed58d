// Package unsubscribe issues and honors signed one-click unsubscribe
// tokens. Tokens are HMAC-signed and self-contained, so no database row is
// needed until the recipient actually opts out.
package unsubscribe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/pkg/emailutil"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

var (
	// ErrExpired means the token was valid but its lifetime has passed.
	ErrExpired = errors.New("unsubscribe: token expired")

	// ErrSignatureInvalid means the token was tampered with or signed with a
	// different secret.
	ErrSignatureInvalid = errors.New("unsubscribe: token signature invalid")

	// ErrMalformed means the token is not a parseable token at all.
	ErrMalformed = errors.New("unsubscribe: malformed token")
)

// DefaultTokenTTL is how long unsubscribe links stay valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Claims is the token payload: the recipient and the message the link was
// embedded in.
type Claims struct {
	Email     string `json:"email"`
	MessageID string `json:"message_id,omitempty"`
	jwt.RegisteredClaims
}

// Suppressor records the opt-out.
type Suppressor interface {
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason) (bool, error)
}

// Result reports a processed unsubscribe.
type Result struct {
	// MaskedEmail is safe for display on the confirmation page.
	MaskedEmail string
	// AlreadyDone is true when the address was suppressed before this
	// request.
	AlreadyDone bool
}

// Service issues and verifies unsubscribe tokens.
type Service struct {
	secret     []byte
	ttl        time.Duration
	suppressor Suppressor
	now        func() time.Time
}

// NewService builds the unsubscribe service. A non-positive ttl defaults to
// DefaultTokenTTL.
func NewService(secret string, ttl time.Duration, suppressor Suppressor) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		secret:     []byte(secret),
		ttl:        ttl,
		suppressor: suppressor,
		now:        time.Now,
	}
}

// Issue creates a signed token binding an address to a message.
func (s *Service) Issue(email, messageID string) (string, error) {
	now := s.now()
	claims := Claims{
		Email:     emailutil.Normalize(email),
		MessageID: messageID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: no email claim", ErrMalformed)
	}
	return claims, nil
}

// Process verifies a token and suppresses its address with the unsubscribe
// reason. Idempotent: a second click on the same link reports AlreadyDone.
func (s *Service) Process(ctx context.Context, tokenString string) (*Result, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	added, err := s.suppressor.Suppress(ctx, claims.Email, domain.ReasonUnsubscribe)
	if err != nil {
		return nil, fmt.Errorf("suppress: %w", err)
	}

	logger.Info("unsubscribe processed",
		"recipient", claims.Email, "already_suppressed", !added)
	return &Result{
		MaskedEmail: emailutil.Mask(claims.Email),
		AlreadyDone: !added,
	}, nil
}

// URL builds the public unsubscribe link for an address.
func (s *Service) URL(baseURL, email, messageID string) (string, error) {
	token, err := s.Issue(email, messageID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/unsubscribe/%s", baseURL, url.PathEscape(token)), nil
}
