// Package api wires the public HTTP surface: tracking endpoints, the
// unsubscribe pages, the suppression management API, the send endpoint and
// the webhook receiver.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/mailing"
	"github.com/ignite/ses-pipeline/internal/pkg/httputil"
	"github.com/ignite/ses-pipeline/internal/service/suppression"
	"github.com/ignite/ses-pipeline/internal/service/tracking"
	"github.com/ignite/ses-pipeline/internal/service/unsubscribe"
)

// TrackingRecorder records engagement signals.
type TrackingRecorder interface {
	RecordOpen(ctx context.Context, ref string) (tracking.OpenResult, error)
	RecordClick(ctx context.Context, ref, targetURL string) error
}

// SuppressionService manages the suppression list.
type SuppressionService interface {
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason) (bool, error)
	Remove(ctx context.Context, email string) error
	Check(ctx context.Context, email string) (*domain.Suppression, error)
	List(ctx context.Context, filter suppression.ListFilter) ([]domain.Suppression, int, error)
	Stats(ctx context.Context) (map[domain.SuppressionReason]int, error)
}

// UnsubscribeService verifies and honors unsubscribe tokens.
type UnsubscribeService interface {
	Verify(token string) (*unsubscribe.Claims, error)
	Process(ctx context.Context, token string) (*unsubscribe.Result, error)
}

// EmailSender sends instrumented email.
type EmailSender interface {
	Send(ctx context.Context, req mailing.SendRequest) (*domain.Message, error)
}

// Handlers bundles the dependencies the router needs. Sender may be nil
// when the send path is disabled; the endpoint then returns 503.
type Handlers struct {
	Tracking    TrackingRecorder
	Suppression SuppressionService
	Unsubscribe UnsubscribeService
	Sender      EmailSender
	Webhook     http.HandlerFunc

	// FallbackURL is where click redirects land when the reference or
	// target is unusable.
	FallbackURL string
}

// Routes assembles the router.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})

	if h.Webhook != nil {
		r.Post("/webhooks/ses", h.Webhook)
	}

	r.Get("/track/open/{messageID}", h.trackOpen)
	r.Get("/track/click/{messageID}", h.trackClick)

	r.Get("/unsubscribe/{token}", h.unsubscribeConfirm)
	r.Post("/unsubscribe/{token}", h.unsubscribeProcess)

	r.Route("/api", func(r chi.Router) {
		r.Route("/suppressions", func(r chi.Router) {
			r.Get("/", h.listSuppressions)
			r.Post("/", h.addSuppression)
			r.Get("/stats", h.suppressionStats)
			r.Get("/check", h.checkSuppression)
			r.Delete("/{email}", h.removeSuppression)
		})
		r.Post("/emails", h.sendEmail)
	})

	return r
}
