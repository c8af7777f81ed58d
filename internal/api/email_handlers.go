package api

import (
	"errors"
	"net/http"

	"github.com/ignite/ses-pipeline/internal/mailing"
	"github.com/ignite/ses-pipeline/internal/pkg/httputil"
)

type sendEmailRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body,omitempty"`
}

func (h *Handlers) sendEmail(w http.ResponseWriter, r *http.Request) {
	if h.Sender == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "SENDING_DISABLED", "email sending is not configured")
		return
	}

	var req sendEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.To == "" || req.Subject == "" || req.HTMLBody == "" {
		httputil.BadRequest(w, "MISSING_FIELDS", "to, subject and html_body are required")
		return
	}

	msg, err := h.Sender.Send(r.Context(), mailing.SendRequest{
		To:       req.To,
		Subject:  req.Subject,
		HTMLBody: req.HTMLBody,
		TextBody: req.TextBody,
	})
	if err != nil {
		switch {
		case errors.Is(err, mailing.ErrSuppressed):
			httputil.Conflict(w, "SUPPRESSED", "recipient is on the suppression list")
		case errors.Is(err, mailing.ErrInvalidRecipient):
			httputil.BadRequest(w, "INVALID_EMAIL", "invalid recipient address")
		default:
			httputil.InternalError(w, err)
		}
		return
	}

	httputil.Created(w, map[string]any{
		"id":                  msg.ID,
		"provider_message_id": msg.ProviderMessageID,
		"status":              msg.Status,
	})
}
