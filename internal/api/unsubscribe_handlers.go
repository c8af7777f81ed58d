package api

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ses-pipeline/internal/pkg/emailutil"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
	"github.com/ignite/ses-pipeline/internal/service/unsubscribe"
)

const unsubscribePageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title>
<style>body{font-family:sans-serif;max-width:480px;margin:80px auto;padding:0 16px;color:#333}
h1{font-size:1.3em}button{background:#c0392b;color:#fff;border:0;padding:10px 24px;font-size:1em;border-radius:4px;cursor:pointer}</style>
</head>
<body>
<h1>%s</h1>
%s
</body>
</html>`

func unsubscribePage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, unsubscribePageTemplate, html.EscapeString(title), html.EscapeString(title), body)
}

// unsubscribeConfirm renders the confirmation page. The actual opt-out only
// happens on POST so link prefetchers cannot unsubscribe people.
func (h *Handlers) unsubscribeConfirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	claims, err := h.Unsubscribe.Verify(token)
	if err != nil {
		h.unsubscribeError(w, err)
		return
	}

	masked := html.EscapeString(emailutil.Mask(claims.Email))
	body := fmt.Sprintf(`<p>Unsubscribe <strong>%s</strong> from future emails?</p>
<form method="POST"><button type="submit">Unsubscribe</button></form>`, masked)
	unsubscribePage(w, http.StatusOK, "Unsubscribe", body)
}

// unsubscribeProcess performs the opt-out.
func (h *Handlers) unsubscribeProcess(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	result, err := h.Unsubscribe.Process(r.Context(), token)
	if err != nil {
		h.unsubscribeError(w, err)
		return
	}

	masked := html.EscapeString(result.MaskedEmail)
	if result.AlreadyDone {
		unsubscribePage(w, http.StatusOK, "Already unsubscribed",
			fmt.Sprintf("<p><strong>%s</strong> was already unsubscribed. No further emails will be sent.</p>", masked))
		return
	}
	unsubscribePage(w, http.StatusOK, "Unsubscribed",
		fmt.Sprintf("<p><strong>%s</strong> has been unsubscribed. No further emails will be sent.</p>", masked))
}

func (h *Handlers) unsubscribeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, unsubscribe.ErrExpired):
		unsubscribePage(w, http.StatusGone, "Link expired",
			"<p>This unsubscribe link has expired. Use the link from a more recent email.</p>")
	case errors.Is(err, unsubscribe.ErrSignatureInvalid), errors.Is(err, unsubscribe.ErrMalformed):
		unsubscribePage(w, http.StatusBadRequest, "Invalid link",
			"<p>This unsubscribe link is not valid.</p>")
	default:
		logger.Error("unsubscribe failed", "error", err.Error())
		unsubscribePage(w, http.StatusInternalServerError, "Something went wrong",
			"<p>We could not process your request. Please try again later.</p>")
	}
}
