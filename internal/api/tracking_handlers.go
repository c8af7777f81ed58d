package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ses-pipeline/internal/pkg/logger"
	"github.com/ignite/ses-pipeline/internal/service/tracking"
)

// pixelGIF is a 1x1 transparent GIF, served for every open request so mail
// clients never see a broken image.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// trackOpen records an open and serves the pixel. Recording is best effort:
// the pixel goes out no matter what.
func (h *Handlers) trackOpen(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "messageID")

	if _, err := h.Tracking.RecordOpen(r.Context(), ref); err != nil {
		logger.Error("record open failed", "ref", ref, "error", err.Error())
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}

// trackClick records a click and redirects to the original target. The
// visitor always lands somewhere: a bad reference or target falls back to
// the configured URL.
func (h *Handlers) trackClick(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "messageID")
	target := r.URL.Query().Get("url")

	if !validRedirectTarget(target) {
		http.Redirect(w, r, h.FallbackURL, http.StatusFound)
		return
	}

	if err := h.Tracking.RecordClick(r.Context(), ref, target); err != nil {
		if errors.Is(err, tracking.ErrUnknownMessage) {
			http.Redirect(w, r, h.FallbackURL, http.StatusFound)
			return
		}
		// Other recording failures are not the visitor's problem.
		logger.Warn("record click failed", "ref", ref, "error", err.Error())
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// validRedirectTarget rejects targets that would turn the redirect into an
// open relay for arbitrary schemes.
func validRedirectTarget(target string) bool {
	if target == "" {
		return false
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}
