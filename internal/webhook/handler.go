package webhook

import (
	"io"
	"net/http"

	"github.com/ignite/ses-pipeline/internal/pkg/httputil"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

// maxBodyBytes caps webhook bodies. Real notifications are far smaller.
const maxBodyBytes = 1 << 20

// Handler is the HTTP adapter for the processor.
type Handler struct {
	processor *Processor
}

// NewHandler builds the webhook HTTP handler.
func NewHandler(processor *Processor) *Handler {
	return &Handler{processor: processor}
}

// ServeHTTP handles POSTed notifications. It responds 200 no matter what:
// returning an error status would make the notifier retry and eventually
// disable the subscription.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("webhook body read failed", "error", err.Error())
		httputil.OK(w, &Result{Status: StatusIgnored, Detail: "body read failed"})
		return
	}

	result := h.processor.ProcessNotification(r.Context(), body)
	httputil.OK(w, result)
}
