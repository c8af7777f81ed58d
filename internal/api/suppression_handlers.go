package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ses-pipeline/internal/domain"
	"github.com/ignite/ses-pipeline/internal/pkg/httputil"
	"github.com/ignite/ses-pipeline/internal/service/suppression"
)

type suppressionListResponse struct {
	Suppressions []domain.Suppression `json:"suppressions"`
	Total        int                  `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

func (h *Handlers) listSuppressions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := suppression.ListFilter{
		Reason: domain.SuppressionReason(q.Get("reason")),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	rows, total, err := h.Suppression.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, suppression.ErrInvalidReason) {
			httputil.BadRequest(w, "INVALID_REASON", "unknown suppression reason")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.Suppression{}
	}

	httputil.OK(w, suppressionListResponse{
		Suppressions: rows,
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

type addSuppressionRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

func (h *Handlers) addSuppression(w http.ResponseWriter, r *http.Request) {
	var req addSuppressionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	reason := domain.SuppressionReason(req.Reason)
	if reason == "" {
		reason = domain.ReasonManual
	}

	added, err := h.Suppression.Suppress(r.Context(), req.Email, reason)
	if err != nil {
		switch {
		case errors.Is(err, suppression.ErrInvalidEmail):
			httputil.BadRequest(w, "INVALID_EMAIL", "invalid email address")
		case errors.Is(err, suppression.ErrInvalidReason):
			httputil.BadRequest(w, "INVALID_REASON", "unknown suppression reason")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	if !added {
		httputil.Conflict(w, "ALREADY_SUPPRESSED", "address is already suppressed")
		return
	}
	httputil.Created(w, map[string]string{"email": req.Email, "reason": string(reason)})
}

func (h *Handlers) removeSuppression(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		httputil.BadRequest(w, "INVALID_EMAIL", "invalid email address")
		return
	}

	if err := h.Suppression.Remove(r.Context(), email); err != nil {
		if errors.Is(err, suppression.ErrNotFound) {
			httputil.NotFound(w, "address is not suppressed")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) checkSuppression(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.BadRequest(w, "MISSING_EMAIL", "email query parameter is required")
		return
	}

	row, err := h.Suppression.Check(r.Context(), email)
	if err != nil {
		if errors.Is(err, suppression.ErrNotFound) {
			httputil.OK(w, map[string]any{"suppressed": false})
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"suppressed": true, "reason": row.Reason, "created_at": row.CreatedAt})
}

func (h *Handlers) suppressionStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Suppression.Stats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	total := 0
	byReason := make(map[string]int, len(counts))
	for reason, n := range counts {
		byReason[string(reason)] = n
		total += n
	}
	httputil.OK(w, map[string]any{"total": total, "by_reason": byReason})
}
