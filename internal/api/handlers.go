package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/starford/flipdesk/internal/conversion"
	"github.com/starford/flipdesk/internal/crm"
	"github.com/starford/flipdesk/internal/search"
)

// ConversionRunner runs one conversion pass on demand.
type ConversionRunner interface {
	RunOnce(ctx context.Context, trigger string) (conversion.Report, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc      *crm.Service
	search   *search.Aggregator
	runner   ConversionRunner
	minQuery int
}

// NewHandler creates a new Handler. runner may be nil, in which case manual
// conversion runs are unavailable.
func NewHandler(svc *crm.Service, agg *search.Aggregator, runner ConversionRunner, minQuery int) *Handler {
	return &Handler{svc: svc, search: agg, runner: runner, minQuery: minQuery}
}

// Search handles GET /api/search.
//
//	@Summary		Search leads, opportunities and contacts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search text (case-insensitive substring)"
//	@Param			limit	query		int		false	"Page size (default 20, max 100)"
//	@Param			offset	query		int		false	"Offset into the combined result list"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("q"))
	if utf8.RuneCountInString(text) < h.minQuery {
		writeJSON(w, http.StatusOK, search.Result{Items: []search.Item{}})
		return
	}
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := intQuery(w, r, "offset")
	if !ok {
		return
	}

	res, err := h.search.Search(r.Context(), search.Query{Text: text, Limit: limit, Offset: offset})
	if err != nil {
		slog.Error("search failed", slog.String("query", text), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListActivities handles GET /api/activities.
//
//	@Summary		List the activity log, newest first
//	@Tags			activities
//	@Produce		json
//	@Param			action	query		string	false	"Filter by action, e.g. auto_converted_lead"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ActivityListResponse
//	@Security		BearerAuth
//	@Router			/activities [get]
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	items, total, err := h.svc.ListActivities(r.Context(), r.URL.Query().Get("action"), page)
	if err != nil {
		writeError(w, "list activities", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityListResponse{Activities: nonNil(items), Total: total})
}

// RunConversion handles POST /api/conversion/run.
//
//	@Summary		Run one lead conversion pass now
//	@Tags			conversion
//	@Produce		json
//	@Success		200	{object}	conversion.Report
//	@Failure		409	{object}	errResponse	"A pass is already running"
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversion/run [post]
func (h *Handler) RunConversion(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("conversion worker disabled"))
		return
	}
	report, err := h.runner.RunOnce(r.Context(), conversion.TriggerManual)
	if err != nil {
		if errors.Is(err, conversion.ErrRunInProgress) || errors.Is(err, conversion.ErrLeaseHeld) {
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
			return
		}
		slog.Error("manual conversion failed",
			slog.String("requested_by", Subject(r.Context())),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	slog.Info("manual conversion",
		slog.String("requested_by", Subject(r.Context())),
		slog.String("run_id", report.RunID),
		slog.Int("converted", report.Converted))
	writeJSON(w, http.StatusOK, report)
}
