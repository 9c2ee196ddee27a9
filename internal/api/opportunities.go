package api

import (
	"net/http"
)

// ListOpportunities handles GET /api/opportunities.
//
//	@Summary		List opportunities
//	@Tags			opportunities
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	OpportunityListResponse
//	@Security		BearerAuth
//	@Router			/opportunities [get]
func (h *Handler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	items, total, err := h.svc.ListOpportunities(r.Context(), r.URL.Query().Get("status"), page)
	if err != nil {
		writeError(w, "list opportunities", err)
		return
	}
	writeJSON(w, http.StatusOK, OpportunityListResponse{Opportunities: nonNil(items), Total: total})
}

// GetOpportunity handles GET /api/opportunities/{id}.
func (h *Handler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetOpportunity(r.Context(), id)
	if err != nil {
		writeError(w, "get opportunity", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateOpportunity handles POST /api/opportunities.
func (h *Handler) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var req OpportunityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := req.model(0)
	if err := h.svc.CreateOpportunity(r.Context(), &p); err != nil {
		writeError(w, "create opportunity", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateOpportunity handles PUT /api/opportunities/{id}.
func (h *Handler) UpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req OpportunityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := req.model(id)
	updated, err := h.svc.UpdateOpportunity(r.Context(), &p)
	if err != nil {
		writeError(w, "update opportunity", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteOpportunity handles DELETE /api/opportunities/{id}.
func (h *Handler) DeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteOpportunity(r.Context(), id); err != nil {
		writeError(w, "delete opportunity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
