package api

import (
	"net/http"
)

// ListLeads handles GET /api/leads.
//
//	@Summary		List leads with optional status filter
//	@Tags			leads
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	LeadListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/leads [get]
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	items, total, err := h.svc.ListLeads(r.Context(), r.URL.Query().Get("status"), page)
	if err != nil {
		writeError(w, "list leads", err)
		return
	}
	writeJSON(w, http.StatusOK, LeadListResponse{Leads: nonNil(items), Total: total})
}

// GetLead handles GET /api/leads/{id}.
//
//	@Summary		Get a lead
//	@Tags			leads
//	@Produce		json
//	@Param			id	path		int	true	"Lead ID"
//	@Success		200	{object}	models.Lead
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/leads/{id} [get]
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	lead, err := h.svc.GetLead(r.Context(), id)
	if err != nil {
		writeError(w, "get lead", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// CreateLead handles POST /api/leads.
//
//	@Summary		Create a lead
//	@Tags			leads
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LeadRequest	true	"Lead to create"
//	@Success		201		{object}	models.Lead
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/leads [post]
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lead := req.model(0)
	if err := h.svc.CreateLead(r.Context(), &lead); err != nil {
		writeError(w, "create lead", err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// UpdateLead handles PUT /api/leads/{id}.
//
//	@Summary		Replace a lead
//	@Tags			leads
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int			true	"Lead ID"
//	@Param			body	body		LeadRequest	true	"Lead fields"
//	@Success		200		{object}	models.Lead
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/leads/{id} [put]
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req LeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lead := req.model(id)
	updated, err := h.svc.UpdateLead(r.Context(), &lead)
	if err != nil {
		writeError(w, "update lead", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteLead handles DELETE /api/leads/{id}.
//
//	@Summary		Delete a lead
//	@Tags			leads
//	@Param			id	path	int	true	"Lead ID"
//	@Success		204	"Lead deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/leads/{id} [delete]
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteLead(r.Context(), id); err != nil {
		writeError(w, "delete lead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
