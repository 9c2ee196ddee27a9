package api

import (
	"net/http"
)

// ListContacts handles GET /api/contacts.
//
//	@Summary		List contacts with optional type filter
//	@Tags			contacts
//	@Produce		json
//	@Param			type	query		string	false	"buyer, seller, agent, title_company or other"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ContactListResponse
//	@Security		BearerAuth
//	@Router			/contacts [get]
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	items, total, err := h.svc.ListContacts(r.Context(), r.URL.Query().Get("type"), page)
	if err != nil {
		writeError(w, "list contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, ContactListResponse{Contacts: nonNil(items), Total: total})
}

// GetContact handles GET /api/contacts/{id}.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetContact(r.Context(), id)
	if err != nil {
		writeError(w, "get contact", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateContact handles POST /api/contacts.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := req.model(0)
	if err := h.svc.CreateContact(r.Context(), &c); err != nil {
		writeError(w, "create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContact handles PUT /api/contacts/{id}.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := req.model(id)
	updated, err := h.svc.UpdateContact(r.Context(), &c)
	if err != nil {
		writeError(w, "update contact", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteContact handles DELETE /api/contacts/{id}.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteContact(r.Context(), id); err != nil {
		writeError(w, "delete contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
