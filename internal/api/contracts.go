package api

import (
	"net/http"
	"strconv"

	"github.com/starford/flipdesk/internal/store"
)

// ListContracts handles GET /api/contracts.
//
//	@Summary		List contracts
//	@Tags			contracts
//	@Produce		json
//	@Param			opportunityId	query		int		false	"Filter by opportunity"
//	@Param			status			query		string	false	"Filter by status"
//	@Param			limit			query		int		false	"Page size"
//	@Param			offset			query		int		false	"Page offset"
//	@Success		200				{object}	ContractListResponse
//	@Security		BearerAuth
//	@Router			/contracts [get]
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	var propertyID int64
	if raw := r.URL.Query().Get("opportunityId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid opportunityId"))
			return
		}
		propertyID = id
	}
	items, total, err := h.svc.ListContracts(r.Context(), store.ContractFilter{
		PropertyID: propertyID,
		Status:     r.URL.Query().Get("status"),
		Page:       page,
	})
	if err != nil {
		writeError(w, "list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, ContractListResponse{Contracts: nonNil(items), Total: total})
}

// GetContract handles GET /api/contracts/{id}.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetContract(r.Context(), id)
	if err != nil {
		writeError(w, "get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateContract handles POST /api/contracts.
//
//	@Summary		Create a contract
//	@Tags			contracts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ContractRequest	true	"Contract to create"
//	@Success		201		{object}	models.Contract
//	@Failure		400		{object}	errResponse	"Invalid fields or unknown opportunity/contact"
//	@Security		BearerAuth
//	@Router			/contracts [post]
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := req.model(0)
	if err := h.svc.CreateContract(r.Context(), &c); err != nil {
		writeError(w, "create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContract handles PUT /api/contracts/{id}.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req ContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := req.model(id)
	updated, err := h.svc.UpdateContract(r.Context(), &c)
	if err != nil {
		writeError(w, "update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteContract handles DELETE /api/contracts/{id}.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteContract(r.Context(), id); err != nil {
		writeError(w, "delete contract", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
