package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flipdesk/internal/documents"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, docs *documents.Store, auth AuthSettings, sseHandler http.Handler) chi.Router {
	dh := NewDocumentHandler(docs)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	r.Route("/leads", func(r chi.Router) {
		r.Get("/", h.ListLeads)
		r.Post("/", h.CreateLead)
		r.Get("/{id}", h.GetLead)
		r.Put("/{id}", h.UpdateLead)
		r.Delete("/{id}", h.DeleteLead)
	})

	r.Route("/opportunities", func(r chi.Router) {
		r.Get("/", h.ListOpportunities)
		r.Post("/", h.CreateOpportunity)
		r.Get("/{id}", h.GetOpportunity)
		r.Put("/{id}", h.UpdateOpportunity)
		r.Delete("/{id}", h.DeleteOpportunity)
	})

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", h.ListContacts)
		r.Post("/", h.CreateContact)
		r.Get("/{id}", h.GetContact)
		r.Put("/{id}", h.UpdateContact)
		r.Delete("/{id}", h.DeleteContact)
	})

	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", h.ListContracts)
		r.Post("/", h.CreateContract)
		r.Get("/{id}", h.GetContract)
		r.Put("/{id}", h.UpdateContract)
		r.Delete("/{id}", h.DeleteContract)
		r.Post("/{id}/document", dh.Upload)
		r.Get("/{id}/document", dh.Download)
	})

	r.Get("/activities", h.ListActivities)
	r.Get("/search", h.Search)
	r.Post("/conversion/run", h.RunConversion)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
