package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/starford/flipdesk/internal/documents"
)

// DocumentHandler accepts and serves contract documents.
type DocumentHandler struct {
	docs *documents.Store
}

// NewDocumentHandler creates a handler over the document store.
func NewDocumentHandler(docs *documents.Store) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Upload handles POST /api/contracts/{id}/document (multipart/form-data, field "file").
//
//	@Summary		Attach a document to a contract
//	@Tags			contracts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		int		true	"Contract ID"
//	@Param			file	formData	file	true	"PDF, image, text or docx file"
//	@Success		201		{object}	DocumentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contracts/{id}/document [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, documents.MaxSize+1<<20)

	if err := r.ParseMultipartForm(documents.MaxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, documents.MaxSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	doc, err := h.docs.Attach(r.Context(), id, header.Filename, data)
	if err != nil {
		writeError(w, "attach document", err)
		return
	}
	writeJSON(w, http.StatusCreated, DocumentUploadResponse{
		Filename: doc.Name,
		Size:     doc.Size,
		URL:      fmt.Sprintf("/api/contracts/%d/document", id),
	})
}

// Download handles GET /api/contracts/{id}/document.
//
//	@Summary		Download the contract's document
//	@Tags			contracts
//	@Produce		octet-stream
//	@Param			id	path	int	true	"Contract ID"
//	@Success		200	{file}	binary
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contracts/{id}/document [get]
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.Open(r.Context(), id)
	if err != nil {
		writeError(w, "open document", err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	http.ServeContent(w, r, doc.Name, time.Time{}, bytes.NewReader(doc.Data))
}
