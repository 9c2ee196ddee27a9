// Package documents stores signed contract files next to the contract
// records that reference them.
package documents

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/storage"
)

// MaxSize bounds a single document.
const MaxSize = 25 << 20

var (
	// extension -> content type http.DetectContentType reports for it
	allowed = map[string]string{
		".pdf":  "application/pdf",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".txt":  "text/plain",
		".docx": "application/zip",
	}

	mimeToExt = map[string]string{
		"application/pdf": ".pdf",
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"text/plain":      ".txt",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Contracts is the CRM surface the store needs.
type Contracts interface {
	GetContract(ctx context.Context, id int64) (*models.Contract, error)
	AttachDocument(ctx context.Context, id int64, path string) (*models.Contract, error)
}

// Store saves contract documents under contracts/<id>/ in fs.
type Store struct {
	fs        storage.Provider
	contracts Contracts
}

// NewStore creates a document store.
func NewStore(fs storage.Provider, contracts Contracts) *Store {
	return &Store{fs: fs, contracts: contracts}
}

// Document is a stored contract file.
type Document struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// Attach validates data, writes it and points the contract at it. The
// previous document, if any, is left in place.
func (s *Store) Attach(ctx context.Context, contractID int64, filename string, data []byte) (Document, error) {
	if _, err := s.contracts.GetContract(ctx, contractID); err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: document is empty", apperr.ErrValidation)
	}
	if len(data) > MaxSize {
		return Document{}, fmt.Errorf("%w: document too large: %d bytes (max %d)", apperr.ErrValidation, len(data), MaxSize)
	}

	name := SanitizeFilename(filename)
	ctype, err := checkContent(name, data)
	if err != nil {
		return Document{}, err
	}

	// A short random prefix keeps re-uploads of the same name apart.
	rel := path.Join("contracts", fmt.Sprint(contractID), uuid.NewString()[:8]+"-"+name)
	if err := s.fs.Write(rel, data); err != nil {
		return Document{}, fmt.Errorf("documents: save: %w", err)
	}
	if _, err := s.contracts.AttachDocument(ctx, contractID, rel); err != nil {
		_ = s.fs.Delete(rel)
		return Document{}, err
	}
	return Document{Name: name, Path: rel, ContentType: ctype, Size: int64(len(data))}, nil
}

// Open returns the document currently attached to the contract.
func (s *Store) Open(ctx context.Context, contractID int64) (Document, error) {
	c, err := s.contracts.GetContract(ctx, contractID)
	if err != nil {
		return Document{}, err
	}
	if c.DocumentPath == "" {
		return Document{}, fmt.Errorf("documents: contract %d has no document: %w", contractID, apperr.ErrNotFound)
	}
	data, err := s.fs.Read(c.DocumentPath)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, fmt.Errorf("documents: %s: %w", c.DocumentPath, apperr.ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	name := path.Base(c.DocumentPath)
	if i := strings.Index(name, "-"); i >= 0 {
		name = name[i+1:]
	}
	return Document{
		Name:        name,
		Path:        c.DocumentPath,
		ContentType: contentType(name, data),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = uuid.NewString()
	}
	return name
}

// checkContent verifies the extension is allowed and the bytes match it.
func checkContent(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	want, ok := allowed[ext]
	if !ok {
		return "", fmt.Errorf("%w: unsupported file extension %q (allowed: pdf, png, jpg, jpeg, txt, docx)", apperr.ErrValidation, ext)
	}
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if detected != want {
		return "", fmt.Errorf("%w: content does not match extension %s (detected: %s)", apperr.ErrValidation, ext, detected)
	}
	return contentType(name, data), nil
}

func contentType(name string, data []byte) string {
	for mime, ext := range mimeToExt {
		if strings.EqualFold(filepath.Ext(name), ext) {
			return mime
		}
	}
	if strings.EqualFold(filepath.Ext(name), ".jpeg") {
		return "image/jpeg"
	}
	return http.DetectContentType(data)
}

// DecodeDataURI parses a data:<mediatype>;base64,<data> URI and returns the
// bytes and a file extension for the media type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data URI", apperr.ErrValidation)
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: invalid data URI: missing comma separator", apperr.ErrValidation)
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: only base64 data URIs are supported", apperr.ErrValidation)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid base64 data: %v", apperr.ErrValidation, err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := ExtensionFor(mime)
	if ext == "" {
		return nil, "", fmt.Errorf("%w: unsupported MIME type in data URI: %s", apperr.ErrValidation, mime)
	}
	return data, ext, nil
}

// ExtensionFor returns the file extension for an accepted content type, or "".
func ExtensionFor(contentType string) string {
	return mimeToExt[strings.TrimSpace(strings.Split(contentType, ";")[0])]
}
