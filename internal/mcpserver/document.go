package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/flipdesk/internal/documents"
)

type attachResult struct {
	ContractID  int64  `json:"contractId"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func (s *Server) attachDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Documents == nil {
		return mcp.NewToolResultError("document storage disabled"), nil
	}
	id, err := req.RequireInt("contract_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var (
		data []byte
		ext  string
	)
	if strings.HasPrefix(source, "data:") {
		data, ext, err = documents.DecodeDataURI(source)
	} else {
		data, ext, err = fetchHTTP(ctx, source)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := req.GetString("filename", "")
	if filename == "" {
		filename = filenameFromSource(source, ext)
	}

	doc, err := s.Documents.Attach(ctx, int64(id), filename, data)
	if err != nil {
		return toolError(fmt.Sprintf("contract %d", id), err), nil
	}
	out, _ := json.Marshal(attachResult{
		ContractID:  int64(id),
		Filename:    doc.Name,
		Path:        doc.Path,
		ContentType: doc.ContentType,
		Size:        doc.Size,
	})
	return mcp.NewToolResultText(string(out)), nil
}

// fetchHTTP downloads a document from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https or data URIs)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, documents.MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > documents.MaxSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", documents.MaxSize)
	}

	return data, documents.ExtensionFor(resp.Header.Get("Content-Type")), nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}
	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromSource names an upload after the URL path, or "document<ext>"
// for data URIs and bare URLs.
func filenameFromSource(source, ext string) string {
	if !strings.HasPrefix(source, "data:") {
		if parsed, err := url.Parse(source); err == nil {
			base := path.Base(parsed.Path)
			if strings.Contains(base, ".") {
				return base
			}
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return "document" + ext
}
