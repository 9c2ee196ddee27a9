// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Flipdesk tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/conversion"
	"github.com/starford/flipdesk/internal/crm"
	"github.com/starford/flipdesk/internal/documents"
	"github.com/starford/flipdesk/internal/leadimport"
	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/search"
	"github.com/starford/flipdesk/internal/store"
)

// ImportFormatURI is the resource URI of the lead import format.
const ImportFormatURI = "flipdesk://lead-import-format"

// ConversionRunner runs one conversion pass on demand.
type ConversionRunner interface {
	RunOnce(ctx context.Context, trigger string) (conversion.Report, error)
}

// Deps are the services the tools call into. Runner, Importer and Documents
// may be nil; their tools then report an error.
type Deps struct {
	CRM       *crm.Service
	Search    *search.Aggregator
	Runner    ConversionRunner
	Importer  *leadimport.Importer
	Documents *documents.Store
	MinQuery  int
}

// Server wraps the MCP server with Flipdesk tools.
type Server struct {
	mcp *server.MCPServer
	Deps
}

// New creates a new MCP server with all Flipdesk tools registered.
func New(d Deps) *Server {
	s := &Server{Deps: d}

	s.mcp = server.NewMCPServer(
		"Flipdesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Case-insensitive substring search across leads, opportunities and contacts. "+
			"Results are ordered leads first, then opportunities, then contacts."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text (at least 2 characters)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
		mcp.WithNumber("offset", mcp.Description("Offset into the combined result list")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("get_lead",
		mcp.WithDescription("Get one lead by ID."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Lead ID")),
	), s.getLead)

	s.mcp.AddTool(mcp.NewTool("list_leads",
		mcp.WithDescription("List leads, optionally filtered by pipeline status."),
		mcp.WithString("status", mcp.Description("One of: new, contacted, follow_up, negotiation, under_contract, closed, dead")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listLeads)

	s.mcp.AddTool(mcp.NewTool("create_lead",
		mcp.WithDescription("Create a lead. Leads moved to negotiation or under_contract are converted "+
			"into opportunities by the next conversion pass."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Street address")),
		mcp.WithString("city"),
		mcp.WithString("state"),
		mcp.WithString("zip_code"),
		mcp.WithString("owner_name"),
		mcp.WithString("owner_phone"),
		mcp.WithString("owner_email"),
		mcp.WithNumber("estimated_value", mcp.Description("Estimated property value in dollars")),
		mcp.WithString("status", mcp.Description("Pipeline status (default new)")),
		mcp.WithString("notes"),
	), s.createLead)

	s.mcp.AddTool(mcp.NewTool("run_conversion",
		mcp.WithDescription("Run one lead conversion pass now and return its report."),
	), s.runConversion)

	s.mcp.AddTool(mcp.NewTool("import_leads",
		mcp.WithDescription("Import leads from CSV or YAML content. Read the format first via "+
			"get_import_format or the "+ImportFormatURI+" resource. A file is all-or-nothing."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("File name; the extension (.csv, .yaml, .yml) selects the format")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
	), s.importLeads)

	s.mcp.AddTool(mcp.NewTool("get_import_format",
		mcp.WithDescription("Returns the lead import file format. Call this before import_leads."),
	), s.getImportFormat)

	s.mcp.AddTool(mcp.NewTool("attach_contract_document",
		mcp.WithDescription("Attach a document to a contract from a base64 data URI or an http(s) URL."),
		mcp.WithNumber("contract_id", mcp.Required(), mcp.Description("Contract ID")),
		mcp.WithString("source", mcp.Required(), mcp.Description("data:<mime>;base64,... URI or http(s) URL")),
		mcp.WithString("filename", mcp.Description("File name to store (derived from the source if empty)")),
	), s.attachDocument)

	s.mcp.AddResource(
		mcp.NewResource(ImportFormatURI, "Lead Import Format",
			mcp.WithResourceDescription("CSV and YAML layout accepted by the lead importer."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns service errors into tool results. Not-found errors get a
// short message; everything else is passed through.
func toolError(what string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + what)
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < s.MinQuery {
		return jsonResult(search.Result{Items: []search.Item{}})
	}
	res, err := s.Search.Search(ctx, search.Query{
		Text:   query,
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getLead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lead, err := s.CRM.GetLead(ctx, int64(id))
	if err != nil {
		return toolError(fmt.Sprintf("lead %d", id), err), nil
	}
	return jsonResult(lead)
}

func (s *Server) listLeads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := store.Page{Limit: req.GetInt("limit", 50), Offset: req.GetInt("offset", 0)}
	leads, total, err := s.CRM.ListLeads(ctx, req.GetString("status", ""), page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return jsonResult(map[string]any{"leads": leads, "total": total})
}

func (s *Server) createLead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lead := models.Lead{
		Address:    address,
		City:       req.GetString("city", ""),
		State:      req.GetString("state", ""),
		ZipCode:    req.GetString("zip_code", ""),
		OwnerName:  req.GetString("owner_name", ""),
		OwnerPhone: req.GetString("owner_phone", ""),
		OwnerEmail: req.GetString("owner_email", ""),
		Status:     req.GetString("status", ""),
		Notes:      req.GetString("notes", ""),
		Source:     "mcp",
	}
	if v, err := req.RequireFloat("estimated_value"); err == nil {
		lead.EstimatedValue = &v
	}
	if err := s.CRM.CreateLead(ctx, &lead); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(lead)
}

func (s *Server) runConversion(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Runner == nil {
		return mcp.NewToolResultError("conversion worker disabled"), nil
	}
	report, err := s.Runner.RunOnce(ctx, conversion.TriggerManual)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) importLeads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Importer == nil {
		return mcp.NewToolResultError("lead import disabled"), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.Importer.ImportData(ctx, filename, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getImportFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormat), nil
}

func (s *Server) readImportFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ImportFormatURI,
			MIMEType: "text/markdown",
			Text:     ImportFormat,
		},
	}, nil
}
