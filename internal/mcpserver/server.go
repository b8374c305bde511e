// Package mcpserver exposes the ansuz content tools to LLM clients over
// the Model Context Protocol (stdio transport).
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/creator"
	"github.com/starford/ansuz/internal/kbservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
)

const formatURI = "ansuz://document-format"

// Server wraps the MCP server with ansuz tools.
type Server struct {
	mcp *server.MCPServer
	svc *kbservice.Service
}

// New creates an MCP server with every tool registered.
func New(svc *kbservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"ansuz",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new documentation page with correct front matter. "+
			"The file name is derived from the title; existing files are never overwritten."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("description", mcp.Description("One-line description")),
		mcp.WithString("category", mcp.Description("Category name, written as an inline category marker")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags, e.g. \"go, ops\"")),
		mcp.WithString("author", mcp.Description("Author name")),
		mcp.WithString("dir", mcp.Description("Subdirectory of the content root (default: root)")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the metadata and Markdown body of a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the content root (e.g. guide/setup.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents, optionally filtered by tag and/or category (case-sensitive)."),
		mcp.WithString("tag", mcp.Description("Only documents carrying this tag")),
		mcp.WithString("category", mcp.Description("Only documents in this category")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with its documents."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List every category with its documents."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Search titles, descriptions, bodies, tags and categories."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("generate_indexes",
		mcp.WithDescription("Regenerate the per-tag and per-category listing pages."),
	), s.generateIndexes)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the ansuz document format. Read it before writing documents by hand."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format",
			mcp.WithResourceDescription("Markdown document format used by ansuz."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func optionalString(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError("internal error: " + err.Error())
	}
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Create(ctx, creator.Input{
		Title:       title,
		Description: optionalString(req, "description"),
		Category:    optionalString(req, "category"),
		Tags:        parser.StringSet(optionalString(req, "tags")),
		Author:      optionalString(req, "author"),
		Dir:         optionalString(req, "dir"),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", doc.Path)), nil
}

type documentView struct {
	models.Document
	Content string `json:"content"`
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Document(ctx, p)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(documentView{Document: doc, Content: doc.Body})
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	docs := snap.Registry.Filter(optionalString(req, "tag"), optionalString(req, "category"))
	if docs == nil {
		docs = []models.Document{}
	}
	return jsonResult(docs)
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entriesOrEmpty(snap.Registry.Tags()))
}

func (s *Server) listCategories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entriesOrEmpty(snap.Registry.Categories()))
}

func entriesOrEmpty(entries []models.IndexEntry) []models.IndexEntry {
	if entries == nil {
		return []models.IndexEntry{}
	}
	return entries
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return jsonResult(results)
}

func (s *Server) generateIndexes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.svc.Generate(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("generated %d pages in %s", n, s.svc.OutputDir())), nil
}

func (s *Server) getDocumentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormat), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
