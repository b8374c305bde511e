package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/kbservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T, files map[string]string) (*Server, string) {
	t.Helper()
	root, store := testutil.TestContent(t, storage.WithExclude("indexes"))
	testutil.WriteFiles(t, root, files)
	svc, err := kbservice.New(store, "indexes", testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Close() })
	return New(svc, "test"), root
}

// callTool invokes a tool handler directly; mcp-go has no in-process call
// helper for tests.
func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"create_document":     srv.createDocument,
		"read_document":       srv.readDocument,
		"list_documents":      srv.listDocuments,
		"list_tags":           srv.listTags,
		"list_categories":     srv.listCategories,
		"search_documents":    srv.searchDocuments,
		"generate_indexes":    srv.generateIndexes,
		"get_document_format": srv.getDocumentFormat,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadDocument(t *testing.T) {
	srv, root := testServer(t, nil)

	r := callTool(t, srv, "create_document", map[string]any{
		"title":    "Deploy Guide",
		"tags":     "ops, deploy",
		"category": "Operations",
		"dir":      "guides",
	})
	if text := resultText(r); text != "created: guides/deploy-guide.md" {
		t.Fatalf("create result = %q", text)
	}
	if _, err := os.Stat(filepath.Join(root, "guides", "deploy-guide.md")); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	r = callTool(t, srv, "read_document", map[string]any{"path": "guides/deploy-guide.md"})
	var doc documentView
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Title != "Deploy Guide" || len(doc.Tags) != 2 || doc.Tags[0] != "deploy" {
		t.Errorf("doc = %+v", doc.Document)
	}
	if !strings.Contains(doc.Content, "{{category: Operations}}") {
		t.Errorf("content = %q", doc.Content)
	}

	r = callTool(t, srv, "create_document", map[string]any{"title": "deploy guide", "dir": "guides"})
	if !r.IsError {
		t.Error("expected conflict error")
	}
}

func TestCreateDocument_Invalid(t *testing.T) {
	srv, _ := testServer(t, nil)
	for _, args := range []map[string]any{{}, {"title": "  "}, {"title": "???"}} {
		if r := callTool(t, srv, "create_document", args); !r.IsError {
			t.Errorf("args %v: expected error", args)
		}
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "read_document", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListAndSearch(t *testing.T) {
	srv, _ := testServer(t, map[string]string{
		"a.md": "---\ntags: [go]\n---\n# Alpha\n{{category: Lang}}\n",
		"b.md": "---\ntags: [Go]\n---\n# Beta\n",
	})

	r := callTool(t, srv, "list_documents", map[string]any{"tag": "go"})
	var docs []models.Document
	_ = json.Unmarshal([]byte(resultText(r)), &docs)
	if len(docs) != 1 || docs[0].Path != "a.md" {
		t.Errorf("filtered docs = %+v", docs)
	}

	r = callTool(t, srv, "list_tags", map[string]any{})
	var tags []models.IndexEntry
	_ = json.Unmarshal([]byte(resultText(r)), &tags)
	if len(tags) != 2 || tags[0].Name != "Go" || tags[1].Name != "go" {
		t.Errorf("tags = %+v", tags)
	}

	r = callTool(t, srv, "list_categories", map[string]any{})
	var cats []models.IndexEntry
	_ = json.Unmarshal([]byte(resultText(r)), &cats)
	if len(cats) != 1 || cats[0].Name != "Lang" || len(cats[0].Documents) != 1 {
		t.Errorf("categories = %+v", cats)
	}

	r = callTool(t, srv, "search_documents", map[string]any{"query": "beta"})
	if !strings.Contains(resultText(r), `"path": "b.md"`) {
		t.Errorf("search = %s", resultText(r))
	}
	r = callTool(t, srv, "search_documents", map[string]any{"query": "zzz"})
	if resultText(r) != "no documents found" {
		t.Errorf("empty search = %q", resultText(r))
	}
}

func TestGenerateIndexes(t *testing.T) {
	srv, root := testServer(t, map[string]string{"a.md": "---\ntags: [go]\n---\n# A\n"})

	r := callTool(t, srv, "generate_indexes", map[string]any{})
	if r.IsError || resultText(r) != "generated 3 pages in indexes" {
		t.Errorf("generate = %q", resultText(r))
	}
	if _, err := os.Stat(filepath.Join(root, "indexes", "tags", "go.md")); err != nil {
		t.Errorf("tag page missing: %v", err)
	}
}

func TestDocumentFormat(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "get_document_format", nil)
	if resultText(r) != DocumentFormat {
		t.Error("format tool should return DocumentFormat")
	}
	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != formatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
