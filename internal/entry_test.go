package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/creator"
	"github.com/starford/ansuz/internal/testutil"
)

func testOptions(t *testing.T, out *bytes.Buffer) (string, []Option) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Content.Root = filepath.Join(t.TempDir(), "docs")
	clock := func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }
	return cfg.Content.Root, []Option{
		WithConfig(cfg),
		WithLogger(testutil.Logger()),
		WithOutput(out),
		WithClock(clock),
	}
}

func TestRequiresConfig(t *testing.T) {
	if err := Generate(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestCreate_PrintsPath(t *testing.T) {
	var out bytes.Buffer
	root, opts := testOptions(t, &out)

	err := Create(context.Background(), creator.Input{Title: "My First Post", Tags: []string{"guide", "dev"}}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "my-first-post.md\n" {
		t.Errorf("output = %q", got)
	}
	data, err := os.ReadFile(filepath.Join(root, "my-first-post.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "created: 2026-10-19T09:30:00Z") && !strings.Contains(string(data), `created: "2026-10-19T09:30:00Z"`) {
		t.Errorf("content = %s", data)
	}

	err = Create(context.Background(), creator.Input{Title: "my first post"}, opts...)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("second create err = %v, want ErrConflict", err)
	}
}

func TestGenerateAndList(t *testing.T) {
	var out bytes.Buffer
	root, opts := testOptions(t, &out)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFiles(t, root, map[string]string{
		"a.md":          "---\ntags: [go, ops]\n---\n# Alpha\n{{category: Dev}}\n",
		"b.md":          "---\ntags: go\n---\n# Beta\n",
		".gitignore":    "drafts/\n",
		"drafts/wip.md": "---\ntags: [secret]\n---\n# WIP\n",
	})

	if err := Generate(context.Background(), opts...); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "generated 5 pages for 2 documents in indexes") {
		t.Errorf("output = %q", out.String())
	}
	for _, p := range []string{"tags/index.md", "tags/go.md", "tags/ops.md", "categories/index.md", "categories/dev.md"} {
		if _, err := os.Stat(filepath.Join(root, "indexes", filepath.FromSlash(p))); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "indexes", "tags", "secret.md")); err == nil {
		t.Error("ignored draft leaked into generated pages")
	}

	out.Reset()
	if err := List(context.Background(), "go", "", opts...); err != nil {
		t.Fatal(err)
	}
	want := "a.md\tAlpha\tgo,ops\nb.md\tBeta\tgo\n"
	if out.String() != want {
		t.Errorf("list = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := List(context.Background(), "", "Dev", opts...); err != nil {
		t.Fatal(err)
	}
	if out.String() != "a.md\tAlpha\tgo,ops\n" {
		t.Errorf("list by category = %q", out.String())
	}
}

func TestBackup_DefaultDirNextToRoot(t *testing.T) {
	var out bytes.Buffer
	root, opts := testOptions(t, &out)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFiles(t, root, map[string]string{
		"a.md":               "# A\n",
		"indexes/tags/a.md":  "# a\n",
		".git/config":        "x",
		"assets/diagram.svg": "<svg/>",
	})

	if err := Backup(context.Background(), "", opts...); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(root), "backups", "docs_20261019_093000.zip")
	if got := out.String(); got != "backed up 2 files to "+want+"\n" {
		t.Errorf("output = %q, want path %s", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}
