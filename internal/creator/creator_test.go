package creator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/testutil"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

func newCreator(t *testing.T) (string, *Creator) {
	t.Helper()
	root, store := testutil.TestContent(t)
	return root, New(store, testutil.Logger(), WithClock(fixedNow))
}

func mdFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out
}

func TestCreate_RoundTrip(t *testing.T) {
	_, c := newCreator(t)
	path, err := c.Create(context.Background(), Input{
		Title:    "My First Post",
		Tags:     []string{"guide", "dev"},
		Category: "Development",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if path != "my-first-post.md" {
		t.Errorf("path = %q, want my-first-post.md", path)
	}

	reg, err := registry.Build(c.store, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	d, ok := reg.Get(path)
	if !ok {
		t.Fatalf("created document %s not in registry", path)
	}
	if d.Title != "My First Post" {
		t.Errorf("title = %q", d.Title)
	}
	if !reflect.DeepEqual(d.Tags, []string{"dev", "guide"}) {
		t.Errorf("tags = %v, want [dev guide]", d.Tags)
	}
	if !reflect.DeepEqual(d.Categories, []string{"Development"}) {
		t.Errorf("categories = %v, want [Development]", d.Categories)
	}
	if len(reg.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", reg.Warnings())
	}
}

func TestCreate_ContentLayout(t *testing.T) {
	root, c := newCreator(t)
	_, err := c.Create(context.Background(), Input{
		Title:       "Deploy: Step 1",
		Description: "How we ship",
		Author:      "ops",
		Category:    "Operations",
		Tags:        []string{"ops"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "deploy-step-1.md"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "---\ntitle: ") || !strings.Contains(s, "\ndescription: How we ship\nauthor: ops\n") {
		t.Errorf("front matter = %q", s)
	}
	if !strings.Contains(s, "tags:\n  - ops\n---\n\n# Deploy: Step 1\n\n{{category: Operations}}\n\nHow we ship\n") {
		t.Errorf("body layout = %q", s)
	}
	if !strings.Contains(s, "created: \"2026-10-19T09:30:00Z\"") && !strings.Contains(s, "created: 2026-10-19T09:30:00Z") {
		t.Errorf("created timestamp missing: %q", s)
	}
}

func TestCreate_Conflict(t *testing.T) {
	root, c := newCreator(t)
	ctx := context.Background()
	if _, err := c.Create(ctx, Input{Title: "Hello World"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := c.Create(ctx, Input{Title: "hello   world!"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second Create err = %v, want ErrConflict", err)
	}
	if files := mdFiles(t, root); len(files) != 1 || files[0] != "hello-world.md" {
		t.Errorf("files = %v, want only hello-world.md", files)
	}
}

func TestCreate_InvalidTitle(t *testing.T) {
	root, c := newCreator(t)
	for _, title := range []string{"", "   ", "\t\n", "!!!", "two\nlines"} {
		_, err := c.Create(context.Background(), Input{Title: title})
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Create(%q) err = %v, want ErrInvalidInput", title, err)
		}
	}
	if files := mdFiles(t, root); len(files) != 0 {
		t.Errorf("files created on invalid input: %v", files)
	}
}

func TestCreate_InvalidCategoryAndDir(t *testing.T) {
	_, c := newCreator(t)
	ctx := context.Background()
	if _, err := c.Create(ctx, Input{Title: "X", Category: "{{evil}}"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("brace category err = %v", err)
	}
	if _, err := c.Create(ctx, Input{Title: "X", Dir: "../outside"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("traversal dir err = %v", err)
	}
}

func TestCreate_Subdirectory(t *testing.T) {
	root, c := newCreator(t)
	path, err := c.Create(context.Background(), Input{Title: "Nested", Dir: "guides/ops/"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if path != "guides/ops/nested.md" {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(filepath.Join(root, "guides", "ops", "nested.md")); err != nil {
		t.Errorf("file missing: %v", err)
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"My First Post":   "my-first-post.md",
		"  --Hi--  ":      "hi.md",
		"C++ & Go: Notes": "c-go-notes.md",
		"???":             "",
	}
	for in, want := range cases {
		if got := Filename(in); got != want {
			t.Errorf("Filename(%q) = %q, want %q", in, got, want)
		}
	}
}
