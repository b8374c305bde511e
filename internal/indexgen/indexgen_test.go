package indexgen

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

const outDir = "indexes"

func snapshotDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return out
}

func TestRender_PageContent(t *testing.T) {
	reg := registry.FromDocuments(
		models.Document{Path: "guide/b.md", Title: "Beta", Tags: []string{"dev"}},
		models.Document{Path: "a b.md", Title: "Alpha [draft]", Tags: []string{"dev"}, Categories: []string{"Development"}},
	)
	pages := Render(reg, outDir)

	want := "# dev\n\nDocuments tagged **dev**:\n\n" +
		"- [Alpha \\[draft\\]](../../a%20b.md)\n" +
		"- [Beta](../../guide/b.md)\n"
	if got := string(pages["tags/dev.md"]); got != want {
		t.Errorf("tags/dev.md =\n%s\nwant\n%s", got, want)
	}

	idx := string(pages["tags/index.md"])
	if !strings.Contains(idx, "- [dev](dev.md) (2 documents)") {
		t.Errorf("tags/index.md = %q", idx)
	}
	cat := string(pages["categories/development.md"])
	if !strings.HasPrefix(cat, "# Development\n") || !strings.Contains(cat, "(../../a%20b.md)") {
		t.Errorf("categories/development.md = %q", cat)
	}
	if !strings.Contains(string(pages["categories/index.md"]), "(1 document)") {
		t.Errorf("categories/index.md = %q", pages["categories/index.md"])
	}
}

func TestRender_EmptyRegistry(t *testing.T) {
	pages := Render(registry.FromDocuments(), outDir)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want only the two index pages", len(pages))
	}
	if !bytes.Contains(pages["tags/index.md"], []byte("No tags yet.")) {
		t.Errorf("tags/index.md = %q", pages["tags/index.md"])
	}
}

func TestRender_NestedOutDirLinks(t *testing.T) {
	reg := registry.FromDocuments(models.Document{Path: "x.md", Title: "X", Tags: []string{"t"}})
	pages := Render(reg, "site/generated")
	if !bytes.Contains(pages["tags/t.md"], []byte("(../../../x.md)")) {
		t.Errorf("tags/t.md = %q", pages["tags/t.md"])
	}
}

func TestRender_CollidingTagSlugs(t *testing.T) {
	reg := registry.FromDocuments(
		models.Document{Path: "a.md", Title: "A", Tags: []string{"Go", "go"}},
	)
	pages := Render(reg, outDir)
	if _, ok := pages["tags/go.md"]; !ok {
		t.Error("tags/go.md missing")
	}
	if _, ok := pages["tags/go-2.md"]; !ok {
		t.Error("tags/go-2.md missing")
	}
}

func TestRender_IndexNamedTagKeepsItsPage(t *testing.T) {
	reg := registry.FromDocuments(
		models.Document{Path: "a.md", Title: "A", Tags: []string{"index"}, Categories: []string{"INDEX!"}},
		models.Document{Path: "b.md", Title: "B", Tags: []string{"dev"}},
	)
	pages := Render(reg, outDir)
	if len(pages) != 5 {
		t.Fatalf("pages = %d, want 5: %v", len(pages), keys(pages))
	}
	if !bytes.Contains(pages["tags/index-2.md"], []byte("- [A](../../a.md)")) {
		t.Errorf("tags/index-2.md = %q", pages["tags/index-2.md"])
	}
	if !bytes.Contains(pages["tags/index.md"], []byte("- [index](index-2.md) (1 document)")) {
		t.Errorf("tags/index.md = %q", pages["tags/index.md"])
	}
	if _, ok := pages["categories/index-2.md"]; !ok {
		t.Error("categories/index-2.md missing")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestGenerate_IdempotentAndDeterministic(t *testing.T) {
	root, store := testutil.TestContent(t, storage.WithExclude(outDir))
	testutil.WriteFiles(t, root, map[string]string{
		"one.md":       "---\ntitle: One\ntags: [a, b]\n---\n{{category: K}}",
		"two.md":       "---\ntitle: Two\ntags: [b]\n---\n",
		"sub/three.md": "# Three\n{{category: K}} {{category: L}}",
	})

	gen := New(store, outDir, testutil.Logger())
	reg, err := registry.Build(store, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Generate(reg); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	first := snapshotDir(t, filepath.Join(root, outDir))

	reg2, err := registry.Build(store, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if reg2.Len() != 3 {
		t.Fatalf("generated pages leaked into registry: %d docs", reg2.Len())
	}
	if _, err := gen.Generate(reg2); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second := snapshotDir(t, filepath.Join(root, outDir))

	if len(first) != len(second) {
		t.Fatalf("page count changed: %d vs %d", len(first), len(second))
	}
	for name, content := range first {
		if second[name] != content {
			t.Errorf("%s differs between runs", name)
		}
	}
	// tags a, b; categories K, L; plus two index pages.
	if len(first) != 6 {
		t.Errorf("pages = %d, want 6: %v", len(first), first)
	}
}

func TestGenerate_RemovesOrphans(t *testing.T) {
	root, store := testutil.TestContent(t, storage.WithExclude(outDir))
	testutil.WriteFiles(t, root, map[string]string{
		"doc.md": "---\ntags: [old]\n---\n{{category: Gone}}",
	})
	gen := New(store, outDir, testutil.Logger())

	reg, _ := registry.Build(store, testutil.Logger())
	if _, err := gen.Generate(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, outDir, "tags", "old.md")); err != nil {
		t.Fatalf("tags/old.md not generated: %v", err)
	}

	testutil.WriteFiles(t, root, map[string]string{"doc.md": "---\ntags: [new]\n---\n"})
	reg, _ = registry.Build(store, testutil.Logger())
	if _, err := gen.Generate(reg); err != nil {
		t.Fatal(err)
	}

	pages := snapshotDir(t, filepath.Join(root, outDir))
	if _, ok := pages["tags/old.md"]; ok {
		t.Error("orphaned tags/old.md survived")
	}
	if _, ok := pages["categories/gone.md"]; ok {
		t.Error("orphaned categories/gone.md survived")
	}
	if _, ok := pages["tags/new.md"]; !ok {
		t.Error("tags/new.md missing")
	}
}
