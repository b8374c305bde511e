package backup

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

func archived(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestName(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 5, 0, time.UTC)
	if got := Name("/srv/kb/docs", at); got != "docs_20261019_093005.zip" {
		t.Errorf("Name = %q", got)
	}
}

func TestCreate_ArchivesContentOnly(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		".gitignore":         "drafts/\n",
		"a.md":               "# A\n",
		"guide/b.md":         "# B\n",
		"img/logo.png":       "png",
		".git/HEAD":          "ref: main\n",
		"drafts/wip.md":      "# WIP\n",
		"indexes/tags/go.md": "# go\n",
	})
	store, err := storage.NewFS(root, storage.WithExclude("indexes"), storage.WithIgnoreFiles(".gitignore"))
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "backups")
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	path, n, err := Create(context.Background(), store, dir, at, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != Name(root, at) {
		t.Errorf("path = %q", path)
	}
	if n != 3 {
		t.Errorf("files = %d, want 3", n)
	}

	files := archived(t, path)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	want := []string{"a.md", "guide/b.md", "img/logo.png"}
	if len(names) != len(want) {
		t.Fatalf("archive = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("archive[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if files["guide/b.md"] != "# B\n" {
		t.Errorf("guide/b.md = %q", files["guide/b.md"])
	}

	if _, _, err := Create(context.Background(), store, dir, at, testutil.Logger()); err == nil {
		t.Error("second backup with the same timestamp should fail")
	}
}

func TestWrite_CancelledContext(t *testing.T) {
	root, store := testutil.TestContent(t)
	testutil.WriteFiles(t, root, map[string]string{"a.md": "# A\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Write(ctx, store, io.Discard, testutil.Logger()); err == nil {
		t.Error("expected context error")
	}
}
