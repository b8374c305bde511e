package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

const tmpPrefix = ".ansuz-tmp-"

// FS implements Provider backed by the local file system.
type FS struct {
	root        string // absolute path to the content directory
	exclude     []string
	ignoreFiles []string
	matchers    []*ignore.GitIgnore
}

// Option configures an FS.
type Option func(*FS)

// WithExclude hides the given directories (relative to root) from List.
func WithExclude(dirs ...string) Option {
	return func(f *FS) {
		for _, d := range dirs {
			if d = strings.Trim(path.Clean(filepath.ToSlash(d)), "/"); d != "" && d != "." {
				f.exclude = append(f.exclude, d)
			}
		}
	}
}

// WithIgnoreFiles loads gitignore-style pattern files found at the root.
// Missing files are skipped.
func WithIgnoreFiles(names ...string) Option {
	return func(f *FS) {
		f.ignoreFiles = append(f.ignoreFiles, names...)
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}

	f := &FS{root: abs}
	for _, opt := range opts {
		opt(f)
	}
	for _, name := range f.ignoreFiles {
		p := filepath.Join(abs, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		gi, err := ignore.CompileIgnoreFile(p)
		if err != nil {
			return nil, fmt.Errorf("storage: load ignore file %s: %w", name, err)
		}
		f.matchers = append(f.matchers, gi)
	}
	return f, nil
}

// Root returns the absolute content root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes content root: %s", rel)
	}
	return abs, nil
}

// Ignored reports whether rel is hidden, inside an excluded directory, or
// matched by an ignore file.
func (f *FS) Ignored(rel string) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	for _, d := range f.exclude {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	for _, gi := range f.matchers {
		// Directory patterns ("drafts/") only match with the trailing slash.
		if gi.MatchesPath(rel) || gi.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}

// List walks dir (relative to root) and returns every .md file that is not
// ignored. Unreadable directories and files are returned as entries with
// Err set rather than aborting the walk.
func (f *FS) List(dir string) ([]Entry, error) {
	return f.walk(dir, func(name string) bool { return strings.HasSuffix(name, ".md") })
}

// Files is List without the .md filter: every file that is not
// ignored, assets included.
func (f *FS) Files(dir string) ([]Entry, error) {
	return f.walk(dir, func(string) bool { return true })
}

func (f *FS) walk(dir string, keep func(name string) bool) ([]Entry, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if walkErr != nil {
			if p == base {
				return walkErr
			}
			out = append(out, Entry{Path: rel, Err: walkErr})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p != base && f.Ignored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !keep(d.Name()) {
			return nil
		}
		out = append(out, Entry{Path: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns the raw bytes of a content file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Create atomically writes content to a path that must not exist yet:
// write a tmp file, fsync, hard link, then remove the tmp. The link fails instead of
// replacing an existing file, and the temp file never outlives the call.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	tmpName, err := writeTemp(filepath.Dir(abs), content)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)

	if err := os.Link(tmpName, abs); err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	return nil
}

// ReplaceDir stages files in a temporary sibling directory and swaps it in
// for dir. The previous directory, if any, is removed afterwards. If staging
// fails the existing directory is left untouched.
func (f *FS) ReplaceDir(dir string, files map[string][]byte) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to replace content root")
	}
	parent := filepath.Dir(abs)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	staged, err := os.MkdirTemp(parent, tmpPrefix+"dir-*")
	if err != nil {
		return fmt.Errorf("storage: stage dir: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(staged)
		}
	}()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		target := filepath.Join(staged, filepath.FromSlash(name))
		if !strings.HasPrefix(target, staged+string(os.PathSeparator)) {
			return fmt.Errorf("storage: staged path escapes directory: %s", name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("storage: mkdir: %w", err)
		}
		if err := os.WriteFile(target, files[name], 0o644); err != nil {
			return fmt.Errorf("storage: write %s: %w", name, err)
		}
	}
	if err := os.Chmod(staged, 0o755); err != nil {
		return fmt.Errorf("storage: chmod: %w", err)
	}

	var old string
	if _, err := os.Stat(abs); err == nil {
		old = staged + "-old"
		if err := os.Rename(abs, old); err != nil {
			return fmt.Errorf("storage: move aside %s: %w", dir, err)
		}
	}
	if err := os.Rename(staged, abs); err != nil {
		if old != "" {
			_ = os.Rename(old, abs)
		}
		return fmt.Errorf("storage: swap %s: %w", dir, err)
	}
	success = true
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("storage: remove previous %s: %w", dir, err)
		}
	}
	return nil
}

func writeTemp(dir string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("storage: chmod temp: %w", err)
	}
	success = true
	return tmpName, nil
}

var _ Provider = (*FS)(nil)
