// Package storage defines the content-root file-system abstraction.
package storage

// Entry is one file found by List or Files. Err is set when the file or the
// directory holding it could not be visited; Path is still filled in.
type Entry struct {
	Path string
	Err  error
}

// Provider is the interface for content file operations. All paths are
// slash-separated and relative to the content root.
type Provider interface {
	// Root returns the absolute content root.
	Root() string
	// List returns every non-ignored .md file under dir, sorted by path.
	List(dir string) ([]Entry, error)
	// Files returns every non-ignored file under dir, sorted by path.
	Files(dir string) ([]Entry, error)
	// Ignored reports whether path is excluded from listing.
	Ignored(path string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Create atomically writes content to path and fails with an error
	// wrapping fs.ErrExist if path already exists.
	Create(path string, content []byte) error
	// ReplaceDir swaps the directory at dir for one holding exactly files
	// (keys relative to dir).
	ReplaceDir(dir string, files map[string][]byte) error
}
