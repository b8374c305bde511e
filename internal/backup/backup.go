// Package backup archives the content tree into a timestamped zip file.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/starford/ansuz/internal/storage"
)

// Name returns the archive file name for a content root and time,
// e.g. "docs_20261019_093000.zip".
func Name(root string, at time.Time) string {
	return fmt.Sprintf("%s_%s.zip", filepath.Base(root), at.Format("20060102_150405"))
}

// Write streams every non-ignored file of store into a zip archive on w and
// returns the number of files written. Hidden paths such as .git and the
// generated output directory are skipped by the store's ignore rules.
func Write(ctx context.Context, store storage.Provider, w io.Writer, logger *slog.Logger) (int, error) {
	entries, err := store.Files("")
	if err != nil {
		return 0, fmt.Errorf("backup: list: %w", err)
	}

	zw := zip.NewWriter(w)
	n := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return n, err
		}
		if e.Err != nil {
			logger.Warn("backup: skipping unreadable path", slog.String("path", e.Path), slog.String("error", e.Err.Error()))
			continue
		}
		data, err := store.Read(e.Path)
		if err != nil {
			logger.Warn("backup: skipping unreadable file", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.Path, Method: zip.Deflate})
		if err != nil {
			_ = zw.Close()
			return n, fmt.Errorf("backup: add %s: %w", e.Path, err)
		}
		if _, err := fw.Write(data); err != nil {
			_ = zw.Close()
			return n, fmt.Errorf("backup: write %s: %w", e.Path, err)
		}
		n++
	}
	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("backup: finish archive: %w", err)
	}
	return n, nil
}

// Create writes the archive for store into dir under Name(root, at). The
// file appears only once complete; a failed run leaves nothing behind.
func Create(ctx context.Context, store storage.Provider, dir string, at time.Time, logger *slog.Logger) (string, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("backup: create dir: %w", err)
	}
	target := filepath.Join(dir, Name(store.Root(), at))
	if _, err := os.Stat(target); err == nil {
		return "", 0, fmt.Errorf("backup: %s already exists", target)
	}

	tmp, err := os.CreateTemp(dir, ".ansuz-backup-*")
	if err != nil {
		return "", 0, fmt.Errorf("backup: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := Write(ctx, store, tmp, logger)
	if err != nil {
		_ = tmp.Close()
		return "", 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", 0, fmt.Errorf("backup: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("backup: close: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", 0, fmt.Errorf("backup: rename: %w", err)
	}

	logger.Info("Backup created", slog.String("path", target), slog.Int("files", n))
	return target, n, nil
}
