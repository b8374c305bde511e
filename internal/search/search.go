// Package search provides a throwaway in-memory SQLite table over one
// registry snapshot. Nothing is written to disk.
package search

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/registry"
)

const schemaSQL = `
CREATE TABLE documents (
	path        TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '',
	categories  TEXT NOT NULL DEFAULT ''
);
`

// Result is one search hit.
type Result struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Index wraps an in-memory SQLite database.
type Index struct {
	conn *sql.DB
}

// Open creates an empty in-memory index.
func Open() (*Index, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("search: open db: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: apply schema: %w", err)
	}
	return &Index{conn: conn}, nil
}

// Build opens an index and loads reg into it.
func Build(reg *registry.Registry) (*Index, error) {
	idx, err := Open()
	if err != nil {
		return nil, err
	}
	if err := idx.Load(reg); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// Load replaces the indexed rows with the documents of reg.
func (idx *Index) Load(reg *registry.Registry) error {
	tx, err := idx.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("search: clear: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO documents (path, title, description, body, tags, categories)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("search: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range reg.Documents() {
		_, err := stmt.Exec(d.Path, d.Title, d.Description, d.Body,
			joinField(d.Tags), joinField(d.Categories))
		if err != nil {
			return fmt.Errorf("search: insert %s: %w", d.Path, err)
		}
	}
	return tx.Commit()
}

// joinField stores a set as "\x1fa\x1fb\x1f" so LIKE can match whole values.
func joinField(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return "\x1f" + strings.Join(values, "\x1f") + "\x1f"
}

// Search matches query against title, description, body, tags, and
// categories (case-insensitive for ASCII) and returns hits ordered by title
// then path.
func (idx *Index) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := idx.conn.Query(`
		SELECT path, title,
		       CASE WHEN description != '' THEN description ELSE substr(body, 1, 200) END
		FROM documents
		WHERE title LIKE ?1 ESCAPE '\'
		   OR description LIKE ?1 ESCAPE '\'
		   OR body LIKE ?1 ESCAPE '\'
		   OR tags LIKE ?1 ESCAPE '\'
		   OR categories LIKE ?1 ESCAPE '\'
		ORDER BY title, path
		LIMIT ?2
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Close closes the underlying database connection.
func (idx *Index) Close() error {
	return idx.conn.Close()
}
