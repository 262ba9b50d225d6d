package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/solo/internal/models"
)

// Result represents one search hit.
type Result struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertNote inserts or replaces a note's searchable representation.
// The HTML body is reduced to plain text before indexing.
func (db *DB) UpsertNote(n models.Note) error {
	body := textContent(n.Content)
	tags := strings.Join(n.Tags, " ")

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, tags, body, time.Now())
	if err != nil {
		return fmt.Errorf("search: upsert note: %w", err)
	}
	if err := ftsUpsert(tx, n.Path, n.Title, body, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note from the index.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)
	return tx.Commit()
}

// Reindex replaces the whole index with the given snapshot.
func (db *DB) Reindex(snap models.Snapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	_, _ = tx.Exec(`DELETE FROM notes`)
	ftsDeleteAll(tx)
	if err := tx.Commit(); err != nil {
		return err
	}
	for _, n := range snap.Notes {
		if err := db.UpsertNote(n); err != nil {
			return err
		}
	}
	return nil
}
