// Package migrate performs the one-shot transform of the legacy flat
// export into the directory/sidecar layout. It runs once at startup and
// is gated by a persisted flag, so the steady-state store never sees
// two storage formats at once.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/solo/internal/apperr"
	"github.com/starford/solo/internal/projector"
	"github.com/starford/solo/internal/store"
)

const (
	// LegacyFile is the flat export the pre-vault versions wrote.
	LegacyFile = "solo-legacy.json"
	// FlagFile marks migration as completed (or declined) so the user
	// is never re-prompted.
	FlagFile = ".solo-migrated"
)

type legacyNote struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Notebook string   `json:"notebook"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date"`
}

type legacyExport struct {
	Notes []legacyNote `json:"notes"`
}

// Run migrates legacy data into the store if present and enabled.
// The flag is written in every outcome (completed, declined, or
// nothing to migrate) and short-circuits all later startups. Returns
// the number of notes migrated.
func Run(vaultRoot string, st *store.Store, enabled bool, logger *slog.Logger) (int, error) {
	flagPath := filepath.Join(vaultRoot, FlagFile)
	if _, err := os.Stat(flagPath); err == nil {
		return 0, nil
	}

	data, err := os.ReadFile(filepath.Join(vaultRoot, LegacyFile))
	if errors.Is(err, os.ErrNotExist) {
		return 0, writeFlag(flagPath)
	}
	if err != nil {
		return 0, fmt.Errorf("migrate: read legacy export: %w", err)
	}

	if !enabled {
		logger.Info("migrate: legacy export present but migration declined")
		return 0, writeFlag(flagPath)
	}

	var export legacyExport
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("migrate: parse legacy export: %w", err)
	}

	migrated := 0
	notebookIDs := make(map[string]string)
	for _, ln := range export.Notes {
		nbName := strings.TrimSpace(ln.Notebook)
		if nbName == "" {
			nbName = "Imported"
		}
		nbID, ok := notebookIDs[nbName]
		if !ok {
			nb, err := st.CreateNotebook(sanitizeName(nbName), "")
			if err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
				return migrated, fmt.Errorf("migrate: create notebook %q: %w", nbName, err)
			}
			if err == nil {
				nbID = nb.ID
			} else {
				nbID = existingNotebookID(st, sanitizeName(nbName))
			}
			notebookIDs[nbName] = nbID
		}

		title := sanitizeName(ln.Title)
		if title == "" {
			title = "Untitled"
		}
		note, err := st.CreateNote(nbID, title)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			note, err = st.CreateNote(nbID, fmt.Sprintf("%s (%d)", title, migrated+1))
		}
		if err != nil {
			logger.Warn("migrate: create note failed",
				slog.String("title", ln.Title), slog.String("error", err.Error()))
			continue
		}
		content := ln.Content
		tags := ln.Tags
		if tags == nil {
			tags = []string{}
		}
		if _, err := st.UpdateNote(note.ID, store.NotePatch{Content: &content, Tags: &tags}); err != nil {
			logger.Warn("migrate: write note failed",
				slog.String("id", note.ID), slog.String("error", err.Error()))
			continue
		}
		st.FlushNote(note.ID)
		migrated++
	}

	logger.Info("migrate: completed", slog.Int("notes", migrated))
	return migrated, writeFlag(flagPath)
}

func existingNotebookID(st *store.Store, name string) string {
	for _, nb := range st.NotebooksByParent("") {
		if nb.Name == name {
			return nb.ID
		}
	}
	return projector.DefaultNotebookID
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return name
}

func writeFlag(path string) error {
	if err := os.WriteFile(path, []byte("migrated\n"), 0o644); err != nil {
		return fmt.Errorf("migrate: write flag: %w", err)
	}
	return nil
}
