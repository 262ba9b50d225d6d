package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/solo/internal/apperr"
	"github.com/starford/solo/internal/models"
	"github.com/starford/solo/internal/projector"
)

// Snapshot serializes the full store state. Unloaded note bodies are
// fetched from disk first so the snapshot always carries content.
func (s *Store) Snapshot() (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		Notes:     make([]models.Note, 0, len(s.notes)),
		Notebooks: make([]models.Notebook, 0, len(s.notebooks)),
	}
	for _, nb := range s.notebooks {
		snap.Notebooks = append(snap.Notebooks, *nb)
	}
	for _, n := range s.notes {
		if !n.IsLoaded {
			content, err := s.fs.OpenFile(n.Path)
			if err != nil {
				return models.Snapshot{}, fmt.Errorf("store: snapshot: load %s: %w", n.Path, err)
			}
			n.Content = content
			n.IsLoaded = true
		}
		snap.Notes = append(snap.Notes, cloneNote(n))
	}
	sort.Slice(snap.Notebooks, func(i, j int) bool { return snap.Notebooks[i].Path < snap.Notebooks[j].Path })
	sort.Slice(snap.Notes, func(i, j int) bool { return snap.Notes[i].Path < snap.Notes[j].Path })
	return snap, nil
}

// ApplySnapshot installs a snapshot into the store and writes it
// through to disk.
//
// With merge=false the snapshot replaces the full local set: local
// entities absent from the snapshot are removed (disk deletes are
// best-effort). With merge=true the snapshot is additive by id;
// entities whose ids already exist locally are left alone.
func (s *Store) ApplySnapshot(snap models.Snapshot, merge bool) error {
	if err := ValidateSnapshot(&snap); err != nil {
		return err
	}

	s.mu.Lock()
	s.flushAllLocked()

	if merge {
		s.mergeSnapshotLocked(snap)
	} else {
		s.replaceSnapshotLocked(snap)
	}

	s.rebuildIndices()
	s.mu.Unlock()

	s.emit(EventStructureLoaded, "")
	return nil
}

func (s *Store) replaceSnapshotLocked(snap models.Snapshot) {
	inSnap := make(map[string]struct{}, len(snap.Notes)+len(snap.Notebooks))
	for _, n := range snap.Notes {
		inSnap[n.ID] = struct{}{}
	}
	for _, nb := range snap.Notebooks {
		inSnap[nb.ID] = struct{}{}
	}

	for id, n := range s.notes {
		if _, ok := inSnap[id]; ok {
			continue
		}
		s.dropPendingLocked(id)
		if err := s.fs.DeleteNote(n.Path); err != nil {
			s.logger.Warn("store: restore: delete note failed",
				slog.String("path", n.Path), slog.String("error", err.Error()))
		}
	}
	// Delete absent notebook directories at any depth. Only the
	// top-most absent path of each subtree is removed; the recursive
	// delete covers its descendants.
	absent := make(map[string]struct{})
	for id, nb := range s.notebooks {
		if _, ok := inSnap[id]; ok {
			continue
		}
		if nb.ID == projector.DefaultNotebookID {
			// Synthesized notebook, no directory behind it.
			continue
		}
		absent[nb.Path] = struct{}{}
	}
	doomed := make([]string, 0, len(absent))
	for p := range absent {
		covered := false
		for parent, _ := splitPath(p); parent != ""; parent, _ = splitPath(parent) {
			if _, ok := absent[parent]; ok {
				covered = true
				break
			}
		}
		if !covered {
			doomed = append(doomed, p)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(doomed)))
	for _, p := range doomed {
		if err := s.fs.DeleteNotebook(p); err != nil {
			s.logger.Warn("store: restore: delete notebook failed",
				slog.String("path", p), slog.String("error", err.Error()))
		}
	}

	s.notebooks = make(map[string]*models.Notebook, len(snap.Notebooks))
	s.notes = make(map[string]*models.Note, len(snap.Notes))
	s.selected = ""
	for i := range snap.Notebooks {
		nb := snap.Notebooks[i]
		s.notebooks[nb.ID] = &nb
	}
	for i := range snap.Notes {
		n := snap.Notes[i]
		n.IsLoaded = true
		if n.Tags == nil {
			n.Tags = []string{}
		}
		s.notes[n.ID] = &n
		s.writeNoteFilesLocked(&n)
	}
	s.materializeNotebookDirsLocked()
}

func (s *Store) mergeSnapshotLocked(snap models.Snapshot) {
	for i := range snap.Notebooks {
		nb := snap.Notebooks[i]
		if _, exists := s.notebooks[nb.ID]; exists {
			continue
		}
		s.notebooks[nb.ID] = &nb
	}
	for i := range snap.Notes {
		n := snap.Notes[i]
		if _, exists := s.notes[n.ID]; exists {
			continue
		}
		n.IsLoaded = true
		if n.Tags == nil {
			n.Tags = []string{}
		}
		s.notes[n.ID] = &n
		s.writeNoteFilesLocked(&n)
	}
	s.materializeNotebookDirsLocked()
}

// writeNoteFilesLocked persists a snapshot note's body and sidecar.
// Failures are logged: import/restore is applied as far as possible.
func (s *Store) writeNoteFilesLocked(n *models.Note) {
	if err := s.fs.UpdateFile(n.Path, n.Content); err != nil {
		s.logger.Warn("store: snapshot write failed",
			slog.String("path", n.Path), slog.String("error", err.Error()))
		return
	}
	s.writeSidecarLocked(n)
}

// materializeNotebookDirsLocked creates directories for notebooks that
// hold no notes (note writes create the rest implicitly).
func (s *Store) materializeNotebookDirsLocked() {
	paths := make([]string, 0, len(s.notebooks))
	for _, nb := range s.notebooks {
		paths = append(paths, nb.Path)
	}
	// Parents before children.
	sort.Strings(paths)
	for _, p := range paths {
		parent, name := splitPath(p)
		if _, err := s.fs.CreateNotebook(parent, name); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
			s.logger.Warn("store: snapshot mkdir failed",
				slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

// ValidateSnapshot checks the minimal shape invariants before any
// mutation is attempted.
func ValidateSnapshot(snap *models.Snapshot) error {
	if snap == nil || snap.Notes == nil || snap.Notebooks == nil {
		return apperr.ErrInvalidSnapshot
	}
	for _, n := range snap.Notes {
		if n.ID == "" || n.Path == "" {
			return fmt.Errorf("%w: note missing id or path", apperr.ErrInvalidSnapshot)
		}
	}
	for _, nb := range snap.Notebooks {
		if nb.ID == "" {
			return fmt.Errorf("%w: notebook missing id", apperr.ErrInvalidSnapshot)
		}
	}
	return nil
}

func splitPath(p string) (parent, name string) {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i], p[i+1:]
	}
	return "", p
}
