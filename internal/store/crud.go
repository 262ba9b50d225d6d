package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/solo/internal/apperr"
	"github.com/starford/solo/internal/models"
)

// NotePatch carries the fields of an UpdateNote call; nil fields are
// left unchanged.
type NotePatch struct {
	Title   *string
	Content *string
	Tags    *[]string
	Theme   *string
}

// NotebookPatch carries the fields of an UpdateNotebook call.
type NotebookPatch struct {
	Name       *string
	IsExpanded *bool
}

// CreateNotebook creates a directory for the new notebook and inserts
// it into the cache. The path returned by the provider becomes the
// notebook's id.
func (s *Store) CreateNotebook(name, parentID string) (models.Notebook, error) {
	s.mu.Lock()

	parentPath := ""
	if parentID != "" {
		parent, ok := s.notebooks[parentID]
		if !ok {
			s.mu.Unlock()
			return models.Notebook{}, fmt.Errorf("store: create notebook: parent %s: %w", parentID, apperr.ErrNotFound)
		}
		parentPath = parent.Path
	}

	path, err := s.fs.CreateNotebook(parentPath, name)
	if err != nil {
		s.mu.Unlock()
		return models.Notebook{}, fmt.Errorf("store: create notebook %q: %w", name, err)
	}

	nb := &models.Notebook{ID: path, Name: name, ParentID: parentID, Path: path}
	s.notebooks[path] = nb
	s.rebuildIndices()
	out := *nb
	s.mu.Unlock()

	s.emit(EventNotebookCreated, out.ID)
	return out, nil
}

// CreateNote creates the HTML+JSON pair on disk and inserts the note
// into the cache with IsLoaded=true and empty content.
func (s *Store) CreateNote(notebookID, title string) (models.Note, error) {
	s.mu.Lock()

	nb, ok := s.notebooks[notebookID]
	if !ok {
		s.mu.Unlock()
		return models.Note{}, fmt.Errorf("store: create note: notebook %s: %w", notebookID, apperr.ErrNotFound)
	}

	htmlPath, _, err := s.fs.CreateNote(nb.Path, title)
	if err != nil {
		s.mu.Unlock()
		return models.Note{}, fmt.Errorf("store: create note %q: %w", title, err)
	}

	note := &models.Note{
		ID:         htmlPath,
		Title:      title,
		Content:    "",
		CreatedAt:  time.Now(),
		Tags:       []string{},
		NotebookID: notebookID,
		Path:       htmlPath,
		IsLoaded:   true,
	}
	s.notes[htmlPath] = note
	s.writeSidecarLocked(note)
	s.rebuildIndices()
	out := cloneNote(note)
	s.mu.Unlock()

	s.emit(EventNoteCreated, out.ID)
	return out, nil
}

// UpdateNote merges the patch into the cached note.
//
// A title change renames both on-disk files first; the cache adopts the
// new id/path only if the rename succeeds. A content change is handed
// to the per-note debounce rather than written synchronously. Every
// update rewrites the JSON sidecar so metadata never lags behind.
func (s *Store) UpdateNote(id string, patch NotePatch) (models.Note, error) {
	s.mu.Lock()

	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return models.Note{}, fmt.Errorf("store: update note %s: %w", id, apperr.ErrNotFound)
	}

	renamedFrom := ""
	if patch.Title != nil && *patch.Title != note.Title {
		// A pending content write keyed by the old id must land before
		// the id changes.
		s.flushNoteLocked(id)
		newPath, err := s.fs.RenameNote(note.Path, *patch.Title)
		if err != nil {
			s.mu.Unlock()
			return models.Note{}, fmt.Errorf("store: rename note %s: %w", id, err)
		}
		delete(s.notes, note.ID)
		renamedFrom = note.ID
		note.ID = newPath
		note.Path = newPath
		note.Title = *patch.Title
		s.notes[newPath] = note
		if s.selected == id {
			s.selected = newPath
		}
		s.rebuildIndices()
	}

	if patch.Content != nil {
		note.Content = *patch.Content
		note.IsLoaded = true
		s.scheduleSaveLocked(note.ID, *patch.Content)
	}
	if patch.Tags != nil {
		note.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.Theme != nil {
		note.Theme = *patch.Theme
	}

	s.writeSidecarLocked(note)
	out := cloneNote(note)
	s.mu.Unlock()

	// A rename retires the old id; consumers keyed by path (search,
	// SSE clients) must drop it before adopting the new one.
	if renamedFrom != "" && renamedFrom != out.ID {
		s.emit(EventNoteDeleted, renamedFrom)
	}
	s.emit(EventNoteUpdated, out.ID)
	return out, nil
}

// UpdateNotebook merges the patch into the cached notebook. A name
// change renames the on-disk directory and cascades the new path to
// every descendant notebook and note. The cascade is computed in
// memory; the provider rename is the sole I/O step, so a failed rename
// leaves the cache untouched.
func (s *Store) UpdateNotebook(id string, patch NotebookPatch) (models.Notebook, error) {
	s.mu.Lock()

	nb, ok := s.notebooks[id]
	if !ok {
		s.mu.Unlock()
		return models.Notebook{}, fmt.Errorf("store: update notebook %s: %w", id, apperr.ErrNotFound)
	}

	if patch.Name != nil && *patch.Name != nb.Name {
		oldPath := nb.Path

		// Pending saves under the old prefix would otherwise fire
		// against paths that no longer exist.
		for nid := range s.pending {
			if isDescendantPath(nid, oldPath) {
				s.flushNoteLocked(nid)
			}
		}

		newPath, err := s.fs.RenameNotebook(oldPath, *patch.Name)
		if err != nil {
			s.mu.Unlock()
			return models.Notebook{}, fmt.Errorf("store: rename notebook %s: %w", id, err)
		}
		s.cascadeRenameLocked(oldPath, newPath, *patch.Name)
		nb = s.notebooks[newPath]
	}

	// Applied after the rename so a failed rename leaves the cache
	// untouched even when the patch carries both fields.
	if patch.IsExpanded != nil {
		nb.IsExpanded = *patch.IsExpanded
	}

	s.rebuildIndices()
	out := *nb
	s.mu.Unlock()

	s.emit(EventNotebookUpdated, out.ID)
	return out, nil
}

// cascadeRenameLocked rewrites every cached path under oldPath to live
// under newPath, including the renamed notebook itself.
func (s *Store) cascadeRenameLocked(oldPath, newPath, newName string) {
	notebooks := make(map[string]*models.Notebook, len(s.notebooks))
	for _, nb := range s.notebooks {
		if isDescendantPath(nb.Path, oldPath) {
			nb.Path = rebasePath(nb.Path, oldPath, newPath)
			nb.ID = nb.Path
			if nb.Path == newPath {
				nb.Name = newName
			}
		}
		nb.ParentID = rebasePath(nb.ParentID, oldPath, newPath)
		notebooks[nb.ID] = nb
	}
	s.notebooks = notebooks

	notes := make(map[string]*models.Note, len(s.notes))
	for _, n := range s.notes {
		if isDescendantPath(n.Path, oldPath) {
			n.Path = rebasePath(n.Path, oldPath, newPath)
			n.ID = n.Path
		}
		n.NotebookID = rebasePath(n.NotebookID, oldPath, newPath)
		notes[n.ID] = n
	}
	s.notes = notes

	s.selected = rebasePath(s.selected, oldPath, newPath)
}

// DeleteNote flushes any pending debounced write for the note (so a
// stale debounce cannot resurrect deleted content), then removes both
// files and the cache entry.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()

	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: delete note %s: %w", id, apperr.ErrNotFound)
	}

	s.dropPendingLocked(id)
	if err := s.fs.DeleteNote(note.Path); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store: delete note %s: %w", id, err)
	}
	delete(s.notes, id)
	if s.selected == id {
		s.selected = ""
	}
	s.rebuildIndices()
	s.mu.Unlock()

	s.emit(EventNoteDeleted, id)
	return nil
}

// DeleteNotebook removes the notebook with all descendant notebooks and
// notes, depth-first. Individual file failures are logged and skipped:
// delete is best-effort and idempotent at the filesystem layer.
func (s *Store) DeleteNotebook(id string) error {
	s.mu.Lock()

	nb, ok := s.notebooks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: delete notebook %s: %w", id, apperr.ErrNotFound)
	}
	root := nb.Path

	var deletedNotes []string
	for nid, n := range s.notes {
		if !isDescendantPath(n.NotebookID, root) {
			continue
		}
		s.dropPendingLocked(nid)
		if err := s.fs.DeleteNote(n.Path); err != nil {
			s.logger.Warn("store: delete note during notebook delete failed",
				slog.String("path", n.Path), slog.String("error", err.Error()))
		}
		delete(s.notes, nid)
		deletedNotes = append(deletedNotes, nid)
	}

	var deletedNotebooks []string
	for nbid, child := range s.notebooks {
		if nbid == id || isDescendantPath(child.Path, root) {
			delete(s.notebooks, nbid)
			deletedNotebooks = append(deletedNotebooks, nbid)
		}
	}

	// One recursive directory removal covers the whole subtree.
	if err := s.fs.DeleteNotebook(root); err != nil {
		s.logger.Warn("store: delete notebook directory failed",
			slog.String("path", root), slog.String("error", err.Error()))
	}

	if isDescendantPath(s.selected, root) {
		s.selected = ""
	}
	s.rebuildIndices()
	s.mu.Unlock()

	for _, nid := range deletedNotes {
		s.emit(EventNoteDeleted, nid)
	}
	for _, nbid := range deletedNotebooks {
		s.emit(EventNotebookDeleted, nbid)
	}
	return nil
}

// LoadNoteContent fetches the note body from disk on first access and
// flips IsLoaded. Already-loaded notes are returned as-is.
func (s *Store) LoadNoteContent(id string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.notes[id]
	if !ok {
		return models.Note{}, fmt.Errorf("store: load note %s: %w", id, apperr.ErrNotFound)
	}
	if note.IsLoaded {
		return cloneNote(note), nil
	}
	content, err := s.fs.OpenFile(note.Path)
	if err != nil {
		return models.Note{}, fmt.Errorf("store: load note %s: %w", id, err)
	}
	note.Content = content
	note.IsLoaded = true
	return cloneNote(note), nil
}

// SetSelectedNote marks the note as currently open, flushing the
// previous note's pending save first. This is the one place the open
// note's dirty state is guaranteed durable before a switch.
func (s *Store) SetSelectedNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.notes[id]; !ok {
			return fmt.Errorf("store: select note %s: %w", id, apperr.ErrNotFound)
		}
	}
	if s.selected != "" && s.selected != id {
		s.flushNoteLocked(s.selected)
	}
	s.selected = id
	return nil
}

// SelectedNote returns the currently open note, if any.
func (s *Store) SelectedNote() (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[s.selected]
	if !ok {
		return models.Note{}, false
	}
	return cloneNote(n), true
}

// SaveCurrentNote synchronously flushes the open note's pending write.
func (s *Store) SaveCurrentNote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != "" {
		s.flushNoteLocked(s.selected)
	}
}

// writeSidecarLocked rewrites the note's JSON sidecar from its current
// metadata. Failures are logged, not surfaced: the cache already holds
// the update and editing must not be interrupted.
func (s *Store) writeSidecarLocked(note *models.Note) {
	meta := models.Sidecar{
		ID:    note.ID,
		Tags:  append([]string(nil), note.Tags...),
		Date:  note.CreatedAt.Format(models.SidecarDateLayout),
		Theme: note.Theme,
	}
	if err := s.fs.UpdateMetadata(note.Path, meta); err != nil {
		s.logger.Warn("store: sidecar write failed",
			slog.String("path", note.Path), slog.String("error", err.Error()))
	}
}
