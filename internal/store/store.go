// Package store holds the in-memory notebook/note graph and keeps it
// consistent with the vault on disk.
//
// The store is the single writer for the vault: structural operations
// (create/rename/delete) go to disk synchronously, content edits are
// debounced per note. All public methods are safe for concurrent use.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/solo/internal/models"
	"github.com/starford/solo/internal/projector"
	"github.com/starford/solo/internal/storage"
)

// DefaultDebounce is the quiescence window for content writes.
const DefaultDebounce = 500 * time.Millisecond

// Change kinds passed to the OnChange callback.
const (
	EventStructureLoaded = "structure.loaded"
	EventNotebookCreated = "notebook.created"
	EventNotebookUpdated = "notebook.updated"
	EventNotebookDeleted = "notebook.deleted"
	EventNoteCreated     = "note.created"
	EventNoteUpdated     = "note.updated"
	EventNoteDeleted     = "note.deleted"
)

// OnChange is invoked after a successful mutation, outside the store
// lock. id is the entity id after the mutation (new path for renames).
type OnChange func(kind, id string)

// Store is the in-memory notebook/note cache backed by a storage
// provider.
type Store struct {
	mu     sync.Mutex
	fs     storage.Provider
	logger *slog.Logger

	debounce time.Duration
	onChange OnChange

	notebooks map[string]*models.Notebook
	notes     map[string]*models.Note

	// Denormalized indices, rebuilt wholesale after every structural
	// mutation.
	notebooksByParent map[string][]string
	notesByNotebook   map[string][]string

	pending  map[string]*pendingSave
	selected string
	writes   *writeLog
}

// Option configures a Store.
type Option func(*Store)

// WithDebounce overrides the content-write debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithOnChange registers a mutation callback.
func WithOnChange(cb OnChange) Option {
	return func(s *Store) { s.onChange = cb }
}

// New creates an empty store. Call LoadFromStorage to populate it.
// The provider is wrapped so every write the store makes is logged for
// WroteRecently.
func New(fs storage.Provider, logger *slog.Logger, opts ...Option) *Store {
	writes := newWriteLog()
	s := &Store{
		fs:                &trackedFS{inner: fs, log: writes},
		logger:            logger,
		debounce:          DefaultDebounce,
		notebooks:         make(map[string]*models.Notebook),
		notes:             make(map[string]*models.Note),
		notebooksByParent: make(map[string][]string),
		notesByNotebook:   make(map[string][]string),
		pending:           make(map[string]*pendingSave),
		writes:            writes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFromStorage replaces the whole in-memory set from a fresh
// projector pass. On failure the store falls back to a single default
// notebook and an empty note set; it is never left partially populated.
func (s *Store) LoadFromStorage() error {
	tree, err := s.fs.ReadStructure()

	s.mu.Lock()
	s.flushAllLocked()

	var res *projector.Result
	if err != nil {
		s.logger.Warn("store: read structure failed, falling back to default notebook",
			slog.String("error", err.Error()))
		res = projector.Project(nil)
	} else {
		res = projector.Project(tree)
	}

	s.notebooks = make(map[string]*models.Notebook, len(res.Notebooks))
	s.notes = make(map[string]*models.Note, len(res.Notes))
	for i := range res.Notebooks {
		nb := res.Notebooks[i]
		s.notebooks[nb.ID] = &nb
	}
	for i := range res.Notes {
		n := res.Notes[i]
		s.notes[n.ID] = &n
	}
	s.selected = ""
	s.rebuildIndices()
	s.mu.Unlock()

	s.emit(EventStructureLoaded, "")
	return err
}

// Close flushes every pending content write. Call on shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushAllLocked()
}

// Notebooks returns all notebooks sorted by path.
func (s *Store) Notebooks() []models.Notebook {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notebook, 0, len(s.notebooks))
	for _, nb := range s.notebooks {
		out = append(out, *nb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Notes returns all notes sorted by path.
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, cloneNote(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// GetNote returns a copy of the note with the given id.
func (s *Store) GetNote(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, false
	}
	return cloneNote(n), true
}

// GetNotebook returns a copy of the notebook with the given id.
func (s *Store) GetNotebook(id string) (models.Notebook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notebooks[id]
	if !ok {
		return models.Notebook{}, false
	}
	return *nb, true
}

// NotebooksByParent returns the child notebooks of parentID ("" for
// roots), sorted by name.
func (s *Store) NotebooksByParent(parentID string) []models.Notebook {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.notebooksByParent[parentID]
	out := make([]models.Notebook, 0, len(ids))
	for _, id := range ids {
		if nb, ok := s.notebooks[id]; ok {
			out = append(out, *nb)
		}
	}
	return out
}

// NotesByNotebook returns the notes of a notebook, sorted by title.
func (s *Store) NotesByNotebook(notebookID string) []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.notesByNotebook[notebookID]
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notes[id]; ok {
			out = append(out, cloneNote(n))
		}
	}
	return out
}

// rebuildIndices recomputes both denormalized indices from scratch.
// Cheap relative to the structural mutation that triggered it, and it
// eliminates index drift by construction.
func (s *Store) rebuildIndices() {
	s.notebooksByParent = make(map[string][]string, len(s.notebooks))
	s.notesByNotebook = make(map[string][]string, len(s.notebooks))
	for id, nb := range s.notebooks {
		s.notebooksByParent[nb.ParentID] = append(s.notebooksByParent[nb.ParentID], id)
	}
	for id, n := range s.notes {
		s.notesByNotebook[n.NotebookID] = append(s.notesByNotebook[n.NotebookID], id)
	}
	for parent, ids := range s.notebooksByParent {
		sort.Slice(ids, func(i, j int) bool {
			return s.notebooks[ids[i]].Name < s.notebooks[ids[j]].Name
		})
		s.notebooksByParent[parent] = ids
	}
	for nb, ids := range s.notesByNotebook {
		sort.Slice(ids, func(i, j int) bool {
			return s.notes[ids[i]].Title < s.notes[ids[j]].Title
		})
		s.notesByNotebook[nb] = ids
	}
}

func (s *Store) emit(kind, id string) {
	if s.onChange != nil {
		s.onChange(kind, id)
	}
}

// isDescendantPath reports whether p equals root or lives under it.
func isDescendantPath(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+"/")
}

// rebasePath rewrites the oldRoot prefix of p to newRoot.
func rebasePath(p, oldRoot, newRoot string) string {
	if p == oldRoot {
		return newRoot
	}
	if strings.HasPrefix(p, oldRoot+"/") {
		return newRoot + strings.TrimPrefix(p, oldRoot)
	}
	return p
}

func cloneNote(n *models.Note) models.Note {
	out := *n
	out.Tags = append([]string(nil), n.Tags...)
	return out
}
