package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/solo/internal/apperr"
	"github.com/starford/solo/internal/search"
	"github.com/starford/solo/internal/store"
	"github.com/starford/solo/internal/tags"
)

// Handler holds API route handlers.
type Handler struct {
	store  *store.Store
	tags   *tags.Index
	search *search.DB
}

// NewHandler creates a new Handler.
func NewHandler(st *store.Store, ix *tags.Index, db *search.DB) *Handler {
	return &Handler{store: st, tags: ix, search: db}
}

// entityPath extracts the entity path from the URL wildcard. Supports
// encoded slashes from OpenAPI clients (e.g. journal%2Fday-1.html).
func entityPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := dst.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// GetStructure handles GET /structure: the full notebook/note graph.
// Note bodies are omitted unless already loaded.
func (h *Handler) GetStructure(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notebooks": h.store.Notebooks(),
		"notes":     h.store.Notes(),
	})
}

// CreateNotebook handles POST /notebooks.
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req CreateNotebookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	nb, err := h.store.CreateNotebook(req.Name, req.ParentID)
	if err != nil {
		writeStoreError(w, "create notebook", err)
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

// UpdateNotebook handles PATCH /notebooks/*. A name change cascades the
// new path to every descendant notebook and note.
func (h *Handler) UpdateNotebook(w http.ResponseWriter, r *http.Request) {
	id := entityPath(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	var req UpdateNotebookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	nb, err := h.store.UpdateNotebook(id, store.NotebookPatch{Name: req.Name, IsExpanded: req.IsExpanded})
	if err != nil {
		writeStoreError(w, "update notebook", err)
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// DeleteNotebook handles DELETE /notebooks/*.
func (h *Handler) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	id := entityPath(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.store.DeleteNotebook(id); err != nil {
		writeStoreError(w, "delete notebook", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNote handles POST /notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.store.CreateNote(req.NotebookID, req.Title)
	if err != nil {
		writeStoreError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /notes/*: returns the note with its body loaded.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := entityPath(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	note, err := h.store.LoadNoteContent(id)
	if err != nil {
		writeStoreError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PATCH /notes/*. Content changes are debounced;
// title changes rename the on-disk pair and return the new id.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := entityPath(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	var req UpdateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.store.UpdateNote(id, store.NotePatch{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Theme:   req.Theme,
	})
	if err != nil {
		writeStoreError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/*.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := entityPath(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.store.DeleteNote(id); err != nil {
		writeStoreError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectNote handles POST /notes/select: marks a note as open, flushing
// the previously open note's pending save.
func (h *Handler) SelectNote(w http.ResponseWriter, r *http.Request) {
	var req SelectNoteRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.store.SetSelectedNote(req.ID); err != nil {
		writeStoreError(w, "select note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveCurrentNote handles POST /notes/save: synchronous flush of the
// open note before the client navigates away or closes.
func (h *Handler) SaveCurrentNote(w http.ResponseWriter, _ *http.Request) {
	h.store.SaveCurrentNote()
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /tags: the flat tag set plus the derived tree.
func (h *Handler) ListTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tags": h.tags.Tags(),
		"tree": h.tags.Tree(),
	})
}

// RenameTag handles POST /tags/rename.
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	var req RenameTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.tags.Rename(req.OldPath, req.NewPath)
	if err != nil {
		slog.Error("rename tag failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteTag handles POST /tags/delete.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	var req DeleteTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.tags.Delete(req.Path)
	if err != nil {
		slog.Error("delete tag failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Export handles GET /export: downloads the full {notes, notebooks}
// snapshot as JSON, the same shape sync pushes.
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.store.Snapshot()
	if err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="solo-export.json"`)
	writeJSON(w, http.StatusOK, snap)
}

// Search handles GET /search?q=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
