package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/solo/internal/apperr"
	syncpkg "github.com/starford/solo/internal/sync"
)

// SyncHandler holds the sync-related route handlers.
type SyncHandler struct {
	engine *syncpkg.Engine
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(engine *syncpkg.Engine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

func writeSyncError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, syncpkg.ErrDisabled):
		writeJSON(w, http.StatusConflict, errorBody("sync is disabled"))
	case errors.Is(err, apperr.ErrInvalidSnapshot):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody(op+" failed"))
	}
}

// TestConnection handles POST /sync/test.
func (h *SyncHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.TestConnection(r.Context()); err != nil {
		writeSyncError(w, "connection test", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Push handles POST /sync/push: uploads a new dated snapshot.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	name, err := h.engine.Sync(r.Context())
	if err != nil {
		writeSyncError(w, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"snapshot": name})
}

// Restore handles POST /sync/restore: pulls the newest snapshot and
// replaces the local store with it.
func (h *SyncHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Restore(r.Context()); err != nil {
		writeSyncError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// Import handles POST /sync/import?mode=merge|replace with a snapshot
// body. Merge is additive by id; replace behaves like restore.
func (h *SyncHandler) Import(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode != "merge" && mode != "replace" {
		writeJSON(w, http.StatusBadRequest, errorBody("mode must be merge or replace"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 100<<20)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("read body failed"))
		return
	}
	if err := h.engine.Import(data, mode == "merge"); err != nil {
		writeSyncError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
