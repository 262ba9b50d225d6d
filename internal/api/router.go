package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth
// group.
func NewRouter(h *Handler, sh *SyncHandler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Structure and notebooks.
	r.Get("/structure", h.GetStructure)
	r.Post("/notebooks", h.CreateNotebook)
	r.Patch("/notebooks/*", h.UpdateNotebook)
	r.Delete("/notebooks/*", h.DeleteNotebook)

	// Notes. select/save are registered before the wildcard routes so
	// chi does not swallow them as note paths.
	r.Post("/notes/select", h.SelectNote)
	r.Post("/notes/save", h.SaveCurrentNote)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Patch("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags/rename", h.RenameTag)
	r.Post("/tags/delete", h.DeleteTag)

	// Search.
	r.Get("/search", h.Search)

	// Sync.
	r.Post("/sync/test", sh.TestConnection)
	r.Post("/sync/push", sh.Push)
	r.Post("/sync/restore", sh.Restore)
	r.Post("/sync/import", sh.Import)
	r.Get("/export", h.Export)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
