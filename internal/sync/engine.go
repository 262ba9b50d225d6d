package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/solo/internal/apperr"
	"github.com/starford/solo/internal/models"
	"github.com/starford/solo/internal/store"
)

// Engine drives snapshot push/pull for the configured backend.
type Engine struct {
	mode    Mode
	backend Backend
	store   *store.Store
	logger  *slog.Logger

	now func() time.Time // test seam
}

// NewEngine creates a sync engine. backend may be nil when mode is
// ModeNone.
func NewEngine(mode Mode, backend Backend, st *store.Store, logger *slog.Logger) *Engine {
	return &Engine{mode: mode, backend: backend, store: st, logger: logger, now: time.Now}
}

// Mode returns the configured sync mode.
func (e *Engine) Mode() Mode { return e.mode }

// TestConnection verifies the configured backend is usable.
func (e *Engine) TestConnection(ctx context.Context) error {
	if e.mode == ModeNone || e.backend == nil {
		return ErrDisabled
	}
	return e.backend.TestConnection(ctx)
}

// Sync serializes the full store and pushes it as a new dated snapshot.
// Every push appends; the backend keeps history.
func (e *Engine) Sync(ctx context.Context) (string, error) {
	if e.mode == ModeNone || e.backend == nil {
		return "", ErrDisabled
	}
	snap, err := e.store.Snapshot()
	if err != nil {
		return "", fmt.Errorf("sync: snapshot: %w", err)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("sync: marshal snapshot: %w", err)
	}
	name := e.snapshotName()
	if err := e.backend.Push(ctx, name, payload); err != nil {
		return "", err
	}
	e.logger.Info("sync: pushed snapshot",
		slog.String("name", name),
		slog.Int("notes", len(snap.Notes)),
		slog.Int("notebooks", len(snap.Notebooks)))
	return name, nil
}

// Restore pulls the newest snapshot and applies it with replace
// semantics: the local set becomes exactly the snapshot. Validation
// happens before any mutation of the live store.
func (e *Engine) Restore(ctx context.Context) error {
	if e.mode == ModeNone || e.backend == nil {
		return ErrDisabled
	}
	payload, err := e.backend.Pull(ctx)
	if err != nil {
		return err
	}
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		return err
	}
	if err := e.store.ApplySnapshot(snap, false); err != nil {
		return err
	}
	e.logger.Info("sync: restored snapshot",
		slog.Int("notes", len(snap.Notes)),
		slog.Int("notebooks", len(snap.Notebooks)))
	return nil
}

// Import applies a user-provided JSON export. Unlike restore, the user
// chooses: merge adds entities whose ids are new and leaves existing
// ones alone; replace behaves like restore.
func (e *Engine) Import(data []byte, merge bool) error {
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	return e.store.ApplySnapshot(snap, merge)
}

// snapshotName returns the dated filename for a push, per backend
// convention.
func (e *Engine) snapshotName() string {
	ts := e.now()
	if e.mode == ModeServer {
		return fmt.Sprintf("data-%d.json", ts.UnixMilli())
	}
	return fmt.Sprintf("solo-backup-%s.json", ts.Format("2006-01-02T15-04-05"))
}

// DecodeSnapshot parses and validates a snapshot payload. Some exports
// arrive double-encoded (a JSON string containing JSON); both forms are
// accepted. The notes and notebooks keys must be present.
func DecodeSnapshot(data []byte) (models.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return models.Snapshot{}, fmt.Errorf("%w: %v", apperr.ErrInvalidSnapshot, err)
		}
		trimmed = []byte(inner)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", apperr.ErrInvalidSnapshot, err)
	}
	if _, ok := keys["notes"]; !ok {
		return models.Snapshot{}, fmt.Errorf("%w: missing notes key", apperr.ErrInvalidSnapshot)
	}
	if _, ok := keys["notebooks"]; !ok {
		return models.Snapshot{}, fmt.Errorf("%w: missing notebooks key", apperr.ErrInvalidSnapshot)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", apperr.ErrInvalidSnapshot, err)
	}
	if snap.Notes == nil {
		snap.Notes = []models.Note{}
	}
	if snap.Notebooks == nil {
		snap.Notebooks = []models.Notebook{}
	}
	if err := store.ValidateSnapshot(&snap); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}
