// Package sync reconciles the local store against a remote backend
// using whole-snapshot push/pull semantics.
package sync

import (
	"context"
	"errors"
)

// Mode selects the sync backend.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeWebDAV Mode = "webdav"
	ModeServer Mode = "server"
)

// ErrDisabled is returned for sync operations while Mode is "none".
var ErrDisabled = errors.New("sync: disabled")

// Backend is a remote snapshot store. Push always appends a new dated
// snapshot; Pull returns the most recent one.
type Backend interface {
	// TestConnection verifies the backend is reachable and writable.
	TestConnection(ctx context.Context) error
	// Push uploads payload under the given snapshot name.
	Push(ctx context.Context, name string, payload []byte) error
	// Pull downloads the newest snapshot payload.
	Pull(ctx context.Context) ([]byte, error)
}
