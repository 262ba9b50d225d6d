// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/solo/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root and use forward slashes; implementations
// must reject any path that escapes the root.
type Provider interface {
	// ReadStructure returns the full directory tree of the vault. The
	// returned root node represents the vault root itself and is not a
	// notebook. For every .html file the sibling sidecar's raw bytes are
	// attached when present.
	ReadStructure() (*models.TreeNode, error)
	// OpenFile returns the content of the file at path.
	OpenFile(path string) (string, error)
	// UpdateFile atomically writes content to path.
	UpdateFile(path, content string) error
	// UpdateMetadata writes the JSON sidecar for the note at path
	// (the .html path; the sidecar lands next to it).
	UpdateMetadata(path string, meta models.Sidecar) error
	// CreateNotebook creates a directory under parentPath and returns
	// the new relative path.
	CreateNotebook(parentPath, name string) (string, error)
	// CreateNote creates the <title>.html/<title>.json pair under
	// parentPath and returns both relative paths.
	CreateNote(parentPath, title string) (htmlPath, jsonPath string, err error)
	// RenameNote renames both files of a note to newName, returning the
	// new .html path.
	RenameNote(path, newName string) (string, error)
	// RenameNotebook renames the directory at path to newName and
	// returns the new relative path.
	RenameNotebook(path, newName string) (string, error)
	// DeleteNote removes both files of a note. A missing sidecar is not
	// an error.
	DeleteNote(path string) error
	// DeleteNotebook removes the directory at path and everything in it.
	DeleteNotebook(path string) error
}
