// Package models defines the domain types for Solo.
package models

import "time"

// SidecarDateLayout is the on-disk date format used in note sidecars.
const SidecarDateLayout = "2006-01-02"

// Notebook is a folder-like container of notes and child notebooks,
// backed by a real directory in the vault. ID equals the notebook's
// relative directory path; ParentID is the containing directory's path,
// or "" for a root notebook.
type Notebook struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentID   string `json:"parentId,omitempty"`
	IsExpanded bool   `json:"isExpanded"`
	Path       string `json:"path"`
}

// Note represents a single note backed by an .html body and a .json
// metadata sidecar sharing the same base name. ID equals the relative
// path of the .html file.
//
// Content is lazily loaded: notes discovered during a structure scan
// start with IsLoaded=false and an empty Content.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Tags       []string  `json:"tags"`
	Theme      string    `json:"theme,omitempty"`
	NotebookID string    `json:"notebookId"`
	Path       string    `json:"path"`
	IsLoaded   bool      `json:"isLoaded"`
}

// Sidecar is the JSON metadata file co-located with a note's .html body.
type Sidecar struct {
	ID    string   `json:"id"`
	Tags  []string `json:"tags"`
	Date  string   `json:"date"`
	Theme string   `json:"theme,omitempty"`
}

// Tag is a hierarchical tag path such as "work/projects/active".
// ID and Path are the same value; the pair exists so API consumers get
// a stable shape.
type Tag struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// TagNode is one node of the tag prefix tree derived from the flat tag
// set. It is rebuilt on demand and never persisted.
type TagNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Children []*TagNode `json:"children,omitempty"`
}

// Snapshot is the full serialized {notes, notebooks} payload used for
// sync push/pull and import/export.
type Snapshot struct {
	Notes     []Note     `json:"notes"`
	Notebooks []Notebook `json:"notebooks"`
}

// TreeNode is one entry of the raw directory listing returned by the
// storage provider. For .html files the sibling sidecar's raw bytes are
// attached (nil when absent); parsing is the projector's job.
type TreeNode struct {
	Name     string
	Path     string
	IsDir    bool
	Sidecar  []byte
	Children []*TreeNode
}
