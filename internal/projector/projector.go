// Package projector turns a vault directory tree into notebook and note
// records.
package projector

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/starford/solo/internal/models"
)

// DefaultNotebookID is the id of the notebook synthesized when the vault
// holds no directories at all, so new notes always have a home.
const DefaultNotebookID = "default"

// Result holds the projected structure of a vault.
type Result struct {
	Notebooks []models.Notebook
	Notes     []models.Note
}

// Project walks the tree rooted at root (the vault root, which is not
// itself a notebook) and produces notebooks and notes. Sidecar metadata
// that is absent or unparseable is treated as empty; discovery never
// fails on a single bad file.
func Project(root *models.TreeNode) *Result {
	res := &Result{}
	if root != nil {
		for _, child := range root.Children {
			projectNode(child, "", res)
		}
	}
	if len(res.Notebooks) == 0 {
		res.Notebooks = append(res.Notebooks, models.Notebook{
			ID:   DefaultNotebookID,
			Name: "My Notes",
			Path: DefaultNotebookID,
		})
	}
	// Loose .html files at the vault root (dropped there by external
	// tools) have no containing directory; adopt them into the first
	// root notebook so every note's notebook id resolves.
	rootID := ""
	for _, nb := range res.Notebooks {
		if nb.ParentID == "" {
			rootID = nb.ID
			break
		}
	}
	for i := range res.Notes {
		if res.Notes[i].NotebookID == "" {
			res.Notes[i].NotebookID = rootID
		}
	}
	return res
}

func projectNode(node *models.TreeNode, parentID string, res *Result) {
	if node.IsDir {
		res.Notebooks = append(res.Notebooks, models.Notebook{
			ID:       node.Path,
			Name:     node.Name,
			ParentID: parentID,
			Path:     node.Path,
		})
		for _, child := range node.Children {
			projectNode(child, node.Path, res)
		}
		return
	}
	if !strings.HasSuffix(node.Name, ".html") {
		return
	}
	res.Notes = append(res.Notes, projectNote(node, parentID))
}

func projectNote(node *models.TreeNode, notebookID string) models.Note {
	note := models.Note{
		ID:         node.Path,
		Title:      strings.TrimSuffix(node.Name, ".html"),
		CreatedAt:  time.Now(),
		Tags:       []string{},
		NotebookID: notebookID,
		Path:       node.Path,
	}
	if len(node.Sidecar) == 0 {
		return note
	}
	var meta models.Sidecar
	if err := json.Unmarshal(node.Sidecar, &meta); err != nil {
		// Bad sidecar: keep the note, drop the metadata.
		return note
	}
	if meta.Tags != nil {
		note.Tags = meta.Tags
	}
	if meta.Theme != "" {
		note.Theme = meta.Theme
	}
	if meta.Date != "" {
		if t, err := time.Parse(models.SidecarDateLayout, meta.Date); err == nil {
			note.CreatedAt = t
		}
	}
	return note
}
