package projector

import (
	"testing"
	"time"

	"github.com/starford/solo/internal/models"
)

func TestProjectEmptyVaultSynthesizesDefault(t *testing.T) {
	for _, root := range []*models.TreeNode{nil, {IsDir: true}} {
		res := Project(root)
		if len(res.Notebooks) != 1 {
			t.Fatalf("notebooks = %d, want 1", len(res.Notebooks))
		}
		nb := res.Notebooks[0]
		if nb.ID != DefaultNotebookID || nb.Name != "My Notes" {
			t.Errorf("default notebook = %+v", nb)
		}
		if len(res.Notes) != 0 {
			t.Errorf("notes = %d, want 0", len(res.Notes))
		}
	}
}

func TestProjectTree(t *testing.T) {
	root := &models.TreeNode{
		IsDir: true,
		Children: []*models.TreeNode{
			{
				Name: "Projects", Path: "Projects", IsDir: true,
				Children: []*models.TreeNode{
					{
						Name: "Ideas", Path: "Projects/Ideas", IsDir: true,
						Children: []*models.TreeNode{
							{Name: "roadmap.html", Path: "Projects/Ideas/roadmap.html",
								Sidecar: []byte(`{"id":"Projects/Ideas/roadmap.html","tags":["work/active"],"date":"2024-03-01"}`)},
						},
					},
					{Name: "notes.html", Path: "Projects/notes.html"},
				},
			},
		},
	}

	res := Project(root)
	if len(res.Notebooks) != 2 {
		t.Fatalf("notebooks = %d, want 2", len(res.Notebooks))
	}
	if res.Notebooks[0].ID != "Projects" || res.Notebooks[0].ParentID != "" {
		t.Errorf("root notebook = %+v", res.Notebooks[0])
	}
	if res.Notebooks[1].ID != "Projects/Ideas" || res.Notebooks[1].ParentID != "Projects" {
		t.Errorf("child notebook = %+v", res.Notebooks[1])
	}

	if len(res.Notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(res.Notes))
	}
	roadmap := res.Notes[0]
	if roadmap.ID != "Projects/Ideas/roadmap.html" {
		t.Fatalf("note id = %q", roadmap.ID)
	}
	if roadmap.Title != "roadmap" {
		t.Errorf("title = %q, want stem of file name", roadmap.Title)
	}
	if roadmap.NotebookID != "Projects/Ideas" {
		t.Errorf("notebook id = %q", roadmap.NotebookID)
	}
	if roadmap.IsLoaded {
		t.Error("projected note must start unloaded")
	}
	if len(roadmap.Tags) != 1 || roadmap.Tags[0] != "work/active" {
		t.Errorf("tags = %v", roadmap.Tags)
	}
	want, _ := time.Parse(models.SidecarDateLayout, "2024-03-01")
	if !roadmap.CreatedAt.Equal(want) {
		t.Errorf("createdAt = %v, want %v", roadmap.CreatedAt, want)
	}
}

func TestProjectBadSidecarTolerated(t *testing.T) {
	root := &models.TreeNode{
		IsDir: true,
		Children: []*models.TreeNode{
			{Name: "a.html", Path: "a.html", Sidecar: []byte("{not json")},
		},
	}
	res := Project(root)
	if len(res.Notes) != 1 {
		t.Fatalf("notes = %d, want 1 (note kept despite bad sidecar)", len(res.Notes))
	}
	n := res.Notes[0]
	if len(n.Tags) != 0 {
		t.Errorf("tags = %v, want empty", n.Tags)
	}
	if n.Tags == nil {
		t.Error("tags must be non-nil")
	}
	if n.CreatedAt.IsZero() {
		t.Error("createdAt should fall back to now")
	}
}

func TestProjectRootNotesLandInRootNotebook(t *testing.T) {
	root := &models.TreeNode{
		IsDir: true,
		Children: []*models.TreeNode{
			{Name: "loose.html", Path: "loose.html"},
		},
	}
	res := Project(root)
	if len(res.Notes) != 1 {
		t.Fatalf("notes = %d", len(res.Notes))
	}
	// No directories at all: the default notebook is synthesized and
	// adopts the loose note.
	if len(res.Notebooks) != 1 || res.Notebooks[0].ID != DefaultNotebookID {
		t.Errorf("notebooks = %+v", res.Notebooks)
	}
	if res.Notes[0].NotebookID != DefaultNotebookID {
		t.Errorf("root note notebook = %q, want %q", res.Notes[0].NotebookID, DefaultNotebookID)
	}
}

func TestProjectRootNotesAdoptedByFirstRootNotebook(t *testing.T) {
	root := &models.TreeNode{
		IsDir: true,
		Children: []*models.TreeNode{
			{Name: "Journal", Path: "Journal", IsDir: true},
			{Name: "loose.html", Path: "loose.html"},
		},
	}
	res := Project(root)
	if len(res.Notes) != 1 {
		t.Fatalf("notes = %d", len(res.Notes))
	}
	if res.Notes[0].NotebookID != "Journal" {
		t.Errorf("root note notebook = %q, want Journal", res.Notes[0].NotebookID)
	}
}
