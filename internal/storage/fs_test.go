package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/solo/internal/apperr"
	"github.com/starford/solo/internal/models"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestCreateNotePair(t *testing.T) {
	s := tempVault(t)
	htmlPath, jsonPath, err := s.CreateNote("", "hello")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if htmlPath != "hello.html" {
		t.Errorf("html path = %q, want hello.html", htmlPath)
	}
	if jsonPath != "hello.json" {
		t.Errorf("json path = %q, want hello.json", jsonPath)
	}

	content, err := s.OpenFile(htmlPath)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if content != "" {
		t.Errorf("new note body = %q, want empty", content)
	}

	raw, err := s.OpenFile(jsonPath)
	if err != nil {
		t.Fatalf("OpenFile sidecar: %v", err)
	}
	var meta models.Sidecar
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("sidecar is not JSON: %v", err)
	}
	if meta.ID != htmlPath {
		t.Errorf("sidecar id = %q, want %q", meta.ID, htmlPath)
	}
}

func TestCreateNoteAlreadyExists(t *testing.T) {
	s := tempVault(t)
	if _, _, err := s.CreateNote("", "dup"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, _, err := s.CreateNote("", "dup"); err != apperr.ErrAlreadyExists {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateFileAtomic(t *testing.T) {
	s := tempVault(t)
	if err := s.UpdateFile("a/b/note.html", "<p>deep</p>"); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	got, err := s.OpenFile("a/b/note.html")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if got != "<p>deep</p>" {
		t.Errorf("content = %q", got)
	}
}

func TestUpdateFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateFile("note.html", "x"); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "note.html" {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestSafePathRejectsTraversal(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../escape.html", "a/../../escape.html", "/etc/passwd"} {
		if _, err := s.OpenFile(p); err == nil {
			t.Errorf("OpenFile(%q) should fail", p)
		}
	}
}

func TestRenameNoteMovesPair(t *testing.T) {
	s := tempVault(t)
	htmlPath, _, err := s.CreateNote("", "old")
	if err != nil {
		t.Fatal(err)
	}
	newPath, err := s.RenameNote(htmlPath, "new")
	if err != nil {
		t.Fatalf("RenameNote: %v", err)
	}
	if newPath != "new.html" {
		t.Errorf("new path = %q", newPath)
	}
	if _, err := s.OpenFile("new.html"); err != nil {
		t.Errorf("renamed body missing: %v", err)
	}
	if _, err := s.OpenFile("new.json"); err != nil {
		t.Errorf("renamed sidecar missing: %v", err)
	}
	if _, err := s.OpenFile("old.html"); err == nil {
		t.Error("old body should not exist")
	}
}

func TestRenameNoteTargetExists(t *testing.T) {
	s := tempVault(t)
	a, _, _ := s.CreateNote("", "a")
	_, _, _ = s.CreateNote("", "b")
	if _, err := s.RenameNote(a, "b"); err != apperr.ErrAlreadyExists {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestRenameNotebook(t *testing.T) {
	s := tempVault(t)
	path, err := s.CreateNotebook("", "Projects")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.CreateNote(path, "idea"); err != nil {
		t.Fatal(err)
	}
	newPath, err := s.RenameNotebook(path, "Work")
	if err != nil {
		t.Fatalf("RenameNotebook: %v", err)
	}
	if newPath != "Work" {
		t.Errorf("new path = %q", newPath)
	}
	if _, err := s.OpenFile("Work/idea.html"); err != nil {
		t.Errorf("note did not move with directory: %v", err)
	}
}

func TestRenameVaultRootRejected(t *testing.T) {
	s := tempVault(t)
	if _, err := s.RenameNotebook("", "nope"); err == nil {
		t.Error("renaming vault root should fail")
	}
	if err := s.DeleteNotebook(""); err == nil {
		t.Error("deleting vault root should fail")
	}
}

func TestValidNameRejectsSeparators(t *testing.T) {
	s := tempVault(t)
	for _, name := range []string{"a/b", `a\b`, "", ".", ".."} {
		if _, err := s.CreateNotebook("", name); err == nil {
			t.Errorf("CreateNotebook(%q) should fail", name)
		}
	}
}

func TestDeleteNotePair(t *testing.T) {
	s := tempVault(t)
	htmlPath, _, _ := s.CreateNote("", "gone")
	if err := s.DeleteNote(htmlPath); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := s.OpenFile("gone.html"); err == nil {
		t.Error("body should be deleted")
	}
	if _, err := s.OpenFile("gone.json"); err == nil {
		t.Error("sidecar should be deleted")
	}
	// Idempotent.
	if err := s.DeleteNote(htmlPath); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestDeleteNotebookRecursive(t *testing.T) {
	s := tempVault(t)
	p, _ := s.CreateNotebook("", "outer")
	c, _ := s.CreateNotebook(p, "inner")
	_, _, _ = s.CreateNote(c, "deep")
	if err := s.DeleteNotebook(p); err != nil {
		t.Fatalf("DeleteNotebook: %v", err)
	}
	if _, err := s.OpenFile("outer/inner/deep.html"); err == nil {
		t.Error("subtree should be gone")
	}
}

func TestReadStructure(t *testing.T) {
	s := tempVault(t)
	nb, _ := s.CreateNotebook("", "Journal")
	htmlPath, _, err := s.CreateNote(nb, "day-1")
	if err != nil {
		t.Fatal(err)
	}
	// Non-html files must be invisible.
	if err := s.UpdateFile("Journal/scratch.txt", "ignore me"); err != nil {
		t.Fatal(err)
	}

	tree, err := s.ReadStructure()
	if err != nil {
		t.Fatalf("ReadStructure: %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("root children = %d, want 1", len(tree.Children))
	}
	dir := tree.Children[0]
	if !dir.IsDir || dir.Path != "Journal" {
		t.Fatalf("dir node = %+v", dir)
	}
	if len(dir.Children) != 1 {
		t.Fatalf("dir children = %d, want 1 (sidecar and txt skipped)", len(dir.Children))
	}
	note := dir.Children[0]
	if note.Path != htmlPath {
		t.Errorf("note path = %q, want %q", note.Path, htmlPath)
	}
	if len(note.Sidecar) == 0 {
		t.Error("sidecar bytes not attached")
	}
}

func TestReadStructureSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".solo-migrated"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	tree, err := s.ReadStructure()
	if err != nil {
		t.Fatalf("ReadStructure: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("hidden entries leaked into tree: %+v", tree.Children)
	}
}
