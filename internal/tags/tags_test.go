package tags

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/solo/internal/storage"
	"github.com/starford/solo/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storeAt(t *testing.T, dir string) *store.Store {
	t.Helper()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(fs, testLogger())
	if err := st.LoadFromStorage(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return st
}

func newTestIndex(t *testing.T) (*store.Store, *Index, string) {
	t.Helper()
	dir := t.TempDir()
	st := storeAt(t, dir)
	return st, NewIndex(st, testLogger()), dir
}

func addNote(t *testing.T, st *store.Store, nbID, title, content string, tags []string) string {
	t.Helper()
	note, err := st.CreateNote(nbID, title)
	if err != nil {
		t.Fatal(err)
	}
	patch := store.NotePatch{Content: &content}
	if tags != nil {
		patch.Tags = &tags
	}
	if _, err := st.UpdateNote(note.ID, patch); err != nil {
		t.Fatal(err)
	}
	st.FlushNote(note.ID)
	return note.ID
}

func TestTagsUnionOfMetadataAndContent(t *testing.T) {
	st, ix, _ := newTestIndex(t)
	nb, _ := st.CreateNotebook("N", "")
	addNote(t, st, nb.ID, "a", `<p data-tags="from/content">x</p>`, []string{"from/meta"})
	addNote(t, st, nb.ID, "b", `<p>plain</p>`, []string{"from/meta", "only/b"})

	got := ix.Tags()
	want := []string{"from/content", "from/meta", "only/b"}
	if len(got) != len(want) {
		t.Fatalf("tags = %+v, want %v", got, want)
	}
	for i := range want {
		if got[i].Path != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i].Path, want[i])
		}
	}
}

func TestBuildTree(t *testing.T) {
	nodes := BuildTree([]string{"work/active", "work/done", "mood", "work"})
	if len(nodes) != 2 {
		t.Fatalf("roots = %d, want 2", len(nodes))
	}
	// Sorted: mood before work.
	if nodes[0].Path != "mood" || nodes[1].Path != "work" {
		t.Errorf("roots = %q, %q", nodes[0].Path, nodes[1].Path)
	}
	work := nodes[1]
	if len(work.Children) != 2 {
		t.Fatalf("work children = %d, want 2", len(work.Children))
	}
	if work.Children[0].Path != "work/active" || work.Children[0].Name != "active" {
		t.Errorf("child = %+v", work.Children[0])
	}
}

func TestBuildTreeSynthesizesIntermediate(t *testing.T) {
	nodes := BuildTree([]string{"a/b/c"})
	if len(nodes) != 1 || nodes[0].Path != "a" {
		t.Fatalf("roots = %+v", nodes)
	}
	b := nodes[0].Children[0]
	if b.Path != "a/b" || len(b.Children) != 1 || b.Children[0].Path != "a/b/c" {
		t.Errorf("tree shape wrong: %+v", b)
	}
}

func TestRenameRewritesMetadataAndContent(t *testing.T) {
	st, ix, dir := newTestIndex(t)
	nb, _ := st.CreateNotebook("N", "")
	id := addNote(t, st, nb.ID, "a",
		`<p data-tags="mood/happy">good day</p><p data-tags="other">rest</p>`,
		[]string{"mood/happy"})
	untouchedID := addNote(t, st, nb.ID, "b", `<p data-tags="other">nothing here</p>`, nil)

	res, err := ix.Rename("mood/happy", "mood/great")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if res.Changed != 1 || res.Skipped != 0 {
		t.Errorf("result = %+v, want 1 changed", res)
	}

	n, _ := st.GetNote(id)
	if len(n.Tags) != 1 || n.Tags[0] != "mood/great" {
		t.Errorf("metadata tags = %v", n.Tags)
	}
	loaded, _ := st.LoadNoteContent(id)
	if loaded.Content != `<p data-tags="mood/great">good day</p><p data-tags="other">rest</p>` {
		t.Errorf("content = %q", loaded.Content)
	}

	// The rewrite is durable immediately, not after the debounce.
	reload := storeAt(t, dir)
	again, err := reload.LoadNoteContent(id)
	if err != nil {
		t.Fatal(err)
	}
	if again.Content != loaded.Content {
		t.Errorf("rewrite not flushed to disk: %q", again.Content)
	}

	other, _ := st.LoadNoteContent(untouchedID)
	if other.Content != `<p data-tags="other">nothing here</p>` {
		t.Errorf("untouched note changed: %q", other.Content)
	}
}

func TestRenameExactMatchOnly(t *testing.T) {
	st, ix, _ := newTestIndex(t)
	nb, _ := st.CreateNotebook("N", "")
	id := addNote(t, st, nb.ID, "a",
		`<p data-tags="work/active,work/active/archive">x</p>`,
		[]string{"work/active", "work/active/archive"})

	if _, err := ix.Rename("work/active", "work/done"); err != nil {
		t.Fatal(err)
	}

	n, _ := st.GetNote(id)
	if len(n.Tags) != 2 || n.Tags[0] != "work/done" || n.Tags[1] != "work/active/archive" {
		t.Errorf("metadata tags = %v (descendants must not cascade)", n.Tags)
	}
	loaded, _ := st.LoadNoteContent(id)
	if loaded.Content != `<p data-tags="work/done,work/active/archive">x</p>` {
		t.Errorf("content = %q", loaded.Content)
	}
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	st, ix, _ := newTestIndex(t)
	nb, _ := st.CreateNotebook("N", "")
	id := addNote(t, st, nb.ID, "a",
		`<p data-tags="gone">x</p><p data-tags="gone,stay">y</p>`,
		[]string{"gone", "stay"})

	res, err := ix.Delete("gone")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Changed != 1 {
		t.Errorf("result = %+v", res)
	}

	n, _ := st.GetNote(id)
	if len(n.Tags) != 1 || n.Tags[0] != "stay" {
		t.Errorf("metadata tags = %v", n.Tags)
	}
	loaded, _ := st.LoadNoteContent(id)
	if loaded.Content != `<p>x</p><p data-tags="stay">y</p>` {
		t.Errorf("content = %q", loaded.Content)
	}

	for _, tag := range ix.Tags() {
		if tag.Path == "gone" {
			t.Error("deleted tag still listed")
		}
	}
}

func TestRenameEmptyPathRejected(t *testing.T) {
	_, ix, _ := newTestIndex(t)
	if _, err := ix.Rename("", "x"); err == nil {
		t.Error("empty old path accepted")
	}
	if _, err := ix.Rename("x", ""); err == nil {
		t.Error("empty new path accepted")
	}
	if _, err := ix.Delete(""); err == nil {
		t.Error("empty delete path accepted")
	}
}
