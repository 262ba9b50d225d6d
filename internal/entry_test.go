package internal

import (
	"testing"

	"github.com/starford/solo/internal/search"
	"github.com/starford/solo/internal/storage"
	"github.com/starford/solo/internal/store"
	"github.com/starford/solo/internal/testutil"
)

// newSearchWiredStore builds a store whose mutations feed updateSearch,
// mirroring the wiring in Run.
func newSearchWiredStore(t *testing.T) (*store.Store, *search.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	logger := testutil.TestLogger()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var st *store.Store
	st = store.New(fs, logger, store.WithOnChange(func(kind, id string) {
		updateSearch(st, db, logger, kind, id)
	}))
	if err := st.LoadFromStorage(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return st, db
}

func TestUpdateSearchFollowsNoteRename(t *testing.T) {
	st, db := newSearchWiredStore(t)

	nb, err := st.CreateNotebook("N", "")
	if err != nil {
		t.Fatal(err)
	}
	note, err := st.CreateNote(nb.ID, "draft")
	if err != nil {
		t.Fatal(err)
	}
	content := "<p>findable words</p>"
	if _, err := st.UpdateNote(note.ID, store.NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}

	title := "final"
	if _, err := st.UpdateNote(note.ID, store.NotePatch{Title: &title}); err != nil {
		t.Fatal(err)
	}

	// Exactly one hit, keyed by the new path: the old row must be gone.
	results, err := db.Search("findable", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v, want exactly one", results)
	}
	if results[0].Path != "N/final.html" {
		t.Errorf("indexed path = %q, want N/final.html", results[0].Path)
	}
}

func TestUpdateSearchDropsDeletedNotes(t *testing.T) {
	st, db := newSearchWiredStore(t)

	nb, _ := st.CreateNotebook("N", "")
	note, _ := st.CreateNote(nb.ID, "gone")
	content := "<p>ephemeral</p>"
	if _, err := st.UpdateNote(note.ID, store.NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteNote(note.ID); err != nil {
		t.Fatal(err)
	}

	if results, _ := db.Search("ephemeral", 10); len(results) != 0 {
		t.Errorf("deleted note still indexed: %+v", results)
	}
}
