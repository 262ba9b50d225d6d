package store

import (
	"testing"
	"time"

	"github.com/starford/solo/internal/storage"
)

// newDebouncedStore builds a store with a short debounce window over a
// counting provider so tests can assert how many writes actually hit
// the disk.
func newDebouncedStore(t *testing.T, window time.Duration) (*Store, *countingFS) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfs := newCountingFS(fs)
	st := New(cfs, testLogger(), WithDebounce(window))
	if err := st.LoadFromStorage(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return st, cfs
}

func TestDebounceCollapsesRapidEdits(t *testing.T) {
	s, cfs := newDebouncedStore(t, 40*time.Millisecond)
	nb, _ := s.CreateNotebook("N", "")
	note, _ := s.CreateNote(nb.ID, "n")
	base := cfs.count(note.ID)

	for i := 0; i < 10; i++ {
		content := "<p>draft</p>"
		if i == 9 {
			content = "<p>final</p>"
		}
		if _, err := s.UpdateNote(note.ID, NotePatch{Content: &content}); err != nil {
			t.Fatal(err)
		}
	}

	// Still inside the window: nothing flushed yet.
	if got := cfs.count(note.ID) - base; got != 0 {
		t.Fatalf("writes before window elapsed = %d, want 0", got)
	}

	time.Sleep(200 * time.Millisecond)

	if got := cfs.count(note.ID) - base; got != 1 {
		t.Errorf("writes after window = %d, want exactly 1", got)
	}
	content, err := cfs.OpenFile(note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if content != "<p>final</p>" {
		t.Errorf("disk content = %q, want the last edit only", content)
	}
}

func TestFlushNoteWritesImmediately(t *testing.T) {
	s, cfs := newDebouncedStore(t, time.Hour)
	nb, _ := s.CreateNotebook("N", "")
	note, _ := s.CreateNote(nb.ID, "n")
	base := cfs.count(note.ID)

	content := "<p>dirty</p>"
	if _, err := s.UpdateNote(note.ID, NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	s.FlushNote(note.ID)

	if got := cfs.count(note.ID) - base; got != 1 {
		t.Fatalf("writes = %d, want 1", got)
	}
	// Flush is idempotent once the pending entry is gone.
	s.FlushNote(note.ID)
	if got := cfs.count(note.ID) - base; got != 1 {
		t.Errorf("writes after second flush = %d, want still 1", got)
	}
}

func TestDeleteDropsPendingWrite(t *testing.T) {
	s, cfs := newDebouncedStore(t, 30*time.Millisecond)
	nb, _ := s.CreateNotebook("N", "")
	note, _ := s.CreateNote(nb.ID, "n")
	base := cfs.count(note.ID)

	content := "<p>zombie</p>"
	if _, err := s.UpdateNote(note.ID, NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteNote(note.ID); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)

	if got := cfs.count(note.ID) - base; got != 0 {
		t.Errorf("debounced write fired after delete: %d writes", got)
	}
	if _, err := cfs.OpenFile(note.ID); err == nil {
		t.Error("deleted note came back to disk")
	}
}

func TestTitleRenameFlushesPendingFirst(t *testing.T) {
	s, _ := newDebouncedStore(t, time.Hour)
	nb, _ := s.CreateNotebook("N", "")
	note, _ := s.CreateNote(nb.ID, "draft")

	content := "<p>keep me</p>"
	if _, err := s.UpdateNote(note.ID, NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	title := "final"
	renamed, err := s.UpdateNote(note.ID, NotePatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadNoteContent(renamed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Content != "<p>keep me</p>" {
		t.Errorf("content after rename = %q", loaded.Content)
	}
}

func TestSwitchingSelectionFlushesPrevious(t *testing.T) {
	s, cfs := newDebouncedStore(t, time.Hour)
	nb, _ := s.CreateNotebook("N", "")
	a, _ := s.CreateNote(nb.ID, "a")
	b, _ := s.CreateNote(nb.ID, "b")

	if err := s.SetSelectedNote(a.ID); err != nil {
		t.Fatal(err)
	}
	content := "<p>a-dirty</p>"
	if _, err := s.UpdateNote(a.ID, NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	base := cfs.count(a.ID)

	if err := s.SetSelectedNote(b.ID); err != nil {
		t.Fatal(err)
	}
	if got := cfs.count(a.ID) - base; got != 1 {
		t.Errorf("previous note writes on switch = %d, want 1", got)
	}

	got, err := cfs.OpenFile(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<p>a-dirty</p>" {
		t.Errorf("disk content = %q", got)
	}
}

func TestSaveCurrentNote(t *testing.T) {
	s, cfs := newDebouncedStore(t, time.Hour)
	nb, _ := s.CreateNotebook("N", "")
	note, _ := s.CreateNote(nb.ID, "n")
	if err := s.SetSelectedNote(note.ID); err != nil {
		t.Fatal(err)
	}

	content := "<p>manual save</p>"
	if _, err := s.UpdateNote(note.ID, NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	base := cfs.count(note.ID)
	s.SaveCurrentNote()
	if got := cfs.count(note.ID) - base; got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
}
