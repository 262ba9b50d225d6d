package store

import (
	"log/slog"
	"time"
)

// pendingSave is the dirty state of one note. Only the most recent
// content survives rapid edits; exactly one write happens per quiescent
// window.
type pendingSave struct {
	timer   *time.Timer
	content string
}

// scheduleSaveLocked arms (or re-arms) the debounce timer for a note.
func (s *Store) scheduleSaveLocked(id, content string) {
	if p, ok := s.pending[id]; ok {
		p.content = content
		p.timer.Reset(s.debounce)
		return
	}
	p := &pendingSave{content: content}
	p.timer = time.AfterFunc(s.debounce, func() {
		s.FlushNote(id)
	})
	s.pending[id] = p
}

// FlushNote synchronously writes the note's pending content, if any.
func (s *Store) FlushNote(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushNoteLocked(id)
}

// FlushAll synchronously writes every pending content save.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushAllLocked()
}

func (s *Store) flushNoteLocked(id string) {
	p, ok := s.pending[id]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(s.pending, id)

	note, ok := s.notes[id]
	if !ok {
		// Deleted while dirty; nothing to write.
		return
	}
	if err := s.fs.UpdateFile(note.Path, p.content); err != nil {
		// No synchronous caller to report to: log and move on.
		s.logger.Warn("store: debounced content write failed",
			slog.String("path", note.Path), slog.String("error", err.Error()))
	}
}

func (s *Store) flushAllLocked() {
	for id := range s.pending {
		s.flushNoteLocked(id)
	}
}

// dropPendingLocked discards a pending save without writing it. Used by
// delete paths so a stale debounce cannot resurrect removed content.
func (s *Store) dropPendingLocked(id string) {
	if p, ok := s.pending[id]; ok {
		p.timer.Stop()
		delete(s.pending, id)
	}
}
