// Package tags maintains the global tag set spanning note metadata and
// paragraph-level data-tags attributes, and rewrites both on tag rename
// or delete.
package tags

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/solo/internal/models"
	"github.com/starford/solo/internal/store"
)

// Index derives tag information from the store and applies tag-wide
// rewrites through the store's normal update path.
type Index struct {
	store  *store.Store
	logger *slog.Logger
}

// NewIndex creates a tag index over the given store.
func NewIndex(st *store.Store, logger *slog.Logger) *Index {
	return &Index{store: st, logger: logger}
}

// Tags returns the union of all note-level and paragraph-level tag
// paths, sorted. Notes whose HTML cannot be tokenized contribute only
// their metadata tags.
func (ix *Index) Tags() []models.Tag {
	seen := make(map[string]struct{})
	for _, n := range ix.store.Notes() {
		for _, t := range n.Tags {
			seen[t] = struct{}{}
		}
		loaded, err := ix.store.LoadNoteContent(n.ID)
		if err != nil {
			ix.logger.Warn("tags: load content failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
		paraTags, err := extractTags(loaded.Content)
		if err != nil {
			ix.logger.Warn("tags: html scan failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
		for _, t := range paraTags {
			seen[t] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]models.Tag, len(paths))
	for i, p := range paths {
		out[i] = models.Tag{ID: p, Path: p}
	}
	return out
}

// Tree folds the flat tag set into a prefix tree for hierarchical
// display.
func (ix *Index) Tree() []*models.TagNode {
	flat := ix.Tags()
	paths := make([]string, len(flat))
	for i, t := range flat {
		paths[i] = t.Path
	}
	return BuildTree(paths)
}

// BuildTree splits the given tag paths on "/" and folds them into a
// sorted prefix tree.
func BuildTree(paths []string) []*models.TagNode {
	root := &models.TagNode{}
	index := map[string]*models.TagNode{"": root}

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	for _, p := range sorted {
		segments := strings.Split(p, "/")
		cur := ""
		for _, seg := range segments {
			next := seg
			if cur != "" {
				next = cur + "/" + seg
			}
			if _, ok := index[next]; !ok {
				node := &models.TagNode{Name: seg, Path: next}
				parent := index[cur]
				parent.Children = append(parent.Children, node)
				index[next] = node
			}
			cur = next
		}
	}
	return root.Children
}

// Result is the aggregate outcome of a tag-wide rewrite.
type Result struct {
	Changed int `json:"changed"` // notes actually rewritten
	Skipped int `json:"skipped"` // notes skipped because their HTML failed to tokenize
}

// Rename replaces oldPath with newPath in every note's metadata tags
// and every taggable element's data-tags entries. Matching is exact
// per entry: renaming "work/active" does not touch "work/active/archive".
// Unreadable notes are skipped and counted; the operation itself
// succeeds as long as the store cooperates.
func (ix *Index) Rename(oldPath, newPath string) (Result, error) {
	if oldPath == "" || newPath == "" {
		return Result{}, fmt.Errorf("tags: rename: empty path")
	}
	return ix.rewrite(func(entry string) (string, bool) {
		if entry == oldPath {
			return newPath, true
		}
		return entry, true
	})
}

// Delete removes the tag path from every note's metadata and every
// element's data-tags entries. An element left with zero entries loses
// the attribute entirely.
func (ix *Index) Delete(path string) (Result, error) {
	if path == "" {
		return Result{}, fmt.Errorf("tags: delete: empty path")
	}
	return ix.rewrite(func(entry string) (string, bool) {
		if entry == path {
			return "", false
		}
		return entry, true
	})
}

func (ix *Index) rewrite(fn func(entry string) (string, bool)) (Result, error) {
	var res Result
	for _, n := range ix.store.Notes() {
		newTags, metaChanged := applyToSet(n.Tags, fn)

		loaded, err := ix.store.LoadNoteContent(n.ID)
		if err != nil {
			ix.logger.Warn("tags: rewrite: load content failed",
				slog.String("id", n.ID), slog.String("error", err.Error()))
			res.Skipped++
			continue
		}
		newContent, contentChanged, err := rewriteTags(loaded.Content, fn)
		if err != nil {
			ix.logger.Warn("tags: rewrite: html failed",
				slog.String("id", n.ID), slog.String("error", err.Error()))
			res.Skipped++
			continue
		}

		if !metaChanged && !contentChanged {
			continue
		}

		patch := store.NotePatch{}
		if metaChanged {
			patch.Tags = &newTags
		}
		if contentChanged {
			patch.Content = &newContent
		}
		if _, err := ix.store.UpdateNote(n.ID, patch); err != nil {
			return res, fmt.Errorf("tags: rewrite note %s: %w", n.ID, err)
		}
		// The rewrite must be durable immediately, not after the edit
		// debounce.
		ix.store.FlushNote(n.ID)
		res.Changed++
	}
	return res, nil
}

// applyToSet maps fn over a metadata tag list, dropping removed entries
// and deduplicating the result.
func applyToSet(in []string, fn func(entry string) (string, bool)) ([]string, bool) {
	out := make([]string, 0, len(in))
	changed := false
	seen := make(map[string]struct{}, len(in))
	for _, entry := range in {
		repl, keep := fn(entry)
		if !keep {
			changed = true
			continue
		}
		if repl != entry {
			changed = true
		}
		if _, dup := seen[repl]; dup {
			changed = true
			continue
		}
		seen[repl] = struct{}{}
		out = append(out, repl)
	}
	return out, changed
}
