package tags

import (
	"strings"
	"testing"
)

func TestExtractTags(t *testing.T) {
	content := `<h1 data-tags="work">Title</h1>
<p data-tags="work/active, mood/happy">First.</p>
<p>No tags here.</p>
<div data-tags="not/taggable">Divs do not carry tags.</div>
<li data-tags='single/quoted'>Item.</li>
<blockquote data-tags="quote">Quote.</blockquote>`

	got, err := extractTags(content)
	if err != nil {
		t.Fatalf("extractTags: %v", err)
	}
	want := []string{"work", "work/active", "mood/happy", "single/quoted", "quote"}
	if len(got) != len(want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractTagsEmptyEntries(t *testing.T) {
	got, err := extractTags(`<p data-tags=" , a ,, b ">x</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("tags = %v", got)
	}
}

func TestRewriteTagsUntouchedMarkupIsByteIdentical(t *testing.T) {
	// Deliberately odd formatting that a parse/reserialize cycle would
	// normalize away.
	content := "<p   class='x'  data-tags=\"keep\">a</p>\n<P DATA-TAGS=\"other\">b</P>\n<p>plain &amp; <b>bold</b></p>\n<!-- comment -->"

	out, changed, err := rewriteTags(content, func(entry string) (string, bool) {
		return entry, true
	})
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("identity rewrite reported a change")
	}
	if out != content {
		t.Errorf("markup not byte-identical:\n got: %q\nwant: %q", out, content)
	}
}

func TestRewriteTagsRenameRoundTrip(t *testing.T) {
	content := `<p data-tags="mood/happy,work">one</p>
<p data-tags="other">two</p>
<p>three</p>`

	renamed, changed, err := rewriteTags(content, renameFn("mood/happy", "mood/great"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("rename did not report a change")
	}
	if !strings.Contains(renamed, `data-tags="mood/great,work"`) {
		t.Errorf("renamed = %q", renamed)
	}
	if !strings.Contains(renamed, `data-tags="other"`) {
		t.Errorf("untouched element changed: %q", renamed)
	}

	back, _, err := rewriteTags(renamed, renameFn("mood/great", "mood/happy"))
	if err != nil {
		t.Fatal(err)
	}
	if back != content {
		t.Errorf("round trip not byte-identical:\n got: %q\nwant: %q", back, content)
	}
}

func TestRewriteTagsPreservesEntrySpacing(t *testing.T) {
	// Entries separated with ", " are legal input; only the renamed
	// entry's bytes may change, never the whitespace around it.
	content := `<p data-tags="mood/happy, work">one</p>`

	renamed, changed, err := rewriteTags(content, renameFn("mood/happy", "mood/great"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("rename did not report a change")
	}
	if !strings.Contains(renamed, `data-tags="mood/great, work"`) {
		t.Errorf("spacing not preserved: %q", renamed)
	}

	back, _, err := rewriteTags(renamed, renameFn("mood/great", "mood/happy"))
	if err != nil {
		t.Fatal(err)
	}
	if back != content {
		t.Errorf("round trip not byte-identical:\n got: %q\nwant: %q", back, content)
	}
}

func TestRewriteTagsDeleteKeepsNeighborSpacing(t *testing.T) {
	content := `<p data-tags="a, b, c">x</p>`
	out, changed, err := rewriteTags(content, deleteFn("b"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a change")
	}
	if !strings.Contains(out, `data-tags="a, c"`) {
		t.Errorf("out = %q", out)
	}
}

func TestRewriteTagsExactMatchNoCascade(t *testing.T) {
	content := `<p data-tags="work/active,work/active/archive">x</p>`
	out, changed, err := rewriteTags(content, renameFn("work/active", "work/done"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a change")
	}
	if !strings.Contains(out, `data-tags="work/done,work/active/archive"`) {
		t.Errorf("descendant entry was cascaded: %q", out)
	}
}

func TestRewriteTagsDeleteDropsEmptyAttribute(t *testing.T) {
	content := `<p data-tags="solo">only entry</p>`
	out, changed, err := rewriteTags(content, deleteFn("solo"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a change")
	}
	if strings.Contains(out, "data-tags") {
		t.Errorf("empty attribute not dropped: %q", out)
	}
	if out != `<p>only entry</p>` {
		t.Errorf("out = %q", out)
	}
}

func TestRewriteTagsDeduplicates(t *testing.T) {
	content := `<p data-tags="a,b">x</p>`
	out, changed, err := rewriteTags(content, renameFn("b", "a"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a change")
	}
	if !strings.Contains(out, `data-tags="a"`) {
		t.Errorf("duplicate entry kept: %q", out)
	}
}

func TestRewriteTagsIgnoresNonTaggable(t *testing.T) {
	content := `<div data-tags="a">div</div><span data-tags="a">span</span>`
	out, changed, err := rewriteTags(content, renameFn("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("non-taggable elements were rewritten")
	}
	if out != content {
		t.Errorf("out = %q", out)
	}
}

func renameFn(from, to string) func(string) (string, bool) {
	return func(entry string) (string, bool) {
		if entry == from {
			return to, true
		}
		return entry, true
	}
}

func deleteFn(path string) func(string) (string, bool) {
	return func(entry string) (string, bool) {
		if entry == path {
			return "", false
		}
		return entry, true
	}
}
