package tags

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// taggable lists the element names that may carry a data-tags
// attribute: paragraphs, headings, list items, and block quotes.
var taggable = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true,
}

// dataTagsAttrRe locates the data-tags attribute (with its leading
// whitespace) inside a raw start tag. Group 2/3 capture the value for
// double- and single-quoted forms.
var dataTagsAttrRe = regexp.MustCompile(`(?i)(\s*data-tags\s*=\s*)(?:"([^"]*)"|'([^']*)')`)

// splitEntries splits a raw data-tags value into trimmed, non-empty
// comma-separated entries.
func splitEntries(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extractTags walks the document and collects every data-tags entry on
// taggable elements. The tokenizer is tolerant of malformed markup; an
// error other than EOF aborts the walk.
func extractTags(content string) ([]string, error) {
	z := html.NewTokenizer(strings.NewReader(content))
	var out []string
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return out, nil
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if !taggable[string(name)] || !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == "data-tags" {
				out = append(out, splitEntries(string(val))...)
			}
			if !more {
				break
			}
		}
	}
}

// rewriteTags rewrites data-tags attributes on taggable elements. For
// each entry fn returns the replacement and whether to keep it; an
// element left with zero entries loses the attribute entirely. Only the
// attribute value bytes are spliced; everything else in the document
// passes through verbatim, so an untouched note round-trips
// byte-for-byte.
func rewriteTags(content string, fn func(entry string) (string, bool)) (string, bool, error) {
	z := html.NewTokenizer(strings.NewReader(content))
	var buf bytes.Buffer
	changed := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", false, err
			}
			return buf.String(), changed, nil
		}
		raw := z.Raw()
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			buf.Write(raw)
			continue
		}
		rewritten, ok := rewriteRawTag(raw, fn)
		if ok {
			changed = true
			buf.Write(rewritten)
		} else {
			buf.Write(raw)
		}
	}
}

// rewriteRawTag splices a new data-tags value into the raw bytes of one
// start tag. Returns ok=false when the tag is not taggable, carries no
// data-tags attribute, or no entry changed.
//
// The value is rewritten segment by segment: only the entry bytes of
// changed entries are replaced, so separators and the whitespace around
// untouched entries survive verbatim and a rename applied forward and
// back restores the attribute byte-for-byte.
func rewriteRawTag(raw []byte, fn func(entry string) (string, bool)) ([]byte, bool) {
	name := tagName(raw)
	if !taggable[name] {
		return nil, false
	}
	loc := dataTagsAttrRe.FindSubmatchIndex(raw)
	if loc == nil {
		return nil, false
	}
	valStart, valEnd := loc[4], loc[5]
	if valStart < 0 {
		valStart, valEnd = loc[6], loc[7]
	}
	old := string(raw[valStart:valEnd])

	segs := strings.Split(old, ",")
	kept := make([]string, 0, len(segs))
	var keptEntries []string
	changed := false
	for _, seg := range segs {
		entry := strings.TrimSpace(seg)
		if entry == "" {
			// Whitespace-only segment: not an entry, carried as-is.
			kept = append(kept, seg)
			continue
		}
		repl, keep := fn(entry)
		if !keep {
			changed = true
			continue
		}
		// Never duplicate a path within one element.
		dup := false
		for _, k := range keptEntries {
			if k == repl {
				dup = true
				break
			}
		}
		if dup {
			changed = true
			continue
		}
		keptEntries = append(keptEntries, repl)
		if repl == entry {
			kept = append(kept, seg)
			continue
		}
		changed = true
		i := strings.Index(seg, entry)
		kept = append(kept, seg[:i]+repl+seg[i+len(entry):])
	}
	if !changed {
		return nil, false
	}

	var out bytes.Buffer
	if len(keptEntries) == 0 {
		// Drop the whole attribute, leading whitespace included.
		out.Write(raw[:loc[0]])
		out.Write(raw[loc[1]:])
		return out.Bytes(), true
	}
	out.Write(raw[:valStart])
	out.WriteString(strings.Join(kept, ","))
	out.Write(raw[valEnd:])
	return out.Bytes(), true
}

// tagName extracts the lowercase element name from raw start-tag bytes.
func tagName(raw []byte) string {
	if len(raw) < 2 || raw[0] != '<' {
		return ""
	}
	i := 1
	for i < len(raw) {
		c := raw[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '>' || c == '/' {
			break
		}
		i++
	}
	return strings.ToLower(string(raw[1:i]))
}
