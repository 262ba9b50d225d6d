package search

import (
	"strings"

	"golang.org/x/net/html"
)

// textContent reduces an HTML note body to whitespace-normalized plain
// text for indexing.
func textContent(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var parts []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.TextToken:
			if t := strings.TrimSpace(string(z.Text())); t != "" {
				parts = append(parts, t)
			}
		}
	}
}
