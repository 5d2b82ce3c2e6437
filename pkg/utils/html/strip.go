// ABOUTME: HTML utilities for recognising error pages served in place of text assets
// ABOUTME: Provides shape detection and title extraction used by the fetcher

package html

import (
	"strings"

	xhtml "golang.org/x/net/html"
)

// LooksLikeDocument reports whether text appears to be an HTML document:
// once trimmed it starts with '<' and ends with '>'
func LooksLikeDocument(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "<") && strings.HasSuffix(text, ">")
}

// Title returns the text of the first <title> element, or "" if none
func Title(document string) string {
	z := xhtml.NewTokenizer(strings.NewReader(document))
	inTitle := false
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return ""
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			inTitle = string(name) == "title"
		case xhtml.TextToken:
			if inTitle {
				return collapseSpace(string(z.Text()))
			}
		case xhtml.EndTagToken:
			inTitle = false
		}
	}
}

// collapseSpace trims s and replaces whitespace runs with a single space
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
