// Package parser turns the statistics page into typed records.
package parser

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseCount converts a counter cell such as "1,234,567" or "+20" into an
// integer. Thousands separators and a leading plus sign are dropped and only
// the leading run of digits is read. Empty or unparseable text yields 0.
func ParseCount(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// maxNameDepth bounds how far countryText descends through wrapper markup
// (links, flag icons) looking for the name.
const maxNameDepth = 4

// countryText extracts a country name from a table cell. It follows the
// first-child chain up to maxNameDepth levels for a non-blank text node and
// otherwise falls back to the text under the first child's next sibling.
func countryText(cell *html.Node) string {
	n := cell.FirstChild
	for depth := 0; depth < maxNameDepth && n != nil; depth++ {
		if n.Type == html.TextNode {
			if name := strings.TrimSpace(n.Data); name != "" {
				return name
			}
		}
		n = n.FirstChild
	}

	first := cell.FirstChild
	if first == nil || first.NextSibling == nil {
		return ""
	}
	if t := first.NextSibling.FirstChild; t != nil && t.Type == html.TextNode {
		return strings.TrimSpace(t.Data)
	}
	return ""
}

// normalizeHeader lower-cases a header and keeps only letters and digits, so
// "Total\nCases" and "TotalCases" compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
