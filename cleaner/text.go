package cleaner

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every element and drops script/style bodies.
// Policies are safe for concurrent use once built.
var strictPolicy = bluemonday.StrictPolicy()

// blockTag matches opening, closing and void tags of elements that break a
// line when rendered. Inline tags (b, span, sup, a) are not listed, so text
// on either side of them stays joined.
var blockTag = regexp.MustCompile(`(?i)</?(?:p|div|br|hr|li|ul|ol|dl|dt|dd|h[1-6]|tr|td|th|table|thead|tbody|section|article|header|footer|blockquote|pre)\b[^>]*>`)

// Text converts a free-text field that may contain markup into trimmed
// plain text with whitespace runs collapsed to single spaces.
//
// bluemonday escapes the text it keeps, so entities are decoded afterwards.
// Decoding can surface a tag that was entity-encoded in the source
// ("&lt;b&gt;"); one more strip pass handles that case.
func Text(s string) string {
	if s == "" {
		return ""
	}
	out := strip(s)
	if strings.ContainsRune(out, '<') {
		out = strip(out)
	}
	return strings.Join(strings.Fields(out), " ")
}

// strip removes markup, leaving a space where a block element ended.
func strip(s string) string {
	s = blockTag.ReplaceAllStringFunc(s, func(tag string) string { return tag + " " })
	return html.UnescapeString(strictPolicy.Sanitize(s))
}
