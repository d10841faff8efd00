// Package richtext renders the lightly marked-up meaning text of a subject.
//
// Meaning text uses a handful of inline tags (<b>, <i>, <ja>, <radical>,
// <kanji>, <vocabulary>, <reading>, <meaning>, <br>) and HTML entities.
// Rendering drops the tags, decodes entities and keeps line breaks.
package richtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Plain returns the plain-text rendering of markup, or fallback when markup is empty.
func Plain(markup string, fallback string) string {
	if strings.TrimSpace(markup) == "" {
		return fallback
	}
	if !strings.ContainsAny(markup, "<&") {
		return strings.TrimSpace(markup)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.TrimSpace(markup)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return collapse(doc.Find("body").Text())
}

// collapse squeezes runs of spaces inside each line and drops blank lines.
func collapse(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
