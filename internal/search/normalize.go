// Package search derives the normalised keys used for
// incremental subject lookup.
package search

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/internal/richtext"
)

// MinSubstringRunes is the shortest query that may fall back to substring matching.
const MinSubstringRunes = 2

// Tier is the quality of a match between a query and a search key. Lower is better.
type Tier int

const (
	TierExact Tier = iota
	TierPrefix
	TierSubstring
)

// Normalize folds width and case and collapses whitespace, so that "ＷＡＴＥＲ "
// and "water" produce the same key.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded := cases.Fold().String(norm.NFKC.String(text))
	return strings.Join(strings.Fields(folded), " ")
}

// RuneCount counts the characters of a normalised query.
func RuneCount(query string) int {
	return utf8.RuneCountInString(query)
}

// PrefixUpperBound returns the smallest string greater than every string with
// the given prefix, for use as an exclusive index range bound.
func PrefixUpperBound(prefix string) string {
	return prefix + string(utf8.MaxRune)
}

// Keys derives the search index of a subject: its characters, slug and
// meanings, plus the single words of multi-word meanings.
func Keys(subject models.Subject) []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(raw string) {
		key := Normalize(raw)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	if subject.Characters != nil {
		add(*subject.Characters)
	}
	if subject.Slug != nil {
		add(*subject.Slug)
		add(strings.ReplaceAll(*subject.Slug, "-", " "))
	}

	meanings := []string{subject.OneMeaning}
	meanings = append(meanings, splitMeanings(richtext.Plain(subject.MeaningRichText, ""))...)
	for _, meaning := range meanings {
		add(meaning)
	}
	for _, meaning := range meanings {
		words := strings.Fields(Normalize(meaning))
		if len(words) < 2 {
			continue
		}
		for _, word := range words {
			add(strings.Trim(word, "()[]\"'.!?"))
		}
	}
	return keys
}

func splitMeanings(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
}
