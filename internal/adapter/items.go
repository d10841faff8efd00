// Package adapter flattens suggestion results into the rows a list view renders.
package adapter

import (
	"fmt"

	"github.com/smouldering-durtles/wk-search/internal/models"
)

// ItemKind selects how a ResultItem is rendered.
type ItemKind int

const (
	// KindEmpty is the placeholder shown when a search has no results.
	KindEmpty ItemKind = iota
	KindHeader
	KindSubject
)

func (k ItemKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindHeader:
		return "header"
	case KindSubject:
		return "subject"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

var headerLabels = map[models.SuggestionType]string{
	models.SuggestionTypeRadical:    "Radicals",
	models.SuggestionTypeKanji:      "Kanji",
	models.SuggestionTypeVocabulary: "Vocabulary",
}

// EmptyLabel is the text of the KindEmpty item.
const EmptyLabel = "No results"

// ResultItem is one row of a search result list. Subject is set only for KindSubject.
type ResultItem struct {
	Kind    ItemKind        `json:"kind"`
	Header  string          `json:"header,omitempty"`
	Subject *models.Subject `json:"subject,omitempty"`
}

// Label is the primary text of the row.
func (i ResultItem) Label() string {
	switch i.Kind {
	case KindHeader:
		return i.Header
	case KindSubject:
		if i.Subject == nil {
			return ""
		}
		return fmt.Sprintf("%s - %s", i.Subject.DisplayText(), i.Subject.OneMeaning)
	default:
		return EmptyLabel
	}
}

// Items groups subjects under one header per suggestion type, in type order,
// keeping the rank order within each group. No subjects yields a single KindEmpty item.
func Items(subjects []models.Subject) []ResultItem {
	if len(subjects) == 0 {
		return []ResultItem{{Kind: KindEmpty}}
	}

	groups := make(map[models.SuggestionType][]models.Subject, len(models.SuggestionTypes))
	for _, subject := range subjects {
		groups[subject.SuggestionType] = append(groups[subject.SuggestionType], subject)
	}

	items := make([]ResultItem, 0, len(subjects)+len(groups))
	for _, kind := range models.SuggestionTypes {
		group := groups[kind]
		if len(group) == 0 {
			continue
		}
		items = append(items, ResultItem{Kind: KindHeader, Header: headerLabels[kind]})
		for i := range group {
			subject := group[i].Clone()
			items = append(items, ResultItem{Kind: KindSubject, Subject: &subject})
		}
	}
	return items
}
