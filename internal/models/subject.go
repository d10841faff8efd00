package models

// SuggestionType is the closed set of subject kinds shown in suggestions.
type SuggestionType string

const (
	SuggestionTypeRadical    SuggestionType = "Radical"
	SuggestionTypeKanji      SuggestionType = "Kanji"
	SuggestionTypeVocabulary SuggestionType = "Vocabulary"
)

// SuggestionTypes lists the kinds in tie-break order.
var SuggestionTypes = []SuggestionType{
	SuggestionTypeRadical,
	SuggestionTypeKanji,
	SuggestionTypeVocabulary,
}

// Valid reports whether t is one of the known kinds.
func (t SuggestionType) Valid() bool {
	return t.Rank() < len(SuggestionTypes)
}

// Rank orders kinds Radical < Kanji < Vocabulary; unknown kinds sort last.
func (t SuggestionType) Rank() int {
	for i, known := range SuggestionTypes {
		if t == known {
			return i
		}
	}
	return len(SuggestionTypes)
}

// Subject is one study item as stored locally.
type Subject struct {
	ID              int64          `db:"id" json:"id" validate:"gt=0"`
	SuggestionType  SuggestionType `db:"suggestion_type" json:"suggestion_type" validate:"oneof=Radical Kanji Vocabulary"`
	Characters      *string        `db:"characters" json:"characters,omitempty"`
	Slug            *string        `db:"slug" json:"slug,omitempty"`
	OneMeaning      string         `db:"one_meaning" json:"one_meaning"`
	MeaningRichText string         `db:"meaning_rich_text" json:"meaning_rich_text"`
}

// DisplayText returns the characters, falling back to the slug, then to "".
func (s Subject) DisplayText() string {
	if s.Characters != nil && *s.Characters != "" {
		return *s.Characters
	}
	if s.Slug != nil && *s.Slug != "" {
		return *s.Slug
	}
	return ""
}

// HasDisplayText reports whether characters or slug is non-empty.
func (s Subject) HasDisplayText() bool {
	return s.DisplayText() != ""
}

// Clone returns a copy that shares no pointers with s.
func (s Subject) Clone() Subject {
	clone := s
	if s.Characters != nil {
		v := *s.Characters
		clone.Characters = &v
	}
	if s.Slug != nil {
		v := *s.Slug
		clone.Slug = &v
	}
	return clone
}

// StringPtr is a convenience for optional subject fields.
func StringPtr(value string) *string {
	return &value
}
