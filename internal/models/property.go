package models

// Property is a small persisted scalar keyed by name.
type Property struct {
	Name  string `db:"name" json:"name" validate:"required,max=255"`
	Value string `db:"value" json:"value"`
}

// Well-known property names.
const (
	PropertyLastSyncCursor = "last_sync_cursor"
	PropertyLastFullSync   = "last_full_sync"
)
