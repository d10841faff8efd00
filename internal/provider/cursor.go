package provider

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/internal/richtext"
)

// Column names expected by the platform search host. Do not rename.
const (
	ColumnID       = "_id"
	ColumnText1    = "text1"
	ColumnText2    = "text2"
	ColumnIntentID = "intentId"
)

// hostColumnAliases maps the search manager's long column names onto ours.
var hostColumnAliases = map[string]string{
	"suggest_text_1":         ColumnText1,
	"suggest_text_2":         ColumnText2,
	"suggest_intent_data_id": ColumnIntentID,
}

// Column positions in every SubjectCursor.
const (
	columnID = iota
	columnText1
	columnText2
	columnIntentID
)

// FieldType mirrors the host's cell type codes.
type FieldType int

const (
	FieldTypeNull    FieldType = 0
	FieldTypeInteger FieldType = 1
	FieldTypeFloat   FieldType = 2
	FieldTypeString  FieldType = 3
	FieldTypeBlob    FieldType = 4
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeNull:
		return "NULL"
	case FieldTypeInteger:
		return "INTEGER"
	case FieldTypeFloat:
		return "FLOAT"
	case FieldTypeString:
		return "STRING"
	case FieldTypeBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

var columnNames = []string{ColumnID, ColumnText1, ColumnText2, ColumnIntentID}

type suggestionRow struct {
	id    int64
	text1 string
	text2 string
}

// SubjectCursor is a read-only, positionable snapshot of suggestion rows.
// The position starts before the first row. A cursor is not safe for concurrent use.
type SubjectCursor struct {
	rows     []suggestionRow
	position int
	closed   bool
}

// NewSubjectCursor renders subjects into rows. Later changes to the store are not visible.
func NewSubjectCursor(subjects []models.Subject) *SubjectCursor {
	rows := make([]suggestionRow, len(subjects))
	for i, subject := range subjects {
		rows[i] = suggestionRow{
			id:    subject.ID,
			text1: fmt.Sprintf("%s %s - %s", subject.SuggestionType, subject.DisplayText(), subject.OneMeaning),
			text2: richtext.Plain(subject.MeaningRichText, ""),
		}
	}
	return &SubjectCursor{rows: rows, position: -1}
}

// Count returns the number of rows.
func (c *SubjectCursor) Count() int {
	return len(c.rows)
}

// Position returns the current row index, -1 before the first row and Count() after the last.
func (c *SubjectCursor) Position() int {
	return c.position
}

// MoveToPosition moves to row position, clamping to just before the first or just after the last row.
// It reports whether the cursor now points at a row.
func (c *SubjectCursor) MoveToPosition(position int) bool {
	count := len(c.rows)
	if position >= count {
		c.position = count
		return false
	}
	if position < 0 {
		c.position = -1
		return false
	}
	c.position = position
	return true
}

// Move moves the cursor by offset rows.
func (c *SubjectCursor) Move(offset int) bool {
	return c.MoveToPosition(c.position + offset)
}

func (c *SubjectCursor) MoveToFirst() bool    { return c.MoveToPosition(0) }
func (c *SubjectCursor) MoveToLast() bool     { return c.MoveToPosition(len(c.rows) - 1) }
func (c *SubjectCursor) MoveToNext() bool     { return c.MoveToPosition(c.position + 1) }
func (c *SubjectCursor) MoveToPrevious() bool { return c.MoveToPosition(c.position - 1) }

func (c *SubjectCursor) IsFirst() bool {
	return len(c.rows) != 0 && c.position == 0
}

func (c *SubjectCursor) IsLast() bool {
	return len(c.rows) != 0 && c.position == len(c.rows)-1
}

func (c *SubjectCursor) IsBeforeFirst() bool {
	return len(c.rows) == 0 || c.position == -1
}

func (c *SubjectCursor) IsAfterLast() bool {
	return len(c.rows) == 0 || c.position == len(c.rows)
}

// ColumnNames returns the fixed column schema.
func (c *SubjectCursor) ColumnNames() []string {
	return append([]string(nil), columnNames...)
}

// ColumnCount returns the number of columns.
func (c *SubjectCursor) ColumnCount() int {
	return len(columnNames)
}

// ColumnIndex returns the index of name, or -1. A "table." qualifier is ignored
// and the search manager's suggest_* names are accepted.
func (c *SubjectCursor) ColumnIndex(name string) int {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if alias, ok := hostColumnAliases[strings.ToLower(name)]; ok {
		name = alias
	}
	for i, column := range columnNames {
		if strings.EqualFold(column, name) {
			return i
		}
	}
	return -1
}

// ColumnIndexOrError is ColumnIndex for callers that require the column.
func (c *SubjectCursor) ColumnIndexOrError(name string) (int, error) {
	if i := c.ColumnIndex(name); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("column %q does not exist", name)
}

// ColumnName returns the name of column, or "" when out of range.
func (c *SubjectCursor) ColumnName(column int) string {
	if column < 0 || column >= len(columnNames) {
		return ""
	}
	return columnNames[column]
}

func (c *SubjectCursor) current() (suggestionRow, bool) {
	if c.IsBeforeFirst() || c.IsAfterLast() {
		return suggestionRow{}, false
	}
	return c.rows[c.position], true
}

// String returns the cell as text. ok is false outside the rows or for unknown columns.
func (c *SubjectCursor) String(column int) (value string, ok bool) {
	row, ok := c.current()
	if !ok {
		return "", false
	}
	switch column {
	case columnID, columnIntentID:
		return strconv.FormatInt(row.id, 10), true
	case columnText1:
		return row.text1, true
	case columnText2:
		return row.text2, true
	default:
		return "", false
	}
}

// Blob returns the UTF-8 bytes of String, or nil when String has no value.
func (c *SubjectCursor) Blob(column int) []byte {
	value, ok := c.String(column)
	if !ok {
		return nil
	}
	return []byte(value)
}

// Long returns the subject id for the id columns and 0 for everything else, text columns included.
func (c *SubjectCursor) Long(column int) int64 {
	row, ok := c.current()
	if !ok {
		return 0
	}
	if column == columnID || column == columnIntentID {
		return row.id
	}
	return 0
}

func (c *SubjectCursor) Int(column int) int32 {
	return int32(c.Long(column))
}

func (c *SubjectCursor) Short(column int) int16 {
	return int16(c.Long(column))
}

func (c *SubjectCursor) Float(column int) float32 {
	return float32(c.Long(column))
}

func (c *SubjectCursor) Double(column int) float64 {
	return float64(c.Long(column))
}

// Type returns the cell type of column. It does not depend on the position.
func (c *SubjectCursor) Type(column int) FieldType {
	switch column {
	case columnID, columnIntentID:
		return FieldTypeInteger
	case columnText1, columnText2:
		return FieldTypeString
	default:
		return FieldTypeNull
	}
}

// IsNull reports whether the cell has no value.
func (c *SubjectCursor) IsNull(column int) bool {
	if c.IsBeforeFirst() || c.IsAfterLast() {
		return true
	}
	return c.Type(column) == FieldTypeNull
}

// Close marks the cursor closed. Rows stay readable.
func (c *SubjectCursor) Close() {
	c.closed = true
}

func (c *SubjectCursor) IsClosed() bool {
	return c.closed
}
