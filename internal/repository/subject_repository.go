package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/internal/search"
	"github.com/smouldering-durtles/wk-search/pkg/database"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

const subjectColumns = `id, suggestion_type, characters, slug, one_meaning, meaning_rich_text`

const upsertSubjectQuery = `INSERT INTO subjects (id, suggestion_type, characters, slug, one_meaning, meaning_rich_text)
VALUES (:id, :suggestion_type, :characters, :slug, :one_meaning, :meaning_rich_text)
ON CONFLICT (id)
DO UPDATE SET suggestion_type = excluded.suggestion_type, characters = excluded.characters, slug = excluded.slug,
              one_meaning = excluded.one_meaning, meaning_rich_text = excluded.meaning_rich_text`

// typeRankExpr orders suggestion types Radical < Kanji < Vocabulary < anything else.
var typeRankExpr = func() string {
	var b strings.Builder
	b.WriteString("CASE s.suggestion_type")
	for i, t := range models.SuggestionTypes {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", t, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(models.SuggestionTypes))
	return b.String()
}()

var prefixMatchQuery = `SELECT k.subject_id AS subject_id,
        MIN(CASE WHEN k.search_key = ? THEN 0 ELSE 1 END) AS tier,
        MIN(length(k.search_key)) AS key_length,
        ` + typeRankExpr + ` AS type_rank
        FROM subject_search_keys k JOIN subjects s ON s.id = k.subject_id
        WHERE k.search_key >= ? AND k.search_key < ?
        GROUP BY k.subject_id
        ORDER BY tier, key_length, type_rank, k.subject_id
        LIMIT ?`

var substringMatchQuery = `SELECT k.subject_id AS subject_id,
        2 AS tier,
        MIN(length(k.search_key)) AS key_length,
        ` + typeRankExpr + ` AS type_rank
        FROM subject_search_keys k JOIN subjects s ON s.id = k.subject_id
        WHERE instr(k.search_key, ?) > 0
        GROUP BY k.subject_id
        ORDER BY type_rank, k.subject_id
        LIMIT ?`

// RankedMatch is one candidate of a suggestion query, in rank order.
type RankedMatch struct {
	SubjectID int64       `db:"subject_id"`
	Tier      search.Tier `db:"tier"`
	KeyLength int         `db:"key_length"`
	TypeRank  int         `db:"type_rank"`
}

// IndexedSubject pairs a subject with the search keys derived from it.
type IndexedSubject struct {
	Subject models.Subject
	Keys    []string
}

// subjectRow mirrors the subjects table loosely so that bad rows scan and can be rejected by decode.
type subjectRow struct {
	ID              int64          `db:"id"`
	SuggestionType  sql.NullString `db:"suggestion_type"`
	Characters      sql.NullString `db:"characters"`
	Slug            sql.NullString `db:"slug"`
	OneMeaning      sql.NullString `db:"one_meaning"`
	MeaningRichText sql.NullString `db:"meaning_rich_text"`
}

func (r subjectRow) decode() (models.Subject, error) {
	subject := models.Subject{
		ID:              r.ID,
		SuggestionType:  models.SuggestionType(r.SuggestionType.String),
		OneMeaning:      r.OneMeaning.String,
		MeaningRichText: r.MeaningRichText.String,
	}
	if r.Characters.Valid {
		subject.Characters = models.StringPtr(r.Characters.String)
	}
	if r.Slug.Valid {
		subject.Slug = models.StringPtr(r.Slug.String)
	}
	if r.ID <= 0 || !subject.SuggestionType.Valid() || !subject.HasDisplayText() {
		return models.Subject{}, appErrors.Clone(appErrors.ErrStorageCorrupt, fmt.Sprintf("subject %d cannot be decoded", r.ID))
	}
	return subject, nil
}

// SubjectRepository persists subjects and their search keys in the embedded store.
// Readers run concurrently; writers are serialised by writeMu on top of SQLite's own locking.
type SubjectRepository struct {
	source  database.Source
	writeMu sync.Mutex
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(source database.Source) *SubjectRepository {
	return &SubjectRepository{source: source}
}

// FindByID returns a subject by id, sql.ErrNoRows when absent.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	db, err := r.source.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = ?`
	var row subjectRow
	if err := db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	subject, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByIDs loads the given subjects in no particular order. Rows that fail to
// scan or decode are left out and reported through corrupt.
func (r *SubjectRepository) FindByIDs(ctx context.Context, ids []int64) (subjects []models.Subject, corrupt []int64, err error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	db, err := r.source.DB(ctx)
	if err != nil {
		return nil, nil, err
	}
	query, args, err := sqlx.In(`SELECT `+subjectColumns+` FROM subjects WHERE id IN (?)`, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("build subject lookup: %w", err)
	}
	rows, err := db.QueryxContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("load subjects: %w", err)
	}
	defer rows.Close()

	subjects = make([]models.Subject, 0, len(ids))
	for rows.Next() {
		var row subjectRow
		if err := rows.StructScan(&row); err != nil {
			corrupt = append(corrupt, row.ID)
			continue
		}
		subject, err := row.decode()
		if err != nil {
			corrupt = append(corrupt, row.ID)
			continue
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return subjects, corrupt, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, corrupt, nil
}

// MatchPrefix ranks subjects having a search key that starts with query.
// On a mid-scan failure the matches collected so far are returned with the error.
func (r *SubjectRepository) MatchPrefix(ctx context.Context, query string, limit int) ([]RankedMatch, error) {
	return r.rankedMatches(ctx, "match prefix", prefixMatchQuery, query, query, search.PrefixUpperBound(query), limit)
}

// MatchSubstring ranks subjects having a search key that contains query.
func (r *SubjectRepository) MatchSubstring(ctx context.Context, query string, limit int) ([]RankedMatch, error) {
	return r.rankedMatches(ctx, "match substring", substringMatchQuery, query, limit)
}

func (r *SubjectRepository) rankedMatches(ctx context.Context, label, query string, args ...interface{}) ([]RankedMatch, error) {
	db, err := r.source.DB(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	defer rows.Close()

	var matches []RankedMatch
	for rows.Next() {
		var match RankedMatch
		if err := rows.StructScan(&match); err != nil {
			return matches, fmt.Errorf("%s scan: %w", label, err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return matches, fmt.Errorf("%s: %w", label, err)
	}
	return matches, nil
}

// Upsert replaces the subject with the same id and its search keys in one transaction.
func (r *SubjectRepository) Upsert(ctx context.Context, item IndexedSubject) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	db, err := r.source.DB(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subject upsert tx: %w", err)
	}
	if err := upsertSubjectTx(ctx, tx, item); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subject upsert tx: %w", err)
	}
	return nil
}

// ReplaceAll swaps the whole subject table for items. This is the only path that deletes subjects.
func (r *SubjectRepository) ReplaceAll(ctx context.Context, items []IndexedSubject) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	db, err := r.source.DB(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subject resync tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subject_search_keys`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear search keys: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subjects`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear subjects: %w", err)
	}
	for _, item := range items {
		if err := upsertSubjectTx(ctx, tx, item); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subject resync tx: %w", err)
	}
	return nil
}

func upsertSubjectTx(ctx context.Context, tx *sqlx.Tx, item IndexedSubject) error {
	if _, err := tx.NamedExecContext(ctx, upsertSubjectQuery, item.Subject); err != nil {
		return fmt.Errorf("upsert subject %d: %w", item.Subject.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subject_search_keys WHERE subject_id = ?`, item.Subject.ID); err != nil {
		return fmt.Errorf("clear search keys for %d: %w", item.Subject.ID, err)
	}
	if len(item.Keys) == 0 {
		return nil
	}
	values := make([]string, 0, len(item.Keys))
	args := make([]interface{}, 0, len(item.Keys)*2)
	for _, key := range item.Keys {
		values = append(values, "(?, ?)")
		args = append(args, item.Subject.ID, key)
	}
	query := `INSERT INTO subject_search_keys (subject_id, search_key) VALUES ` + strings.Join(values, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert search keys for %d: %w", item.Subject.ID, err)
	}
	return nil
}

// SearchKeys returns the stored search keys of a subject, sorted.
func (r *SubjectRepository) SearchKeys(ctx context.Context, id int64) ([]string, error) {
	db, err := r.source.DB(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := db.SelectContext(ctx, &keys, `SELECT search_key FROM subject_search_keys WHERE subject_id = ? ORDER BY search_key`, id); err != nil {
		return nil, fmt.Errorf("list search keys: %w", err)
	}
	return keys, nil
}

// Count returns the number of stored subjects.
func (r *SubjectRepository) Count(ctx context.Context) (int, error) {
	db, err := r.source.DB(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM subjects`); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return count, nil
}
