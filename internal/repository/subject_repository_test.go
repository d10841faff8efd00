package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/internal/search"
	"github.com/smouldering-durtles/wk-search/pkg/database"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

var subjectColumnNames = []string{"id", "suggestion_type", "characters", "slug", "one_meaning", "meaning_rich_text"}

func newSubjectMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlite3"), mock, func() { db.Close() }
}

func TestSubjectRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	rows := sqlmock.NewRows(subjectColumnNames).AddRow(int64(1), "Kanji", "水", nil, "water", "<b>water</b>")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, suggestion_type, characters, slug, one_meaning, meaning_rich_text FROM subjects WHERE id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	subject, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionTypeKanji, subject.SuggestionType)
	require.NotNil(t, subject.Characters)
	assert.Equal(t, "水", *subject.Characters)
	assert.Nil(t, subject.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryFindByIDRejectsCorruptRow(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	rows := sqlmock.NewRows(subjectColumnNames).AddRow(int64(9), "Kana", nil, nil, "", "")
	mock.ExpectQuery("SELECT id, suggestion_type").WithArgs(int64(9)).WillReturnRows(rows)

	_, err := repo.FindByID(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorageCorrupt))
}

func TestSubjectRepositoryFindByIDsSkipsCorruptRows(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	rows := sqlmock.NewRows(subjectColumnNames).
		AddRow(int64(1), "Kanji", "水", nil, "water", "").
		AddRow(int64(2), "Bogus", "x", nil, "x", "").
		AddRow(int64(3), "Radical", nil, nil, "nothing to show", "").
		AddRow(int64(4), "Radical", nil, "stick", "stick", "")
	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE id IN (?, ?, ?, ?)")).
		WithArgs(int64(1), int64(2), int64(3), int64(4)).
		WillReturnRows(rows)

	subjects, corrupt, err := repo.FindByIDs(context.Background(), []int64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, int64(1), subjects[0].ID)
	assert.Equal(t, int64(4), subjects[1].ID)
	assert.Equal(t, []int64{2, 3}, corrupt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryFindByIDsEmpty(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	subjects, corrupt, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, subjects)
	assert.Empty(t, corrupt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryMatchPrefixUsesIndexRange(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	rows := sqlmock.NewRows([]string{"subject_id", "tier", "key_length", "type_rank"}).
		AddRow(int64(1), 0, 1, 1).
		AddRow(int64(2), 1, 3, 2)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE k.search_key >= ? AND k.search_key < ?")).
		WithArgs("水", "水", search.PrefixUpperBound("水"), 20).
		WillReturnRows(rows)

	matches, err := repo.MatchPrefix(context.Background(), "水", 20)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, search.TierExact, matches[0].Tier)
	assert.Equal(t, search.TierPrefix, matches[1].Tier)
	assert.Equal(t, int64(2), matches[1].SubjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryMatchSubstring(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	rows := sqlmock.NewRows([]string{"subject_id", "tier", "key_length", "type_rank"}).AddRow(int64(2), 2, 3, 2)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE instr(k.search_key, ?) > 0")).
		WithArgs("曜日", 5).
		WillReturnRows(rows)

	matches, err := repo.MatchSubstring(context.Background(), "曜日", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, search.TierSubstring, matches[0].Tier)
}

func TestSubjectRepositoryMatchReturnsPartialOnIterationError(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	rows := sqlmock.NewRows([]string{"subject_id", "tier", "key_length", "type_rank"}).
		AddRow(int64(1), 1, 2, 0).
		AddRow(int64(2), 1, 3, 0).
		RowError(1, context.DeadlineExceeded)
	mock.ExpectQuery("FROM subject_search_keys").WillReturnRows(rows)

	matches, err := repo.MatchPrefix(context.Background(), "x", 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].SubjectID)
}

func TestSubjectRepositoryUpsertReplacesKeysInTransaction(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subjects").
		WithArgs(int64(1), "Kanji", "水", nil, "water", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_search_keys WHERE subject_id = ?")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_search_keys (subject_id, search_key) VALUES (?, ?), (?, ?)")).
		WithArgs(int64(1), "水", int64(1), "water").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), IndexedSubject{
		Subject: models.Subject{ID: 1, SuggestionType: models.SuggestionTypeKanji, Characters: models.StringPtr("水"), OneMeaning: "water"},
		Keys:    []string{"水", "water"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpsertRollsBackOnKeyFailure(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM subject_search_keys").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO subject_search_keys").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), IndexedSubject{
		Subject: models.Subject{ID: 1, SuggestionType: models.SuggestionTypeKanji, Characters: models.StringPtr("水")},
		Keys:    []string{"水"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(database.Opened(db))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_search_keys")).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM subject_search_keys WHERE subject_id").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO subject_search_keys").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), []IndexedSubject{{
		Subject: models.Subject{ID: 5, SuggestionType: models.SuggestionTypeRadical, Slug: models.StringPtr("ground")},
		Keys:    []string{"ground"},
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
