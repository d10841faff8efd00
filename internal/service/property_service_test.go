package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

type propertyRepoStub struct {
	items map[string]string
	err   error
}

func newPropertyRepoStub() *propertyRepoStub {
	return &propertyRepoStub{items: map[string]string{}}
}

func (s *propertyRepoStub) Get(ctx context.Context, name string) (*models.Property, error) {
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.items[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Property{Name: name, Value: value}, nil
}

func (s *propertyRepoStub) List(ctx context.Context) ([]models.Property, error) {
	if s.err != nil {
		return nil, s.err
	}
	props := make([]models.Property, 0, len(s.items))
	for name, value := range s.items {
		props = append(props, models.Property{Name: name, Value: value})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props, nil
}

func (s *propertyRepoStub) Upsert(ctx context.Context, prop *models.Property) error {
	if s.err != nil {
		return s.err
	}
	s.items[prop.Name] = prop.Value
	return nil
}

func (s *propertyRepoStub) Delete(ctx context.Context, name string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.items, name)
	return nil
}

func (s *propertyRepoStub) DeleteAll(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	n := int64(len(s.items))
	s.items = map[string]string{}
	return n, nil
}

func TestPropertyServiceRoundTrip(t *testing.T) {
	svc := NewPropertyService(newPropertyRepoStub(), nil, nil, nil)
	ctx := context.Background()

	_, ok, err := svc.Get(ctx, "cursor")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "fallback", svc.GetOrDefault(ctx, "cursor", "fallback"))

	require.NoError(t, svc.Put(ctx, "cursor", "42"))
	value, ok, err := svc.Get(ctx, "cursor")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", value)

	require.NoError(t, svc.Put(ctx, "cursor", ""))
	value, ok, _ = svc.Get(ctx, "cursor")
	assert.True(t, ok)
	assert.Equal(t, "", value)

	require.NoError(t, svc.Remove(ctx, "cursor"))
	require.NoError(t, svc.Remove(ctx, "cursor"))
	_, ok, _ = svc.Get(ctx, "cursor")
	assert.False(t, ok)
}

func TestPropertyServiceRejectsEmptyName(t *testing.T) {
	svc := NewPropertyService(newPropertyRepoStub(), nil, nil, nil)

	err := svc.Put(context.Background(), "", "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPropertyServiceGetOrDefaultOnStorageError(t *testing.T) {
	repo := newPropertyRepoStub()
	repo.err = errors.New("database is locked")
	svc := NewPropertyService(repo, nil, nil, nil)

	assert.Equal(t, "d", svc.GetOrDefault(context.Background(), "cursor", "d"))
	_, _, err := svc.Get(context.Background(), "cursor")
	assert.Equal(t, appErrors.ErrStorageTransient.Code, appErrors.FromError(err).Code)
}

func TestPropertyServiceTypedHelpers(t *testing.T) {
	svc := NewPropertyService(newPropertyRepoStub(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.PutInt64(ctx, "count", 1234567890123))
	assert.Equal(t, int64(1234567890123), svc.GetInt64(ctx, "count", -1))
	assert.Equal(t, int64(-1), svc.GetInt64(ctx, "missing", -1))

	require.NoError(t, svc.Put(ctx, "garbage", "not-a-number"))
	assert.Equal(t, int64(7), svc.GetInt64(ctx, "garbage", 7))

	require.NoError(t, svc.PutBool(ctx, "flag", true))
	assert.True(t, svc.GetBool(ctx, "flag", false))
	assert.False(t, svc.GetBool(ctx, "garbage", false))
}

func TestPropertyServiceListAndReset(t *testing.T) {
	svc := NewPropertyService(newPropertyRepoStub(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "b", "2"))
	require.NoError(t, svc.Put(ctx, "a", "1"))
	props, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "a", props[0].Name)

	removed, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	props, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, props)
}
