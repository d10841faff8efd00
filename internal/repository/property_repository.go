package repository

import (
	"context"
	"fmt"

	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/pkg/database"
)

// PropertyRepository persists small named scalars. The connection is resolved
// through source on every call.
type PropertyRepository struct {
	source database.Source
}

// NewPropertyRepository constructs the repository.
func NewPropertyRepository(source database.Source) *PropertyRepository {
	return &PropertyRepository{source: source}
}

// Get fetches a single property by name, sql.ErrNoRows when absent.
func (r *PropertyRepository) Get(ctx context.Context, name string) (*models.Property, error) {
	db, err := r.source.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT name, value FROM properties WHERE name = ?`
	var prop models.Property
	if err := db.GetContext(ctx, &prop, query, name); err != nil {
		return nil, err
	}
	return &prop, nil
}

// List returns every property ordered by name.
func (r *PropertyRepository) List(ctx context.Context) ([]models.Property, error) {
	db, err := r.source.DB(ctx)
	if err != nil {
		return nil, err
	}
	props := []models.Property{}
	if err := db.SelectContext(ctx, &props, `SELECT name, value FROM properties ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return props, nil
}

// Upsert inserts or overwrites a property.
func (r *PropertyRepository) Upsert(ctx context.Context, prop *models.Property) error {
	db, err := r.source.DB(ctx)
	if err != nil {
		return err
	}
	const query = `INSERT INTO properties (name, value) VALUES (:name, :value)
ON CONFLICT (name) DO UPDATE SET value = excluded.value`
	if _, err := db.NamedExecContext(ctx, query, prop); err != nil {
		return fmt.Errorf("upsert property: %w", err)
	}
	return nil
}

// Delete removes a property. Deleting a missing name is not an error.
func (r *PropertyRepository) Delete(ctx context.Context, name string) error {
	db, err := r.source.DB(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM properties WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	return nil
}

// DeleteAll wipes the table and reports how many properties were removed.
func (r *PropertyRepository) DeleteAll(ctx context.Context) (int64, error) {
	db, err := r.source.DB(ctx)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM properties`)
	if err != nil {
		return 0, fmt.Errorf("reset properties: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset properties: %w", err)
	}
	return n, nil
}
