package database

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/smouldering-durtles/wk-search/pkg/config"
)

// ErrClosed is returned by Handle.DB after Close.
var ErrClosed = errors.New("database handle closed")

// Source resolves the store connection for a single operation.
type Source interface {
	DB(ctx context.Context) (*sqlx.DB, error)
}

// Opened wraps a connection that is already open as a Source.
func Opened(db *sqlx.DB) Source {
	return openedSource{db: db}
}

type openedSource struct {
	db *sqlx.DB
}

func (o openedSource) DB(context.Context) (*sqlx.DB, error) {
	return o.db, nil
}

// Handle owns the process-wide store connection. The database is opened on the
// first call to DB and released by Close; all access goes through DB.
type Handle struct {
	cfg    config.DatabaseConfig
	mu     sync.Mutex
	db     *sqlx.DB
	closed bool
}

// NewHandle returns a handle that has not opened anything yet.
func NewHandle(cfg config.DatabaseConfig) *Handle {
	return &Handle{cfg: cfg}
}

// DB opens the database on first use. A failed open is retried on the next call.
func (h *Handle) DB(ctx context.Context) (*sqlx.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if h.db != nil {
		return h.db, nil
	}
	db, err := NewSQLite(ctx, h.cfg)
	if err != nil {
		return nil, err
	}
	h.db = db
	return db, nil
}

// Close releases the connection pool. Further DB calls fail with ErrClosed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
