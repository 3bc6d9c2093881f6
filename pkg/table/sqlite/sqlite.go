// Package sqlite implements a table backed by a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/ruled/ruled/pkg/table"
	_ "modernc.org/sqlite" // Registers the "sqlite" driver.
)

// DefaultQuery is used when the table definition does not provide one.  It receives a single
// candidate key and must return a row when the key is present.
const DefaultQuery = "SELECT 1 FROM entries WHERE value = ? LIMIT 1"

// Table probes a SQLite database for each lookup candidate.
type Table struct {
	name  string
	query string
	db    *sql.DB
}

var _ table.Table = &Table{}

// Open opens the existing database at path.  An empty query selects DefaultQuery.
func Open(ctx context.Context, name, path, query string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if query == "" {
		query = DefaultQuery
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s failed: %w", path, err)
	}
	return &Table{name: name, query: query, db: db}, nil
}

// New is a table.Constructor for the "sqlite" type.  The database path is taken from Path, or
// DSN when Path is empty.
func New(ctx context.Context, def table.Def) (table.Table, error) {
	path := def.Path
	if path == "" {
		path = def.DSN
	}
	if path == "" {
		return nil, errors.New("sqlite table requires path")
	}
	return Open(ctx, def.Name, path, def.Query)
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Lookup runs the query for each candidate of key, most specific first.
func (t *Table) Lookup(ctx context.Context, service table.Service, key string) (bool, error) {
	for _, cand := range table.Candidates(service, key) {
		var one int
		err := t.db.QueryRowContext(ctx, t.query, cand).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Close closes the database.
func (t *Table) Close() error {
	return t.db.Close()
}
