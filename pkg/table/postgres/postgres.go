// Package postgres implements a table backed by a PostgreSQL query.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ruled/ruled/pkg/table"
)

// DefaultQuery is used when the table definition does not provide one.
const DefaultQuery = "SELECT 1 FROM entries WHERE value = $1 LIMIT 1"

// Table probes a PostgreSQL database for each lookup candidate.
type Table struct {
	name  string
	query string
	pool  *pgxpool.Pool
}

var _ table.Table = &Table{}

// New is a table.Constructor for the "postgres" type.  The pool is verified with a ping before
// the table is returned.
func New(ctx context.Context, def table.Def) (table.Table, error) {
	if def.DSN == "" {
		return nil, errors.New("postgres table requires dsn")
	}
	config, err := pgxpool.ParseConfig(def.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	query := def.Query
	if query == "" {
		query = DefaultQuery
	}
	return &Table{name: def.Name, query: query, pool: pool}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Lookup runs the query for each candidate of key, most specific first.
func (t *Table) Lookup(ctx context.Context, service table.Service, key string) (bool, error) {
	for _, cand := range table.Candidates(service, key) {
		var one int
		err := t.pool.QueryRow(ctx, t.query, cand).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Close closes the connection pool.
func (t *Table) Close() error {
	t.pool.Close()
	return nil
}
