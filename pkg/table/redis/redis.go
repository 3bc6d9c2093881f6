// Package redis implements a table backed by a Redis set.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ruled/ruled/pkg/table"
)

// Table checks lookup candidates for membership of a single Redis set.
type Table struct {
	name   string
	key    string
	client redis.UniversalClient
}

var _ table.Table = &Table{}

// NewWithClient creates a Table using the set stored at key.
func NewWithClient(name, key string, client redis.UniversalClient) *Table {
	return &Table{name: name, key: key, client: client}
}

// New is a table.Constructor for the "redis" type.  DSN is a redis:// URL; the set key defaults
// to the table name.
func New(ctx context.Context, def table.Def) (table.Table, error) {
	if def.DSN == "" {
		return nil, errors.New("redis table requires dsn")
	}
	opts, err := redis.ParseURL(def.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	key := def.Key
	if key == "" {
		key = def.Name
	}
	return NewWithClient(def.Name, key, client), nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Lookup asks for the membership of every candidate of key in one round trip.
func (t *Table) Lookup(ctx context.Context, service table.Service, key string) (bool, error) {
	cands := table.Candidates(service, key)
	members := make([]any, len(cands))
	for i, c := range cands {
		members[i] = c
	}
	found, err := t.client.SMIsMember(ctx, t.key, members...).Result()
	if err != nil {
		return false, err
	}
	for _, ok := range found {
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Close closes the client.
func (t *Table) Close() error {
	return t.client.Close()
}
