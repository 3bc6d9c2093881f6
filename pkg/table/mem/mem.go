// Package mem implements an in-memory table whose entries are given inline in the ruleset.
package mem

import (
	"context"
	"errors"
	"strings"

	"github.com/ruled/ruled/pkg/table"
)

// Table holds a fixed list of entries matched with table.MatchEntry.
type Table struct {
	name    string
	entries []string
}

var _ table.Table = &Table{}

// New creates a Table holding a copy of entries.  Blank entries are dropped.
func New(name string, entries []string) *Table {
	t := &Table{name: name, entries: make([]string, 0, len(entries))}
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			t.entries = append(t.entries, e)
		}
	}
	return t
}

// NewFromDef is a table.Constructor for the "memory" type.
func NewFromDef(_ context.Context, def table.Def) (table.Table, error) {
	if len(def.Values) == 0 {
		return nil, errors.New("memory table requires values")
	}
	return New(def.Name, def.Values), nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup reports whether any entry matches key.
func (t *Table) Lookup(_ context.Context, service table.Service, key string) (bool, error) {
	for _, e := range t.entries {
		if table.MatchEntry(service, e, key) {
			return true, nil
		}
	}
	return false, nil
}
