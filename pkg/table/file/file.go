// Package file implements a table loaded from a text file with one entry per line.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ruled/ruled/pkg/table"
	"github.com/ruled/ruled/pkg/table/mem"
)

// Parse reads entries from r.  Text following '#' is ignored, as is everything after the first
// whitespace separated field of a line.
func Parse(r io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		entries = append(entries, fields[0])
	}
	return entries, scanner.Err()
}

// Load creates an in-memory table from the file at path.
func Load(name, path string) (*mem.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return mem.New(name, entries), nil
}

// New is a table.Constructor for the "file" type.
func New(_ context.Context, def table.Def) (table.Table, error) {
	if def.Path == "" {
		return nil, errors.New("file table requires path")
	}
	return Load(def.Name, def.Path)
}
