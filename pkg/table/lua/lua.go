// Package lua implements a table answered by a Lua script.
//
// The script must define a global function lookup(service, key).  It returns true when the key
// is present, false or nil when it is not, or nil and an error message when it cannot answer.
// The http, json and logger modules are available through require.
package lua

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ruled/ruled/pkg/table"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// FuncLookup is the name of the global function called for each lookup.
const FuncLookup = "lookup"

// ErrNoLookup indicates the script does not define the lookup function.
var ErrNoLookup = errors.New("script does not define function " + FuncLookup)

// Table calls a Lua function for every lookup.  Each concurrent lookup uses its own LState.
type Table struct {
	name string
	pool *statePool
}

var _ table.Table = &Table{}

// New is a table.Constructor for the "lua" type, loading the script at def.Path.
func New(_ context.Context, def table.Def) (table.Table, error) {
	scriptPath := def.Path
	if scriptPath == "" {
		return nil, errors.New("lua table requires path")
	}
	if fi, err := os.Stat(scriptPath); err != nil {
		return nil, err
	} else if fi.IsDir() {
		return nil, fmt.Errorf("Lua script %v is a directory", scriptPath)
	}

	file, err := os.Open(scriptPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	logger := log.With().Str("module", "lua").Str("table", def.Name).Logger()
	logger.Info().Str("path", scriptPath).Msg("Loading script")

	return NewFromReader(def.Name, logger, bufio.NewReader(file), scriptPath)
}

// NewFromReader constructs a Table, loading Lua source from the provided reader.  The provided
// path is used in error messages.
func NewFromReader(name string, logger zerolog.Logger, r io.Reader, path string) (*Table, error) {
	// Pre-parse, and compile script.
	chunk, err := parse.Parse(r, path)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	// Build the pool and confirm the script defines lookup.
	pool := newStatePool(logger, proto)
	ls, err := pool.getState()
	if err != nil {
		return nil, err
	}
	defer pool.putState(ls)
	if ls.GetGlobal(FuncLookup).Type() != lua.LTFunction {
		return nil, fmt.Errorf("%s: %w", path, ErrNoLookup)
	}

	return &Table{name: name, pool: pool}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Lookup calls lookup(service, key) with the service name as a string.
func (t *Table) Lookup(ctx context.Context, service table.Service, key string) (bool, error) {
	ls, err := t.pool.getState()
	if err != nil {
		return false, err
	}
	defer t.pool.putState(ls)

	ls.SetContext(ctx)
	defer ls.RemoveContext()

	err = ls.CallByParam(
		lua.P{Fn: ls.GetGlobal(FuncLookup), NRet: 2, Protect: true},
		lua.LString(service.String()),
		lua.LString(key),
	)
	if err != nil {
		// The state may have been left mid-call; do not reuse it.
		ls.Close()
		return false, err
	}
	ret, msg := ls.Get(-2), ls.Get(-1)
	ls.Pop(2)

	if msg != lua.LNil {
		return false, errors.New(msg.String())
	}
	switch v := ret.(type) {
	case lua.LBool:
		return bool(v), nil
	case *lua.LNilType:
		return false, nil
	default:
		return false, fmt.Errorf("%s returned %s, want boolean", FuncLookup, ret.Type())
	}
}

// Close releases the pooled Lua states.
func (t *Table) Close() error {
	t.pool.close()
	return nil
}
