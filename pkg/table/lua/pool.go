package lua

import (
	"net/http"
	"sync"

	"github.com/cjoudrey/gluahttp"
	"github.com/cosmotek/loguago"
	json "github.com/inbucket/gopher-json"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

type statePool struct {
	sync.Mutex
	funcProto *lua.FunctionProto // Compiled lua.
	states    []*lua.LState      // Pool of available LStates.
	logger    zerolog.Logger     // Logger exported to Lua scripts.
	closed    bool               // States returned after close are discarded.
}

func newStatePool(logger zerolog.Logger, funcProto *lua.FunctionProto) *statePool {
	return &statePool{funcProto: funcProto, logger: logger}
}

// newState creates a new LState and runs the script in it. Lock must be held.
func (lp *statePool) newState() (*lua.LState, error) {
	ls := lua.NewState()

	logger := loguago.NewLogger(lp.logger)

	// Load supplemental native modules.
	ls.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{}).Loader)
	ls.PreloadModule("json", json.Loader)
	ls.PreloadModule("logger", logger.Loader)

	// Run compiled script.
	ls.Push(ls.NewFunctionFromProto(lp.funcProto))
	if err := ls.PCall(0, lua.MultRet, nil); err != nil {
		ls.Close()
		return nil, err
	}
	ls.Pop(ls.GetTop())

	return ls, nil
}

// getState returns a free LState, or creates a new one.
func (lp *statePool) getState() (*lua.LState, error) {
	lp.Lock()
	defer lp.Unlock()

	ln := len(lp.states)
	if ln == 0 {
		return lp.newState()
	}

	state := lp.states[ln-1]
	lp.states = lp.states[0 : ln-1]

	return state, nil
}

// putState returns the LState to the pool.
func (lp *statePool) putState(state *lua.LState) {
	if state.IsClosed() {
		return
	}

	lp.Lock()
	defer lp.Unlock()

	if lp.closed {
		state.Close()
		return
	}

	// Clear stack.
	state.Pop(state.GetTop())
	lp.states = append(lp.states, state)
}

// close closes every pooled state.  States checked out at the time are closed when returned.
func (lp *statePool) close() {
	lp.Lock()
	defer lp.Unlock()

	lp.closed = true
	for _, s := range lp.states {
		s.Close()
	}
	lp.states = nil
}
