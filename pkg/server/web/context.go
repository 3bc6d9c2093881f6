package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ruled/ruled/pkg/config"
	"github.com/ruled/ruled/pkg/ruleset"
)

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-Id"

// Context is passed into every request handler function.
type Context struct {
	Vars       map[string]string
	RequestID  string
	Logger     zerolog.Logger
	Matcher    *ruleset.Matcher
	Reloader   Reloader
	RootConfig *config.Root
}

// Close the Context (currently does nothing).
func (c *Context) Close() {
	// Do nothing.
}

// MatchContext derives the context for one rule selection, bounded by the configured timeout.
func (c *Context) MatchContext(parent context.Context) (context.Context, context.CancelFunc) {
	if c.RootConfig == nil || c.RootConfig.Web.MatchTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.RootConfig.Web.MatchTimeout)
}

// NewContext returns a Context for the given HTTP Request.
func NewContext(req *http.Request) (*Context, error) {
	id := req.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	ctx := &Context{
		Vars:       mux.Vars(req),
		RequestID:  id,
		Logger:     log.With().Str("module", "web").Str("request", id).Logger(),
		Matcher:    matcher,
		Reloader:   reloader,
		RootConfig: rootConfig,
	}
	return ctx, nil
}
