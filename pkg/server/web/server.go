// Package web provides the plumbing for the ruled HTTP API.
package web

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/ruled/ruled/pkg/config"
	"github.com/ruled/ruled/pkg/ruleset"
	"github.com/ruled/ruled/pkg/stringutil"
)

// Reloader replaces the published ruleset with a freshly loaded one.
type Reloader interface {
	Reload(ctx context.Context) (*ruleset.Ruleset, error)
}

var (
	// Router sends incoming requests to the correct handler function.  It is rebuilt by
	// NewServer.
	Router = mux.NewRouter()

	rootConfig *config.Root
	matcher    *ruleset.Matcher
	reloader   Reloader
)

// Server is the HTTP API listener.
type Server struct {
	http           *http.Server
	listener       net.Listener
	globalShutdown chan bool
	notify         chan error
	done           chan struct{}
}

// NewServer sets up shared handler state and the base routes.  API routes are added to Router
// by the caller.
func NewServer(conf *config.Root, shutdownChan chan bool, m *ruleset.Matcher, r Reloader) *Server {
	rootConfig = conf
	matcher = m
	reloader = r

	prefix := stringutil.MakePathPrefixer(conf.Web.BasePath)
	Router = mux.NewRouter()
	Router.Path(prefix("/metrics")).Handler(promhttp.Handler()).Methods("GET")
	if conf.Web.PProf {
		Router.HandleFunc(prefix("/debug/pprof/cmdline"), pprof.Cmdline)
		Router.HandleFunc(prefix("/debug/pprof/profile"), pprof.Profile)
		Router.HandleFunc(prefix("/debug/pprof/symbol"), pprof.Symbol)
		Router.HandleFunc(prefix("/debug/pprof/trace"), pprof.Trace)
		Router.PathPrefix(prefix("/debug/pprof/")).HandlerFunc(pprof.Index)
		log.Warn().Str("module", "web").Str("phase", "startup").
			Msg("Go pprof tools installed to " + prefix("/debug/pprof"))
	}
	Router.NotFoundHandler = noMatchHandler(http.StatusNotFound, "No route matches URI path")
	Router.MethodNotAllowedHandler = noMatchHandler(http.StatusMethodNotAllowed,
		"Method not allowed for URI path")

	return &Server{
		http: &http.Server{
			Addr:         conf.Web.Addr,
			Handler:      requestLoggingWrapper(Router),
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		globalShutdown: shutdownChan,
		notify:         make(chan error, 1),
		done:           make(chan struct{}),
	}
}

// Start begins listening for HTTP requests, and blocks until ctx is done and in-flight requests
// have drained.
func (s *Server) Start(ctx context.Context, readyFunc func()) {
	defer close(s.done)
	slog := log.With().Str("module", "web").Str("phase", "startup").Logger()
	var err error
	s.listener, err = net.Listen("tcp", s.http.Addr)
	if err != nil {
		slog.Error().Err(err).Msg("HTTP failed to start TCP listener")
		s.emergencyShutdown()
		return
	}
	slog.Info().Str("addr", s.listener.Addr().String()).Msg("HTTP listening on tcp")

	// Listener go routine.
	go s.serve(ctx)
	if readyFunc != nil {
		readyFunc()
	}

	// Wait for shutdown.
	<-ctx.Done()
	slog = log.With().Str("module", "web").Str("phase", "shutdown").Logger()
	slog.Debug().Msg("HTTP server shutting down on request")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		slog.Error().Err(err).Msg("Failed to shut down HTTP server")
	}
}

// serve begins serving HTTP requests.
func (s *Server) serve(ctx context.Context) {
	// server.Serve blocks until we close the listener.
	err := s.http.Serve(s.listener)

	select {
	case <-ctx.Done():
		// Nop
	default:
		log.Error().Str("module", "web").Err(err).Msg("HTTP server failed")
		s.notify <- err
		close(s.notify)
		s.emergencyShutdown()
	}
}

func (s *Server) emergencyShutdown() {
	select {
	case <-s.globalShutdown:
	default:
		close(s.globalShutdown)
	}
}

// Done is closed once Start has returned, after which no request is being served.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Notify allows the running HTTP server to be monitored for a fatal error.
func (s *Server) Notify() <-chan error {
	return s.notify
}
