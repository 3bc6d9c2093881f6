package server

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/ruled/ruled/pkg/config"
	"github.com/ruled/ruled/pkg/metric"
	"github.com/ruled/ruled/pkg/rest"
	"github.com/ruled/ruled/pkg/ruleconf"
	"github.com/ruled/ruled/pkg/ruleset"
	"github.com/ruled/ruled/pkg/server/web"
	"github.com/ruled/ruled/pkg/stringutil"
)

// Services holds the configured and started services.
type Services struct {
	Matcher   *ruleset.Matcher
	Rules     *ruleconf.Manager
	WebServer *web.Server
}

// Prod wires up the production ruled environment.  The ruleset file must load, otherwise no
// service is started.
func Prod(rootCtx context.Context, shutdownChan chan bool, conf *config.Root) (*Services, error) {
	// Load the initial ruleset.
	holder := ruleset.NewHolder(nil)
	rules := ruleconf.NewManager(ruleconf.NewLoader(conf.Rules.Path), holder, conf.Rules.ReloadGrace)
	if _, err := rules.Reload(rootCtx); err != nil {
		return nil, err
	}
	matcher := &ruleset.Matcher{
		Rules:    holder,
		Observer: ruleset.Observers{ruleset.NewLogObserver(log.Logger), metric.Observer{}},
	}

	// Configure routes and start HTTP server.
	webServer := web.NewServer(conf, shutdownChan, matcher, rules)
	prefix := stringutil.MakePathPrefixer(conf.Web.BasePath)
	rest.SetupRoutes(web.Router.PathPrefix(prefix("/api/")).Subrouter())
	go webServer.Start(rootCtx, func() {})

	return &Services{
		Matcher:   matcher,
		Rules:     rules,
		WebServer: webServer,
	}, nil
}

// Reload reloads the ruleset file, keeping the current ruleset on failure.
func (s *Services) Reload(ctx context.Context) error {
	_, err := s.Rules.Reload(ctx)
	return err
}

// Close releases the tables of the published ruleset.
func (s *Services) Close() error {
	return s.Rules.Close()
}
