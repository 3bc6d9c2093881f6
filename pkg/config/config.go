package config

import (
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "ruled"
	tableFormat = `ruled is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main
	Version = ""

	// BuildDate for this build, set by main
	BuildDate = ""
)

// Root wraps all other configurations.
type Root struct {
	LogLevel string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	Rules    Rules
	Web      Web
}

// Rules contains the ruleset file configuration.
type Rules struct {
	Path        string        `required:"true" default:"/etc/ruled/rules.toml" desc:"Ruleset file"`
	ReloadGrace time.Duration `required:"true" default:"30s" desc:"Delay before closing replaced tables"`
}

// Web contains the HTTP server configuration.
type Web struct {
	Addr         string        `required:"true" default:"127.0.0.1:9025" desc:"HTTP API IP4 host:port"`
	BasePath     string        `default:"" desc:"Base path prefix for API routes"`
	MatchTimeout time.Duration `required:"true" default:"10s" desc:"Deadline for one rule selection"`
	PProf        bool          `required:"true" default:"false" desc:"Expose profiling tools"`
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	err := envconfig.Process(prefix, c)
	return c, err
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	_ = tabs.Flush()
}
