// Package main implements a command line client for the ruled REST API
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ruled/ruled/pkg/table"
	"github.com/ruled/ruled/pkg/table/dns"
	"github.com/ruled/ruled/pkg/table/file"
	"github.com/ruled/ruled/pkg/table/lua"
	"github.com/ruled/ruled/pkg/table/mem"
	"github.com/ruled/ruled/pkg/table/postgres"
	"github.com/ruled/ruled/pkg/table/redis"
	"github.com/ruled/ruled/pkg/table/sqlite"
)

// ExitDefer is returned when the selection could not be decided, EX_TEMPFAIL from sysexits.h.
const ExitDefer subcommands.ExitStatus = 75

var host = flag.String("host", "localhost", "host/IP of ruled server")
var port = flag.Uint("port", 9025, "HTTP port of ruled server")
var verbose = flag.Bool("v", false, "log rule evaluation diagnostics to stderr")

func init() {
	// Table backends used by the offline check command.
	table.Constructors["memory"] = mem.NewFromDef
	table.Constructors["file"] = file.New
	table.Constructors["sqlite"] = sqlite.New
	table.Constructors["postgres"] = postgres.New
	table.Constructors["redis"] = redis.New
	table.Constructors["dns"] = dns.New
	table.Constructors["lua"] = lua.New
}

func main() {
	// Important top-level flags
	subcommands.ImportantFlag("host")
	subcommands.ImportantFlag("port")

	// Setup standard helpers
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	// Setup my commands
	subcommands.Register(&matchCmd{}, "")
	subcommands.Register(&rulesCmd{}, "")
	subcommands.Register(&reloadCmd{}, "")
	subcommands.Register(&checkCmd{}, "offline")

	// Parse and execute
	flag.Parse()
	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

func baseURL() string {
	return "http://" + net.JoinHostPort(*host, strconv.FormatUint(uint64(*port), 10))
}

func fatal(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
