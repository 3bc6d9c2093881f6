package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/ruled/ruled/pkg/rest/client"
	"github.com/ruled/ruled/pkg/rest/model"
)

type rulesCmd struct {
	output string
}

func (*rulesCmd) Name() string {
	return "rules"
}

func (*rulesCmd) Synopsis() string {
	return "list the published ruleset"
}

func (*rulesCmd) Usage() string {
	return `rules [flags]:
	list the rules the server is currently using, in evaluation order
`
}

func (r *rulesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.output, "output", "text", "output format: text or json")
}

func (r *rulesCmd) Execute(
	ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	rs, err := c.Ruleset(ctx)
	if err != nil {
		return fatal("Ruleset REST call failed", err)
	}
	if err := outputRuleset(os.Stdout, r.output, rs); err != nil {
		return fatal("Error", err)
	}
	return subcommands.ExitSuccess
}

type reloadCmd struct {
	output string
}

func (*reloadCmd) Name() string {
	return "reload"
}

func (*reloadCmd) Synopsis() string {
	return "reload the server ruleset file"
}

func (*reloadCmd) Usage() string {
	return `reload [flags]:
	ask the server to reload its ruleset file, then list the new ruleset
	a failed reload leaves the previous ruleset in place
`
}

func (r *reloadCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.output, "output", "text", "output format: text or json")
}

func (r *reloadCmd) Execute(
	ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	rs, err := c.Reload(ctx)
	if err != nil {
		return fatal("Reload REST call failed", err)
	}
	if err := outputRuleset(os.Stdout, r.output, rs); err != nil {
		return fatal("Error", err)
	}
	return subcommands.ExitSuccess
}

func outputRuleset(w io.Writer, format string, rs *model.JSONRulesetV1) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	case "text":
		fmt.Fprintf(w, "ruleset version %d, %d rules\n", rs.Version, len(rs.Rules))
		for _, r := range rs.Rules {
			fmt.Fprintf(w, "%4d  %s\n", r.Position, r.Rule)
		}
		return nil
	}
	return fmt.Errorf("unknown output type: %s", format)
}
