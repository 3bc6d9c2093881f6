package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"github.com/ruled/ruled/pkg/rest/model"
	"github.com/ruled/ruled/pkg/ruleconf"
	"github.com/ruled/ruled/pkg/ruleset"
)

type checkCmd struct {
	envelopeFlags
}

func (*checkCmd) Name() string {
	return "check"
}

func (*checkCmd) Synopsis() string {
	return "select a rule from a ruleset file without a server"
}

func (*checkCmd) Usage() string {
	return `check [flags] <rules.toml>:
	load the ruleset file and its tables locally, then select the rule for the envelope
	exit status will be 0 on match, 1 if no rule matched, 75 if deferred
`
}

func (c *checkCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	path := f.Arg(0)
	if path == "" {
		return usage("ruleset file required")
	}
	if err := c.checkOutput(); err != nil {
		return usage(err.Error())
	}
	env, err := c.Envelope()
	if err != nil {
		return usage(err.Error())
	}
	loaded, err := ruleconf.NewLoader(path).Load(ctx)
	if err != nil {
		return fatal("Couldn't load ruleset", err)
	}
	defer func() { _ = loaded.Close() }()

	sel, err := ruleset.Select(ctx, loaded.Ruleset, env, ruleset.NewLogObserver(log.Logger))
	return c.report(os.Stdout, selectionResult(loaded.Ruleset, sel, err))
}

// selectionResult renders a local selection the way the server reports it.
func selectionResult(
	rs *ruleset.Ruleset, sel *ruleset.Selection, err error) *model.JSONMatchResultV1 {
	result := &model.JSONMatchResultV1{Version: rs.Version()}
	var ie *ruleset.IndeterminateError
	switch {
	case err == nil:
		result.Result = model.ResultMatch
		result.Position = sel.Position
		result.Rule = sel.Rule.Description()
		result.Action = sel.Rule.Action()
	case errors.As(err, &ie):
		result.Result = model.ResultDefer
		result.Reason = ie.Reason.String()
		result.Criterion = ie.Kind.String()
		result.Table = ie.Table
		result.Error = err.Error()
	default:
		result.Result = model.ResultNoMatch
	}
	return result
}
