package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/ruled/ruled/pkg/rest/client"
)

type matchCmd struct {
	envelopeFlags
}

func (*matchCmd) Name() string {
	return "match"
}

func (*matchCmd) Synopsis() string {
	return "select the rule for an envelope"
}

func (*matchCmd) Usage() string {
	return `match [flags]:
	ask the server which rule governs the envelope described by flags
	exit status will be 0 on match, 1 if no rule matched, 75 if deferred
`
}

func (m *matchCmd) Execute(
	ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if err := m.checkOutput(); err != nil {
		return usage(err.Error())
	}
	// Setup REST client
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	result, err := c.Match(ctx, &m.JSONEnvelopeV1)
	if err != nil {
		return fatal("Match REST call failed", err)
	}
	return m.report(os.Stdout, result)
}
