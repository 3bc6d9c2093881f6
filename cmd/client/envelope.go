package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"github.com/ruled/ruled/pkg/rest/model"
)

// envelopeFlags collects the envelope shared by match and check.
type envelopeFlags struct {
	model.JSONEnvelopeV1
	output string
}

func (e *envelopeFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.Tag, "tag", "", "listener tag")
	f.StringVar(&e.Remote, "remote", "", "originating IP address")
	f.StringVar(&e.Helo, "helo", "", "HELO/EHLO domain")
	f.StringVar(&e.Sender, "sender", "", "MAIL FROM address, empty for the null sender")
	f.StringVar(&e.Recipient, "rcpt", "", "RCPT TO address")
	f.BoolVar(&e.Authenticated, "auth", false, "session is authenticated")
	f.BoolVar(&e.Internal, "internal", false, "message was submitted locally")
	f.BoolVar(&e.Bounce, "bounce", false, "message is a bounce")
	f.StringVar(&e.output, "output", "text", "output format: text or json")
}

func (e *envelopeFlags) checkOutput() error {
	switch e.output {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("unknown output type: %s", e.output)
}

// report prints the result and maps it to an exit status: 0 on match, 1 when no rule matched,
// ExitDefer when the selection was deferred.
func (e *envelopeFlags) report(w io.Writer, result *model.JSONMatchResultV1) subcommands.ExitStatus {
	if e.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fatal("Error", err)
		}
	} else {
		switch result.Result {
		case model.ResultMatch:
			fmt.Fprintf(w, "match #%d %s: %s\n", result.Position, result.Action, result.Rule)
		case model.ResultNoMatch:
			fmt.Fprintln(w, "no rule matched")
		case model.ResultDefer:
			fmt.Fprintf(w, "defer: %s (%s criterion", result.Reason, result.Criterion)
			if result.Table != "" {
				fmt.Fprintf(w, " on table %s", result.Table)
			}
			fmt.Fprintln(w, ")")
		}
	}
	switch result.Result {
	case model.ResultMatch:
		return subcommands.ExitSuccess
	case model.ResultDefer:
		return ExitDefer
	default:
		return subcommands.ExitFailure
	}
}
