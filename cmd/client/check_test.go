package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/ruled/ruled/pkg/rest/model"
	"github.com/ruled/ruled/pkg/ruleconf"
	"github.com/ruled/ruled/pkg/ruleset"
	"github.com/ruled/ruled/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesFile = `
[tables.relays]
type = "memory"
values = ["192.0.2.0/24"]

[[match]]
from = "relays"
action = "relay"

[[match]]
tls = true
action = "secure"
`

func TestSelectionResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(rulesFile), 0o600))
	loaded, err := ruleconf.NewLoader(path).Load(context.Background())
	require.NoError(t, err)
	defer loaded.Close()

	flags := &envelopeFlags{output: "text"}
	flags.Remote = "192.0.2.7"
	env, err := flags.Envelope()
	require.NoError(t, err)
	sel, err := ruleset.Select(context.Background(), loaded.Ruleset, env, nil)
	result := selectionResult(loaded.Ruleset, sel, err)
	assert.Equal(t, model.ResultMatch, result.Result)
	assert.Equal(t, "relay", result.Action)

	buf := &bytes.Buffer{}
	assert.Equal(t, subcommands.ExitSuccess, flags.report(buf, result))
	assert.Equal(t, "match #1 relay: match from relays action \"relay\"\n", buf.String())

	flags.Remote = "198.51.100.1"
	env, err = flags.Envelope()
	require.NoError(t, err)
	sel, err = ruleset.Select(context.Background(), loaded.Ruleset, env, nil)
	result = selectionResult(loaded.Ruleset, sel, err)
	assert.Equal(t, model.ResultDefer, result.Result)
	assert.Equal(t, "unsupported", result.Reason)
	assert.Equal(t, "tls", result.Criterion)

	buf.Reset()
	assert.Equal(t, ExitDefer, flags.report(buf, result))
	assert.Equal(t, "defer: unsupported (tls criterion)\n", buf.String())
}

func TestReportNoMatch(t *testing.T) {
	result := selectionResult(ruleset.New(2), nil, ruleset.ErrNoRuleMatched)
	assert.Equal(t, model.ResultNoMatch, result.Result)
	assert.Equal(t, uint64(2), result.Version)

	buf := &bytes.Buffer{}
	flags := &envelopeFlags{output: "json"}
	assert.Equal(t, subcommands.ExitFailure, flags.report(buf, result))
	assert.JSONEq(t, `{"result":"no-match","version":2}`, buf.String())
}

func TestReportDeferTable(t *testing.T) {
	err := &ruleset.IndeterminateError{Reason: ruleset.ReasonLookup, Kind: ruleset.KindRcptTo,
		Table: "rcpts", Err: errors.New("timeout")}
	result := selectionResult(ruleset.New(1), nil, err)
	buf := &bytes.Buffer{}
	flags := &envelopeFlags{output: "text"}
	assert.Equal(t, ExitDefer, flags.report(buf, result))
	assert.Equal(t, "defer: lookup (rcpt-to criterion on table rcpts)\n", buf.String())
}

func TestOutputRuleset(t *testing.T) {
	rs := &model.JSONRulesetV1{Version: 4, Rules: []*model.JSONRuleV1{
		{Position: 1, Rule: `match action "x"`, Action: "x"},
	}}
	buf := &bytes.Buffer{}
	require.NoError(t, outputRuleset(buf, "text", rs))
	assert.Equal(t, "ruleset version 4, 1 rules\n   1  match action \"x\"\n", buf.String())
	assert.Error(t, outputRuleset(buf, "yaml", rs))
}

func TestTablesRegistered(t *testing.T) {
	for _, typ := range []string{"memory", "file", "sqlite", "postgres", "redis", "dns", "lua"} {
		assert.Contains(t, table.Constructors, typ)
	}
}
