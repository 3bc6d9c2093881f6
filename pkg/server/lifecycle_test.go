package server_test

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruled/ruled/pkg/config"
	"github.com/ruled/ruled/pkg/envelope"
	"github.com/ruled/ruled/pkg/server"
	"github.com/ruled/ruled/pkg/table"
	"github.com/ruled/ruled/pkg/table/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(path string) *config.Root {
	return &config.Root{
		Rules: config.Rules{Path: path},
		Web:   config.Web{Addr: "127.0.0.1:0"},
	}
}

func TestProd(t *testing.T) {
	table.Constructors["memory"] = mem.NewFromDef
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[tables.lan]
type = "memory"
values = ["10.0.0.0/8"]

[[match]]
from = "lan"
action = "relay"
`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	services, err := server.Prod(ctx, make(chan bool), testConfig(path))
	require.NoError(t, err)
	defer services.Close()

	sel, err := services.Matcher.Match(ctx, &envelope.Envelope{Remote: netip.MustParseAddr("10.1.2.3")})
	require.NoError(t, err)
	assert.Equal(t, "relay", sel.Rule.Action())
	assert.Equal(t, uint64(1), sel.Version)

	require.NoError(t, os.WriteFile(path, []byte("[[match]]\naction = \"accept\"\n"), 0o600))
	require.NoError(t, services.Reload(ctx))
	sel, err = services.Matcher.Match(ctx, &envelope.Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "accept", sel.Rule.Action())
	assert.Equal(t, uint64(2), sel.Version)
}

func TestProdBadRules(t *testing.T) {
	_, err := server.Prod(context.Background(), make(chan bool),
		testConfig(filepath.Join(t.TempDir(), "missing.toml")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
