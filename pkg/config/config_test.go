package config_test

import (
	"testing"
	"time"

	"github.com/ruled/ruled/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDefaults(t *testing.T) {
	c, err := config.Process()
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "/etc/ruled/rules.toml", c.Rules.Path)
	assert.Equal(t, 30*time.Second, c.Rules.ReloadGrace)
	assert.Equal(t, "127.0.0.1:9025", c.Web.Addr)
	assert.Equal(t, 10*time.Second, c.Web.MatchTimeout)
}

func TestProcessEnv(t *testing.T) {
	t.Setenv("RULED_RULES_PATH", "/tmp/rules.toml")
	t.Setenv("RULED_WEB_BASEPATH", "/ruled")
	t.Setenv("RULED_LOGLEVEL", "debug")
	c, err := config.Process()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/rules.toml", c.Rules.Path)
	assert.Equal(t, "/ruled", c.Web.BasePath)
	assert.Equal(t, "debug", c.LogLevel)
}
