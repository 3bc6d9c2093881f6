package file_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruled/ruled/pkg/table"
	"github.com/ruled/ruled/pkg/table/file"
	"github.com/ruled/ruled/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `
# relay networks
192.0.2.0/24   office
198.51.100.7 # backup mx

	local
`
	got, err := file.Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.0/24", "198.51.100.7", "local"}, got)
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senders")
	require.NoError(t, os.WriteFile(path, []byte("@example.net\nbob@example.org\n"), 0o600))

	tbl, err := file.New(context.Background(), table.Def{Name: "senders", Type: "file", Path: path})
	require.NoError(t, err)
	assert.Equal(t, "senders", tbl.Name())

	found, err := tbl.Lookup(context.Background(), table.MailAddr, "alice@example.net")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = tbl.Lookup(context.Background(), table.MailAddr, "alice@example.org")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewErrors(t *testing.T) {
	_, err := file.New(context.Background(), table.Def{Name: "x", Type: "file"})
	assert.Error(t, err)

	_, err = file.New(context.Background(),
		table.Def{Name: "x", Type: "file", Path: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSuite(t *testing.T) {
	test.TableSuite(t, func(t *testing.T, entries []string) (table.Table, func(), error) {
		path := filepath.Join(t.TempDir(), "suite")
		data := "# suite entries\n" + strings.Join(entries, "\n") + "\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			return nil, nil, err
		}
		tbl, err := file.Load("suite", path)
		return tbl, func() {}, err
	})
}
