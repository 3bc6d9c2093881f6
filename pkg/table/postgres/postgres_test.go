package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/ruled/ruled/pkg/table"
	"github.com/ruled/ruled/pkg/table/postgres"
	"github.com/stretchr/testify/assert"
)

func TestNewRequiresDSN(t *testing.T) {
	_, err := postgres.New(context.Background(), table.Def{Name: "pg", Type: "postgres"})
	assert.ErrorContains(t, err, "requires dsn")
}

func TestNewUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := postgres.New(ctx, table.Def{
		Name: "pg",
		Type: "postgres",
		DSN:  "postgres://ruled@127.0.0.1:1/ruled?connect_timeout=1",
	})
	assert.ErrorContains(t, err, "failed to ping database")
}
