package main

import (
	"bytes"
	"context"
	"testing"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_SQLite(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := &config.Config{Env: "test", DBDriver: "sqlite"}
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, execute(ctx, db, cfg, []string{"status"}, &out))
	assert.Contains(t, out.String(), "run_sql=false run_auto=true")

	out.Reset()
	require.NoError(t, execute(ctx, db, cfg, []string{"AUTO"}, &out))
	assert.Contains(t, out.String(), "automigrations applied")

	assert.ErrorIs(t, execute(ctx, db, cfg, []string{"up"}, &out), database.ErrSQLMigrationsUnsupported)
	assert.ErrorIs(t, execute(ctx, db, cfg, []string{"down", "1"}, &out), database.ErrSQLMigrationsUnsupported)
	assert.ErrorIs(t, execute(ctx, db, cfg, []string{"sideways"}, &out), errUsage)
	assert.Error(t, execute(ctx, db, cfg, []string{"down"}, &out))
	assert.Error(t, execute(ctx, db, cfg, []string{"down", "abc"}, &out))
}
