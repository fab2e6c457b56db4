package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSQLiteDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "extension.db")

	db, err := Open(path)
	require.NoError(t, err)

	var result int
	require.NoError(t, db.Raw("SELECT 1").Scan(&result).Error)
	require.Equal(t, 1, result)
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "extension.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"students", "places", "records", "users", "audit"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestOpenRejectsEmptyLocation(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestConnectRedisRejectsEmptyURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), " ", "test")
	require.Error(t, err)
}

func TestConnectRedisPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}
