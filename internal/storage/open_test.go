package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/rocketcart/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, config.Config{StorageDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	mr := miniredis.RunT(t)
	rs, err := Open(ctx, config.Config{StorageDriver: config.DriverRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, rs)
	require.NoError(t, rs.Close())

	lite, err := Open(ctx, config.Config{
		StorageDriver: config.DriverSQLite,
		SQLDSN:        filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, lite)
	require.NoError(t, lite.Close())

	_, err = Open(ctx, config.Config{StorageDriver: "etcd"})
	assert.ErrorContains(t, err, "unknown storage driver")
}
