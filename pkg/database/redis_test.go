package database

import (
	"context"
	"mysql_practice_backend/internal/config"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	rdb, err := InitRedis(&config.RedisConfig{
		Host:         mr.Host(),
		Port:         port,
		PoolSize:     7,
		MinIdleConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	assert.Equal(t, 7, rdb.Options().PoolSize)
	assert.Equal(t, 1, rdb.Options().MinIdleConns)
	assert.Equal(t, defaultRedisDialTimeout, rdb.Options().DialTimeout)

	require.NoError(t, rdb.Set(context.Background(), "k", "v", time.Minute).Err())
	assert.True(t, mr.Exists("k"))
}

func TestInitRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host := mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	_, err = InitRedis(&config.RedisConfig{
		Host:        host,
		Port:        port,
		DialTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
}
