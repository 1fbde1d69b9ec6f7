package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *RedisClient {
	t.Helper()

	srv := miniredis.RunT(t)
	client, err := NewRedisClient(RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRedisClientSetGetDelete(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	_, found, err := client.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, client.Set(ctx, "greeting", []byte("hello"), time.Minute))

	val, found, err := client.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("hello"), val)

	require.NoError(t, client.Delete(ctx, "greeting"))

	_, found, err = client.Get(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisClientIncrementWithTTL(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	count, ttl, err := client.IncrementWithTTL(ctx, "counter", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = client.IncrementWithTTL(ctx, "counter", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}
