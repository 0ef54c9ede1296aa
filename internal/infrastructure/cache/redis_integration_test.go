//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStores(t *testing.T) {
	client := newRedisClient(t)
	stores := NewRedisStores(client, "test:")
	ctx := context.Background()

	isNew, err := stores.Idempotency.MarkProcessed(ctx, "evt", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)
	isNew, err = stores.Idempotency.MarkProcessed(ctx, "evt", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)

	keys, err := client.Keys(ctx, "test:idem:*").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"test:idem:evt"}, keys)

	require.NoError(t, stores.Idempotency.Release(ctx, "evt"))
	processed, err := stores.Idempotency.IsProcessed(ctx, "evt")
	require.NoError(t, err)
	assert.False(t, processed)

	unlock, ok, err := stores.Locker.TryLock(ctx, "push", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = stores.Locker.TryLock(ctx, "push", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, unlock(ctx))
	assert.ErrorIs(t, unlock(ctx), ErrLockNotHeld)
}
