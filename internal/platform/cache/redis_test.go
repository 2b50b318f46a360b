package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock, err := Acquire(ctx, client, "ledger:close:lock", time.Minute)
	require.NoError(t, err)

	_, err = Acquire(ctx, client, "ledger:close:lock", time.Minute)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, lock.Release(ctx))
	require.False(t, mr.Exists("ledger:close:lock"))

	again, err := Acquire(ctx, client, "ledger:close:lock", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock, err := Acquire(ctx, client, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	other, err := Acquire(ctx, client, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
	require.True(t, mr.Exists("k"))
	require.NoError(t, other.Release(ctx))
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	client, err = New(context.Background(), mr.Addr())
	require.Error(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.Close())
}
