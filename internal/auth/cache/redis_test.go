package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedis starts a throwaway redis container and returns a connected driver.
func setupRedis(t *testing.T) *Redis {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	store, err := NewRedis(ctx, endpoint, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRedis_SetGetDelete(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_Expiry(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 100*time.Millisecond))
	time.Sleep(250 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_SetNXConcurrentSingleWinner(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := store.SetNX(ctx, "contested", []byte("x"), time.Minute)
			require.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestRedis_GetDelConsumeOnce(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "challenge", []byte("v"), time.Minute))

	got, err := store.GetDel(ctx, "challenge")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	_, err = store.GetDel(ctx, "challenge")
	require.ErrorIs(t, err, ErrNotFound)
}
