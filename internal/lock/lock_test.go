package lock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedis(rdb, time.Second), mr
}

// assertExclusive runs workers that each take the same key and checks that
// no two were inside the critical section at once.
func assertExclusive(t *testing.T, l Locker) {
	t.Helper()
	var inside, maxInside, done int32

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			unlock, err := l.Lock(ctx, "match-1")
			if err != nil {
				return err
			}
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			atomic.AddInt32(&done, 1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, int32(20), done)
}

func TestLocal(t *testing.T) {
	t.Run("exclusive per key", func(t *testing.T) {
		l := NewLocal()
		assertExclusive(t, l)
		assert.Equal(t, 0, l.size())
	})

	t.Run("different keys do not block", func(t *testing.T) {
		l := NewLocal()
		unlockA, err := l.Lock(context.Background(), "a")
		require.NoError(t, err)
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlockB, err := l.Lock(ctx, "b")
		require.NoError(t, err)
		unlockB()
	})

	t.Run("cancelled wait gives up", func(t *testing.T) {
		l := NewLocal()
		unlock, err := l.Lock(context.Background(), "a")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = l.Lock(ctx, "a")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		unlock()
		assert.Equal(t, 0, l.size())
	})
}

func TestRedis(t *testing.T) {
	t.Run("exclusive per key", func(t *testing.T) {
		l, _ := newTestRedis(t)
		assertExclusive(t, l)
	})

	t.Run("release removes the key", func(t *testing.T) {
		l, mr := newTestRedis(t)
		unlock, err := l.Lock(context.Background(), "m1")
		require.NoError(t, err)
		assert.True(t, mr.Exists("match-ledger:lock:m1"))
		unlock()
		assert.False(t, mr.Exists("match-ledger:lock:m1"))
	})

	t.Run("expired lock is not released by the old holder", func(t *testing.T) {
		l, mr := newTestRedis(t)
		ctx := context.Background()
		unlock, err := l.Lock(ctx, "m1")
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)
		unlockNew, err := l.Lock(ctx, "m1")
		require.NoError(t, err)

		unlock()
		assert.True(t, mr.Exists("match-ledger:lock:m1"))
		unlockNew()
		assert.False(t, mr.Exists("match-ledger:lock:m1"))
	})

	t.Run("cancelled wait gives up", func(t *testing.T) {
		l, _ := newTestRedis(t)
		unlock, err := l.Lock(context.Background(), "m1")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = l.Lock(ctx, "m1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("ping", func(t *testing.T) {
		l, _ := newTestRedis(t)
		assert.NoError(t, l.Ping(context.Background()))
	})
}
