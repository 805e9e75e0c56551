package serial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takax-network/takax/internal/infra/observability"
)

func testLogger() *logrus.Entry {
	return observability.Base(observability.NewLogger(observability.LogConfig{Level: "error"}, &bytes.Buffer{}), "test")
}

func newDispatcher(t *testing.T, cfg Config, locker Locker) *Dispatcher {
	t.Helper()
	d := New(cfg, locker, testLogger())
	t.Cleanup(d.Close)
	return d
}

func TestDo_SameKeyNeverOverlaps(t *testing.T) {
	d := newDispatcher(t, Config{Lanes: 4}, nil)

	var running, maxSeen int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Do(context.Background(), "user-1", func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxSeen)
					if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestDo_PreservesOrderPerKey(t *testing.T) {
	d := newDispatcher(t, Config{Lanes: 2}, nil)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, d.Do(context.Background(), "user-7", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestDo_DifferentKeysRunInParallel(t *testing.T) {
	d := newDispatcher(t, Config{Lanes: 16}, nil)

	// Find two keys on different lanes.
	a, b := "user-a", ""
	for i := 0; i < 100; i++ {
		k := fmt.Sprintf("user-%d", i)
		if d.ring.Lookup(k) != d.ring.Lookup(a) {
			b = k
			break
		}
	}
	require.NotEmpty(t, b)

	release := make(chan struct{})
	started := make(chan struct{})
	go d.Do(context.Background(), a, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	done := make(chan error, 1)
	go func() { done <- d.Do(context.Background(), b, func(context.Context) error { return nil }) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("command on another lane was blocked")
	}
	close(release)
}

func TestDo_ReturnsCommandError(t *testing.T) {
	d := newDispatcher(t, Config{}, nil)
	boom := errors.New("boom")
	assert.ErrorIs(t, d.Do(context.Background(), "k", func(context.Context) error { return boom }), boom)
}

func TestDo_RecoversPanic(t *testing.T) {
	d := newDispatcher(t, Config{Lanes: 1}, nil)
	err := d.Do(context.Background(), "k", func(context.Context) error { panic("bad") })
	assert.ErrorContains(t, err, "panicked")

	// The lane survives.
	assert.NoError(t, d.Do(context.Background(), "k", func(context.Context) error { return nil }))
}

func TestDo_CancelledContext(t *testing.T) {
	d := newDispatcher(t, Config{Lanes: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := d.Do(ctx, "k", func(context.Context) error { ran = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestDo_AfterClose(t *testing.T) {
	d := New(Config{Lanes: 1}, nil, testLogger())
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Do(context.Background(), "k", func(context.Context) error { return nil }), ErrClosed)
}

type countingLocker struct{ locks, unlocks int32 }

func (c *countingLocker) Lock(context.Context, string) (func(), error) {
	atomic.AddInt32(&c.locks, 1)
	return func() { atomic.AddInt32(&c.unlocks, 1) }, nil
}

func TestDo_UsesLocker(t *testing.T) {
	l := &countingLocker{}
	d := newDispatcher(t, Config{Lanes: 1}, l)
	require.NoError(t, d.Do(context.Background(), "k", func(context.Context) error { return nil }))
	assert.Equal(t, int32(1), atomic.LoadInt32(&l.locks))
	assert.Equal(t, int32(1), atomic.LoadInt32(&l.unlocks))
}

// ─── Redis Locker ───────────────────────────────────────────────────────────

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLocker_ExclusiveAndReleased(t *testing.T) {
	client := setupTestRedis(t)
	l := NewRedisLocker(client, RedisLockConfig{Prefix: "takax:test:" + t.Name() + ":", TTL: 5 * time.Second}, testLogger())

	unlock, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "user-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)
	unlock2()
}
