package invalidation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PNikhileswar/neurapress/internal/statscache"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, Event) error {
	f.calls++
	return errors.New("broker unavailable")
}

func warmCache() *statscache.Cache {
	c := statscache.New(time.Minute)
	c.Set(statscache.KeyAllStats, 1)
	c.Set(statscache.KeyCategoryCounts, 2)
	c.Set("science", 3)
	c.Set("health", 4)
	return c
}

func TestLocalNotifier(t *testing.T) {
	c := warmCache()
	n := NewLocalNotifier(c)

	require.NoError(t, n.Notify(context.Background(), NewEvent(statscache.EventCreated, "science")))
	assert.True(t, c.Get("science").NeedsRefresh)
	assert.True(t, c.Get(statscache.KeyAllStats).NeedsRefresh)
	assert.True(t, c.Get("health").Cached)
}

func TestChain_ContinuesAfterFailure(t *testing.T) {
	c := warmCache()
	bad := &failingNotifier{}
	chain := Chain{bad, NewLocalNotifier(c), nil}

	err := chain.Notify(context.Background(), NewEvent(statscache.EventDeleted, ""))
	assert.Error(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Empty(t, c.Keys())
}

func TestNotify_SwallowsErrors(t *testing.T) {
	bad := &failingNotifier{}
	assert.NotPanics(t, func() {
		Notify(context.Background(), bad, NewEvent(statscache.EventUpdated, "science"))
		Notify(context.Background(), nil, NewEvent(statscache.EventUpdated, "science"))
	})
	assert.Equal(t, 1, bad.calls)
}

func TestRedisNotifier_RejectsUnknownType(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	err := NewRedisNotifier(rdb, "").Notify(context.Background(), Event{Type: "renamed"})
	assert.Error(t, err)
}

func TestRedisNotifier_PublishFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	err = NewRedisNotifier(rdb, "").Notify(context.Background(), NewEvent(statscache.EventCreated, "science"))
	assert.Error(t, err)
}

func TestRedisRoundTrip(t *testing.T) {
	ignore := goleak.IgnoreCurrent()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c := warmCache()
	sub := NewSubscriber(rdb, "", c)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case <-sub.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not ready")
	}

	pub := NewRedisNotifier(rdb, "")
	require.NoError(t, pub.Notify(context.Background(), NewEvent(statscache.EventCreated, "science")))

	assert.Eventually(t, func() bool {
		return c.Get("science").NeedsRefresh && c.Get(statscache.KeyAllStats).NeedsRefresh
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, c.Get("health").Cached)

	// 无法解析的消息不会中断订阅
	require.NoError(t, rdb.Publish(context.Background(), DefaultChannel, "not json").Err())
	require.NoError(t, pub.Notify(context.Background(), NewEvent(statscache.EventDeleted, "")))
	assert.Eventually(t, func() bool { return len(c.Keys()) == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}

	require.NoError(t, rdb.Close())
	mr.Close()
	goleak.VerifyNone(t, ignore)
}

func TestSubscriber_RunAgainAfterStop(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := warmCache()
	sub := NewSubscriber(rdb, "", c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()
	<-sub.Ready()
	cancel()
	require.NoError(t, <-done)

	// 第二次 Run 不会因为 ready 已关闭而 panic，且仍能收到事件
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go func() { done <- sub.Run(ctx2) }()

	pub := NewRedisNotifier(rdb, "")
	assert.Eventually(t, func() bool {
		_ = pub.Notify(context.Background(), NewEvent(statscache.EventUpdated, "health"))
		return c.Get("health").NeedsRefresh
	}, 2*time.Second, 20*time.Millisecond)

	cancel2()
	require.NoError(t, <-done)
}
