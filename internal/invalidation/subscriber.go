package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Subscriber 监听 Redis 频道并把事件应用到本进程缓存
type Subscriber struct {
	rdb     *redis.Client
	channel string
	cache   *statscache.Cache
	ready   chan struct{}
	once    sync.Once
}

func NewSubscriber(rdb *redis.Client, channel string, cache *statscache.Cache) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{rdb: rdb, channel: channel, cache: cache, ready: make(chan struct{})}
}

// Ready 订阅确认后关闭
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Run 阻塞直到 ctx 取消；无法解析的消息跳过。可重复调用 (如断线重连)
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.once.Do(func() { close(s.ready) })
	logger.Info("🧹 [Invalidate] subscribed", zap.String("channel", s.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.apply(msg.Payload)
		}
	}
}

func (s *Subscriber) apply(payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		logger.Warn("🧹 [Invalidate] bad payload", zap.String("payload", payload), zap.Error(err))
		return
	}
	if err := s.cache.HandleEvent(e); err != nil {
		logger.Warn("🧹 [Invalidate] bad event", zap.String("payload", payload), zap.Error(err))
	}
}
