// Package invalidation 文章写路径到统计缓存的变更通知，单进程直接失效，多进程经 Redis 广播
package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/pkg/logger"
	"github.com/PNikhileswar/neurapress/pkg/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultChannel Redis 广播频道
const DefaultChannel = "neurapress:stats:invalidate"

type Event = statscache.Event

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NewEvent 补齐时间戳
func NewEvent(t statscache.EventType, category string) Event {
	return Event{Type: t, Category: category, Timestamp: utils.Now()}
}

// LocalNotifier 直接失效本进程缓存
type LocalNotifier struct {
	cache *statscache.Cache
}

func NewLocalNotifier(cache *statscache.Cache) *LocalNotifier {
	return &LocalNotifier{cache: cache}
}

func (n *LocalNotifier) Notify(_ context.Context, e Event) error {
	return n.cache.HandleEvent(e)
}

// RedisNotifier 把事件以 JSON 发布到频道，由各进程的 Subscriber 应用
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode invalidation event: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish invalidation event: %w", err)
	}
	return nil
}

// Chain 依次通知所有 Notifier，单个失败不影响其余
type Chain []Notifier

func (c Chain) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range c {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notify 写操作已经成功，通知失败只记录日志，不向调用方返回
func Notify(ctx context.Context, n Notifier, e Event) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, e); err != nil {
		logger.Warn("🧹 [Invalidate] notify failed",
			zap.String("type", string(e.Type)),
			zap.String("category", e.Category),
			zap.Error(err),
		)
	}
}
