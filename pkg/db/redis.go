package db

import (
	"context"
	"fmt"
	"sync"

	conf "github.com/PNikhileswar/neurapress/pkg/config"

	"github.com/go-redis/redis/v8"
)

const REDIS_MAIN = "main"

var redisConn = make(map[string]*redis.Client)
var redisMutex sync.RWMutex

// ConnectRedis 返回指定名称的 Redis 客户端，首次调用时 Ping 校验
func ConnectRedis(ctx context.Context, name string, cfg conf.RedisConfig) (*redis.Client, error) {
	redisMutex.RLock()
	rdb, ok := redisConn[name]
	redisMutex.RUnlock()
	if ok {
		return rdb, nil
	}

	redisMutex.Lock()
	defer redisMutex.Unlock()
	if rdb, ok := redisConn[name]; ok {
		return rdb, nil
	}

	rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	redisConn[name] = rdb
	return rdb, nil
}

// CloseRedis 关闭所有缓存的 Redis 连接
func CloseRedis() {
	redisMutex.Lock()
	defer redisMutex.Unlock()
	for name, rdb := range redisConn {
		_ = rdb.Close()
		delete(redisConn, name)
	}
}
