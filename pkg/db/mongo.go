package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	conf "github.com/PNikhileswar/neurapress/pkg/config"
	zLog "github.com/PNikhileswar/neurapress/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const MONGO_MAIN = "main"

var mongoConn = make(map[string]*mongo.Client)
var mongoMutex sync.RWMutex

// ConnectMongo 返回指定名称的 Mongo 客户端，首次调用时建立连接并缓存
func ConnectMongo(ctx context.Context, name string, cfg conf.MongoConfig) (*mongo.Client, error) {
	mongoMutex.RLock()
	conn, ok := mongoConn[name]
	mongoMutex.RUnlock()
	if ok {
		return conn, nil
	}

	mongoMutex.Lock()
	defer mongoMutex.Unlock()
	if conn, ok := mongoConn[name]; ok {
		return conn, nil
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	poolSize := cfg.MaxPoolSize
	if poolSize == 0 {
		poolSize = 120
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetMaxPoolSize(poolSize))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	zLog.Info("mongo connected", zap.String("name", name), zap.String("database", cfg.Database))
	mongoConn[name] = client
	return client, nil
}

// CloseMongo 断开所有缓存的 Mongo 连接
func CloseMongo(ctx context.Context) {
	mongoMutex.Lock()
	defer mongoMutex.Unlock()
	for name, client := range mongoConn {
		if err := client.Disconnect(ctx); err != nil {
			zLog.Warn("mongo disconnect failed", zap.String("name", name), zap.Error(err))
		}
		delete(mongoConn, name)
	}
}
