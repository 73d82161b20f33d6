package network

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoPinger struct {
	Client *mongo.Client
}

func (p MongoPinger) Name() string { return "mongo" }

func (p MongoPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}

type RedisPinger struct {
	Client *redis.Client
}

func (p RedisPinger) Name() string { return "redis" }

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
