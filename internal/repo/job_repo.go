package repo

import (
	"context"
	"fmt"

	"github.com/PNikhileswar/neurapress/pkg/db/objects"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobLogRepo 调度任务运行日志
type JobLogRepo struct {
	coll *mongo.Collection
}

func NewJobLogRepo(database *mongo.Database) *JobLogRepo {
	return &JobLogRepo{coll: database.Collection(objects.JobLogCollection)}
}

func NewJobLogRepoWithCollection(coll *mongo.Collection) *JobLogRepo {
	return &JobLogRepo{coll: coll}
}

// CreateLog 开始记录日志
func (r *JobLogRepo) CreateLog(ctx context.Context, log *objects.JobLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("insert job log: %w", err)
	}
	return nil
}

// UpdateLog 任务结束更新日志
func (r *JobLogRepo) UpdateLog(ctx context.Context, log *objects.JobLog) error {
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": log.ID}, log); err != nil {
		return fmt.Errorf("update job log %s: %w", log.ID.Hex(), err)
	}
	return nil
}

// Recent 某个任务最近的运行记录，jobName 为空时返回所有任务
func (r *JobLogRepo) Recent(ctx context.Context, jobName string, limit int64) ([]*objects.JobLog, error) {
	filter := bson.M{}
	if jobName != "" {
		filter["jobName"] = jobName
	}
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list job logs: %w", err)
	}
	defer cur.Close(ctx)

	list := make([]*objects.JobLog, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode job logs: %w", err)
	}
	return list, nil
}
