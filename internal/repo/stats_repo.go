package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArticleStats 文章集合的聚合统计
type ArticleStats struct {
	Total      int64            `json:"totalArticles"`
	Featured   int64            `json:"featuredArticles"`
	ByCategory map[string]int64 `json:"categoryCounts"`
	Images     int64            `json:"totalImages"`
	Videos     int64            `json:"totalVideos"`
}

// categoryRow 按分类 $group 后的一行
type categoryRow struct {
	Category string `bson:"_id"`
	Count    int64  `bson:"count"`
	Featured int64  `bson:"featured"`
	Images   int64  `bson:"images"`
	Videos   int64  `bson:"videos"`
}

var statsPipeline = mongo.Pipeline{
	{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$category"},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "featured", Value: bson.D{{Key: "$sum", Value: bson.D{
			{Key: "$cond", Value: bson.A{"$featured", 1, 0}},
		}}}},
		{Key: "images", Value: bson.D{{Key: "$sum", Value: bson.D{
			{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$images", bson.A{}}}}},
		}}}},
		{Key: "videos", Value: bson.D{{Key: "$sum", Value: bson.D{
			{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$videos", bson.A{}}}}},
		}}}},
	}}},
}

// Aggregate 一次按分类分组，在内存中汇总总数
func (r *ArticleRepo) Aggregate(ctx context.Context) (*ArticleStats, error) {
	cur, err := r.coll.Aggregate(ctx, statsPipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate article stats: %w", err)
	}
	defer cur.Close(ctx)

	var rows []categoryRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode article stats: %w", err)
	}

	st := &ArticleStats{ByCategory: make(map[string]int64, len(rows))}
	for _, row := range rows {
		st.Total += row.Count
		st.Featured += row.Featured
		st.Images += row.Images
		st.Videos += row.Videos
		if row.Category != "" {
			st.ByCategory[row.Category] += row.Count
		}
	}
	return st, nil
}

// Fingerprint 文档数 + 最近 updatedAt，任何写操作都会改变它
func (r *ArticleRepo) Fingerprint(ctx context.Context) (string, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return "", fmt.Errorf("count articles: %w", err)
	}

	var latest struct {
		UpdatedAt time.Time `bson:"updatedAt"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"updatedAt": 1})
	err = r.coll.FindOne(ctx, bson.M{}, opts).Decode(&latest)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("latest article update: %w", err)
	}

	var ts int64
	if !latest.UpdatedAt.IsZero() {
		ts = latest.UpdatedAt.UnixMilli()
	}
	return strconv.FormatInt(n, 10) + ":" + strconv.FormatInt(ts, 10), nil
}
