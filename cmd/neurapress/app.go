package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PNikhileswar/neurapress/internal/conf"
	"github.com/PNikhileswar/neurapress/internal/core"
	"github.com/PNikhileswar/neurapress/internal/engine"
	"github.com/PNikhileswar/neurapress/internal/generator"
	"github.com/PNikhileswar/neurapress/internal/invalidation"
	"github.com/PNikhileswar/neurapress/internal/repo"
	"github.com/PNikhileswar/neurapress/internal/stats"
	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/internal/tasks"
	"github.com/PNikhileswar/neurapress/internal/tasks/network"
	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/internal/trending"
	"github.com/PNikhileswar/neurapress/pkg/constants"
	"github.com/PNikhileswar/neurapress/pkg/db"
	"github.com/PNikhileswar/neurapress/pkg/llm"
	"github.com/PNikhileswar/neurapress/pkg/logger"
	"github.com/PNikhileswar/neurapress/pkg/sensitive"
	"github.com/PNikhileswar/neurapress/pkg/storage"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// app 进程内组装好的全部依赖
type app struct {
	cfg        *conf.Config
	articles   *repo.ArticleRepo
	jobLogs    *repo.JobLogRepo
	cache      *statscache.Cache
	stats      *stats.Service
	matcher    *topic.Matcher
	notifier   invalidation.Notifier
	generator  *generator.Generator // 未配置 LLM 时为 nil
	subscriber *invalidation.Subscriber
	env        *core.Env
	rdb        *redis.Client
}

func newApp(ctx context.Context, cfg *conf.Config) (*app, error) {
	a := &app{cfg: cfg}

	// 1. 存储
	client, err := db.ConnectMongo(ctx, db.MONGO_MAIN, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	database := client.Database(cfg.Mongo.Database)
	a.articles = repo.NewArticleRepo(database)
	a.jobLogs = repo.NewJobLogRepo(database)
	if err := a.articles.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	pingers := []core.Pinger{network.MongoPinger{Client: client}}
	if cfg.Redis.Enabled() {
		a.rdb, err = db.ConnectRedis(ctx, db.REDIS_MAIN, cfg.Redis)
		if err != nil {
			return nil, err
		}
		pingers = append(pingers, network.RedisPinger{Client: a.rdb})
	} else {
		logger.Warn("⚠️ [Boot] redis not configured, generation lock and distributed invalidation disabled")
	}

	// 2. 统计缓存与失效通知
	a.cache = statscache.New(cfg.Stats.TTL)
	var statsOpts []stats.Option
	if cfg.Stats.FingerprintCheck {
		statsOpts = append(statsOpts, stats.WithFingerprint(a.articles))
	}
	a.stats = stats.NewService(a.cache, a.articles, statsOpts...)

	chain := invalidation.Chain{invalidation.NewLocalNotifier(a.cache)}
	if cfg.Stats.Distributed && a.rdb != nil {
		chain = append(chain, invalidation.NewRedisNotifier(a.rdb, invalidation.DefaultChannel))
		a.subscriber = invalidation.NewSubscriber(a.rdb, invalidation.DefaultChannel, a.cache)
	}
	a.notifier = chain

	// 3. 话题匹配与生成
	a.matcher = topic.NewMatcher(a.articles, topic.WithOverlapThreshold(cfg.Matcher.OverlapThreshold))
	a.generator, err = a.buildGenerator()
	if err != nil {
		return nil, err
	}

	// 4. 任务依赖
	a.env = &core.Env{
		Sources:     buildSources(cfg.Trending),
		Pingers:     pingers,
		CutoffDays:  cfg.Matcher.CutoffDays,
		MaxArticles: cfg.Trending.MaxArticles,
	}
	if a.generator != nil {
		a.env.Generator = a.generator
	}
	return a, nil
}

func (a *app) buildGenerator() (*generator.Generator, error) {
	cfg := a.cfg
	writer, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if errors.Is(err, llm.ErrMissingAPIKey) {
		logger.Warn("⚠️ [Boot] llm api_key missing, article generation disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dictPath := cfg.ContentFilter.DictPath
	filter, err := sensitive.NewWord(dictPath, cfg.ContentFilter.Words...)
	if err != nil {
		return nil, err
	}

	deps := generator.Deps{
		Matcher:  a.matcher,
		Writer:   writer,
		Store:    a.articles,
		Notifier: a.notifier,
	}
	if !filter.Empty() {
		deps.Filter = filter
	}
	if a.rdb != nil {
		deps.Locker = generator.NewRedisLocker(a.rdb)
	}
	if cfg.Storage.Enabled() {
		deps.Archive = storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	}
	return generator.New(deps,
		generator.WithCutoffDays(cfg.Matcher.CutoffDays),
		generator.WithLockTTL(cfg.Matcher.LockTTL),
	), nil
}

func buildSources(cfg conf.TrendingConfig) []trending.Source {
	var sources []trending.Source
	for _, f := range cfg.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			continue
		}
		sources = append(sources, trending.NewRSSSource(f.Name, f.URL, f.Category, cfg.MaxAge))
	}
	if len(cfg.Topics) > 0 {
		topics := make([]topic.Candidate, 0, len(cfg.Topics))
		for _, t := range cfg.Topics {
			topics = append(topics, topic.Candidate{Title: t.Title, Category: t.Category, Keywords: t.Keywords})
		}
		sources = append(sources, trending.NewStaticSource(topics))
	}
	return sources
}

// newScheduler 注册代码内置任务和配置文件中的任务
func (a *app) newScheduler() *engine.Scheduler {
	sched := engine.NewScheduler(a.env, engine.WithJobLogs(a.jobLogs))
	tasks.ApplyAutoJobs(sched)

	for _, job := range a.cfg.Jobs {
		if !job.Enable {
			continue
		}
		if err := sched.AddJob(job.Cron, job.Name, job.Name, job.Params, string(constants.TaskTypeYAML)); err != nil {
			logger.Error("❌ [Boot] add job failed", zap.String("job", job.Name), zap.Error(err))
		}
	}
	return sched
}

func (a *app) close(ctx context.Context) {
	db.CloseRedis()
	db.CloseMongo(ctx)
}
