// Package stats 统计接口的读路径：先读缓存，未命中再聚合，聚合失败时降级
package stats

import (
	"context"
	"time"

	"github.com/PNikhileswar/neurapress/internal/repo"
	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/pkg/logger"

	"go.uber.org/zap"
)

// StaleMessage 聚合失败、返回旧快照时附带的提示
const StaleMessage = "using cached data due to error"

// Aggregator 统计数据来源
type Aggregator interface {
	Aggregate(ctx context.Context) (*repo.ArticleStats, error)
}

// Fingerprinter 可选，开启 fingerprint_check 时使用
type Fingerprinter interface {
	Fingerprint(ctx context.Context) (string, error)
}

// Result 统计接口的返回体
type Result struct {
	Data       repo.ArticleStats `json:"data"`
	Cached     bool              `json:"cached"`
	Stale      bool              `json:"stale,omitempty"`
	Message    string            `json:"message,omitempty"`
	LastUpdate time.Time         `json:"lastUpdate,omitempty"`
}

// CategoryResult 分类计数接口的返回体
type CategoryResult struct {
	Data       map[string]int64 `json:"data"`
	Cached     bool             `json:"cached"`
	Stale      bool             `json:"stale,omitempty"`
	Message    string           `json:"message,omitempty"`
	LastUpdate time.Time        `json:"lastUpdate,omitempty"`
}

type Service struct {
	cache *statscache.Cache
	agg   Aggregator
	fp    Fingerprinter
}

type Option func(*Service)

// WithFingerprint 除 TTL 外再比较内容指纹
func WithFingerprint(fp Fingerprinter) Option {
	return func(s *Service) { s.fp = fp }
}

func NewService(cache *statscache.Cache, agg Aggregator, opts ...Option) *Service {
	s := &Service{cache: cache, agg: agg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache 暴露底层缓存，供失效接口使用
func (s *Service) Cache() *statscache.Cache {
	return s.cache
}

// Get 完整统计；该方法不返回错误，最差情况返回全零统计
func (s *Service) Get(ctx context.Context) Result {
	fingerprint, lookup := s.lookup(ctx, statscache.KeyAllStats)
	if lookup.Cached {
		if st, ok := lookup.Data.(repo.ArticleStats); ok {
			return Result{Data: st, Cached: true, LastUpdate: lookup.LastUpdate}
		}
	}

	st, err := s.agg.Aggregate(ctx)
	if err != nil {
		logger.Warn("📊 [Stats] aggregate failed", zap.Error(err))
		if snap, ok := s.cache.Stale(statscache.KeyAllStats); ok {
			if data, ok := snap.Data.(repo.ArticleStats); ok {
				return Result{Data: data, Cached: true, Stale: true, Message: StaleMessage, LastUpdate: snap.UpdatedAt}
			}
		}
		return Result{Data: zeroStats()}
	}

	stored := *st
	stored.ByCategory = copyCounts(st.ByCategory)
	s.cache.SetWithFingerprint(statscache.KeyAllStats, stored, fingerprint)
	s.cache.SetWithFingerprint(statscache.KeyCategoryCounts, copyCounts(st.ByCategory), fingerprint)
	st.ByCategory = copyCounts(st.ByCategory)
	return Result{Data: *st, LastUpdate: s.cache.Get(statscache.KeyAllStats).LastUpdate}
}

// CategoryCounts 按分类计数，缓存键 category-counts
func (s *Service) CategoryCounts(ctx context.Context) CategoryResult {
	fingerprint, lookup := s.lookup(ctx, statscache.KeyCategoryCounts)
	if lookup.Cached {
		if counts, ok := lookup.Data.(map[string]int64); ok {
			return CategoryResult{Data: copyCounts(counts), Cached: true, LastUpdate: lookup.LastUpdate}
		}
	}

	st, err := s.agg.Aggregate(ctx)
	if err != nil {
		logger.Warn("📊 [Stats] category aggregate failed", zap.Error(err))
		if snap, ok := s.cache.Stale(statscache.KeyCategoryCounts); ok {
			if counts, ok := snap.Data.(map[string]int64); ok {
				return CategoryResult{Data: copyCounts(counts), Cached: true, Stale: true, Message: StaleMessage, LastUpdate: snap.UpdatedAt}
			}
		}
		return CategoryResult{Data: map[string]int64{}}
	}

	counts := copyCounts(st.ByCategory)
	s.cache.SetWithFingerprint(statscache.KeyCategoryCounts, counts, fingerprint)
	return CategoryResult{Data: copyCounts(counts), LastUpdate: s.cache.Get(statscache.KeyCategoryCounts).LastUpdate}
}

// lookup 开启指纹时先取指纹；取指纹失败按普通 TTL 判断
func (s *Service) lookup(ctx context.Context, key string) (string, statscache.Lookup) {
	if s.fp == nil {
		return "", s.cache.Get(key)
	}
	fingerprint, err := s.fp.Fingerprint(ctx)
	if err != nil {
		logger.Warn("📊 [Stats] fingerprint failed", zap.String("key", key), zap.Error(err))
		return "", s.cache.Get(key)
	}
	return fingerprint, s.cache.GetWithFingerprint(key, fingerprint)
}

func zeroStats() repo.ArticleStats {
	return repo.ArticleStats{ByCategory: map[string]int64{}}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
