// Package statscache 进程内的统计快照缓存，按 TTL 过期，也可由内容变更事件主动失效
package statscache

import (
	"strings"
	"sync"
	"time"

	"github.com/PNikhileswar/neurapress/pkg/utils"
)

const (
	// KeyAll 传给 Invalidate 时清空全部缓存
	KeyAll = "all"
	// KeyAllStats 首页/统计页使用的完整统计快照
	KeyAllStats = "all-stats"
	// KeyCategoryCounts 按分类计数
	KeyCategoryCounts = "category-counts"

	DefaultTTL = 5 * time.Minute
)

// aggregateKeys 所有分类都会影响的聚合键
var aggregateKeys = []string{KeyAllStats, KeyCategoryCounts}

// Snapshot 一条缓存记录，Data 整体替换，不在原地修改
type Snapshot struct {
	Key         string
	Data        any
	Fingerprint string
	UpdatedAt   time.Time
	Invalidated bool
}

// Lookup Get 的返回值
type Lookup struct {
	Cached       bool      `json:"cached"`
	NeedsRefresh bool      `json:"needsRefresh"`
	Data         any       `json:"data,omitempty"`
	LastUpdate   time.Time `json:"lastUpdate,omitempty"`
}

// Cache 显式构造并注入到 handler 中，多个实例互不影响
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Snapshot
	ttl     time.Duration
	now     utils.Clock
}

type Option func(*Cache)

// WithClock 注入时间源，测试中模拟时间推进
func WithClock(c utils.Clock) Option {
	return func(cache *Cache) { cache.now = c }
}

func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]*Snapshot),
		ttl:     ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.now = c.now.OrNow()
	return c
}

// TTL 返回缓存有效期
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get 快照存在、未失效且 age < TTL 时返回 Cached，否则要求刷新
func (c *Cache) Get(key string) Lookup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked(normalize(key), "", false)
}

// GetWithFingerprint 额外要求内容指纹一致，指纹变化视为需要刷新
func (c *Cache) GetWithFingerprint(key, fingerprint string) Lookup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked(normalize(key), fingerprint, true)
}

func (c *Cache) lookupLocked(key, fingerprint string, checkFP bool) Lookup {
	s, ok := c.entries[key]
	if !ok {
		return Lookup{NeedsRefresh: true}
	}
	if s.Invalidated || c.now().Sub(s.UpdatedAt) >= c.ttl {
		return Lookup{NeedsRefresh: true, LastUpdate: s.UpdatedAt}
	}
	if checkFP && s.Fingerprint != fingerprint {
		return Lookup{NeedsRefresh: true, LastUpdate: s.UpdatedAt}
	}
	return Lookup{Cached: true, Data: s.Data, LastUpdate: s.UpdatedAt}
}

// Set 整体替换快照并重置时间戳，并发写入时最后一次生效
func (c *Cache) Set(key string, data any) {
	c.SetWithFingerprint(key, data, "")
}

// SetWithFingerprint 同 Set，同时记录内容指纹
func (c *Cache) SetWithFingerprint(key string, data any, fingerprint string) {
	key = normalize(key)
	s := &Snapshot{
		Key:         key,
		Data:        data,
		Fingerprint: fingerprint,
		UpdatedAt:   c.now(),
	}
	c.mu.Lock()
	c.entries[key] = s
	c.mu.Unlock()
}

// Stale 返回最近一次的快照 (即使已过期或被失效)，仅用于出错时降级
func (c *Cache) Stale(key string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[normalize(key)]
	if !ok {
		return Snapshot{}, false
	}
	return *s, true
}

// Invalidate 使某个键失效；KeyAll 清空全部；分类键同时使聚合键失效。
// 失效的快照保留为降级数据，下一次 Get 一定返回 NeedsRefresh。
func (c *Cache) Invalidate(key string) {
	key = normalize(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == KeyAll || key == "" {
		c.entries = make(map[string]*Snapshot)
		return
	}

	c.markLocked(key)
	if !isAggregate(key) {
		for _, k := range aggregateKeys {
			c.markLocked(k)
		}
	}
}

func (c *Cache) markLocked(key string) {
	if s, ok := c.entries[key]; ok {
		cp := *s
		cp.Invalidated = true
		c.entries[key] = &cp
	}
}

// Keys 当前缓存中的键 (含已失效的)
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

func isAggregate(key string) bool {
	for _, k := range aggregateKeys {
		if k == key {
			return true
		}
	}
	return false
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
