// Package trending 收集候选话题：RSS 订阅源和配置中的固定话题
package trending

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/utils"

	"github.com/mmcdole/gofeed"
)

const DefaultMaxAge = 48 * time.Hour

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]topic.Candidate, error)
}

// RSSSource 一个 RSS/Atom 订阅源
type RSSSource struct {
	name     string
	url      string
	category string
	maxAge   time.Duration
	parser   *gofeed.Parser
	now      utils.Clock
}

func NewRSSSource(name, url, category string, maxAge time.Duration) *RSSSource {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if !objects.ValidCategory(category) {
		category = objects.DefaultCategory
	}
	return &RSSSource{
		name:     name,
		url:      url,
		category: strings.ToLower(category),
		maxAge:   maxAge,
		parser:   gofeed.NewParser(),
		now:      utils.Now,
	}
}

func (s *RSSSource) Name() string { return s.name }

func (s *RSSSource) Fetch(ctx context.Context) ([]topic.Candidate, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.name, err)
	}

	cutoff := s.now().Add(-s.maxAge)
	out := make([]topic.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		var pub *time.Time
		if item.PublishedParsed != nil {
			pub = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = item.UpdatedParsed
		}
		// 没有时间的条目视为最新
		if pub != nil && pub.Before(cutoff) {
			continue
		}

		out = append(out, topic.Candidate{
			Title:    title,
			Category: s.category,
			Keywords: keywords(item.Categories),
		})
	}
	return out, nil
}

func keywords(categories []string) []string {
	var out []string
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// StaticSource 管理员在配置中维护的话题
type StaticSource struct {
	topics []topic.Candidate
}

func NewStaticSource(topics []topic.Candidate) *StaticSource {
	return &StaticSource{topics: topics}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Fetch(context.Context) ([]topic.Candidate, error) {
	out := make([]topic.Candidate, len(s.topics))
	copy(out, s.topics)
	return out, nil
}

// Result 汇总结果，部分源失败时 Candidates 仍包含其余源的数据
type Result struct {
	Candidates []topic.Candidate
	Errors     []error
}

// Collect 并发拉取所有源，按源的顺序合并，标题 (忽略大小写) 重复的只保留第一个
func Collect(ctx context.Context, sources ...Source) Result {
	perSource := make([][]topic.Candidate, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			perSource[i], errs[i] = s.Fetch(ctx)
		}(i, src)
	}
	wg.Wait()

	var res Result
	seen := make(map[string]struct{})
	for i := range sources {
		if errs[i] != nil {
			res.Errors = append(res.Errors, errs[i])
			continue
		}
		for _, c := range perSource[i] {
			key := strings.ToLower(strings.TrimSpace(c.Title))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			res.Candidates = append(res.Candidates, c)
		}
	}
	return res
}
