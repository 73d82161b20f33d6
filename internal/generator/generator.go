// Package generator 话题到文章的生成流程：过滤、查重、加锁、调用模型、入库、通知
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PNikhileswar/neurapress/internal/invalidation"
	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/llm"
	"github.com/PNikhileswar/neurapress/pkg/logger"
	"github.com/PNikhileswar/neurapress/pkg/storage"

	"go.uber.org/zap"
)

const (
	StatusCreated = "created"
	StatusSkipped = "skipped"

	ReasonBlockedWord = "blocked word"
	ReasonInProgress  = "generation in progress"

	DefaultCutoffDays = 7
	DefaultLockTTL    = 10 * time.Minute
	maxSlugAttempts   = 20
)

var ErrInvalidCandidate = errors.New("generator: invalid candidate")

// Request 一次生成请求；CutoffDays 为 nil 时使用默认窗口
type Request struct {
	Candidate  topic.Candidate
	CutoffDays *int
	Force      bool
}

// Outcome 生成结果；跳过不算错误
type Outcome struct {
	Status    string                 `json:"status"`
	Reason    string                 `json:"reason,omitempty"`
	Article   *objects.Article       `json:"article,omitempty"`
	BlockedBy *topic.BlockingArticle `json:"blockedBy,omitempty"`
}

type TopicChecker interface {
	Check(ctx context.Context, title string, cutoffDays int) (topic.Result, error)
}

type ArticleWriter interface {
	Write(ctx context.Context, p llm.Prompt) (llm.Draft, error)
}

type ArticleStore interface {
	UniqueSlug(ctx context.Context, base string, maxAttempts int) (string, error)
	Create(ctx context.Context, a *objects.Article) error
}

type ContentFilter interface {
	Validate(content string) (bool, string)
}

type Deps struct {
	Matcher  TopicChecker
	Writer   ArticleWriter
	Store    ArticleStore
	Filter   ContentFilter         // 可选
	Locker   Locker                // 可选
	Archive  storage.FileStorage   // 可选
	Notifier invalidation.Notifier // 可选
}

type Generator struct {
	deps       Deps
	cutoffDays int
	lockTTL    time.Duration
}

type Option func(*Generator)

func WithCutoffDays(days int) Option {
	return func(g *Generator) { g.cutoffDays = days }
}

func WithLockTTL(ttl time.Duration) Option {
	return func(g *Generator) {
		if ttl > 0 {
			g.lockTTL = ttl
		}
	}
}

func New(deps Deps, opts ...Option) *Generator {
	g := &Generator{deps: deps, cutoffDays: DefaultCutoffDays, lockTTL: DefaultLockTTL}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, req Request) (Outcome, error) {
	c, err := normalizeCandidate(req.Candidate)
	if err != nil {
		return Outcome{}, err
	}
	log := logger.With(zap.String("title", c.Title), zap.String("category", c.Category))

	if g.deps.Filter != nil {
		if ok, word := g.deps.Filter.Validate(c.Title); !ok {
			log.Info("⏭️ [Generate] blocked word", zap.String("word", word))
			return Outcome{Status: StatusSkipped, Reason: ReasonBlockedWord}, nil
		}
	}

	cutoff := g.cutoffDays
	if req.CutoffDays != nil {
		cutoff = *req.CutoffDays
	}
	if !req.Force {
		if out, done, err := g.match(ctx, log, c.Title, cutoff); done {
			return out, err
		}
	}

	if g.deps.Locker != nil {
		key := topic.LockKey(c.Title)
		if key == "" {
			key = objects.Slugify(c.Title)
		}
		release, acquired, err := g.deps.Locker.Acquire(ctx, key, g.lockTTL)
		switch {
		case err != nil:
			log.Warn("⚠️ [Generate] lock unavailable, continuing", zap.Error(err))
		case !acquired:
			log.Info("⏭️ [Generate] topic locked by another worker", zap.String("key", key))
			return Outcome{Status: StatusSkipped, Reason: ReasonInProgress}, nil
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("⚠️ [Generate] release lock failed", zap.Error(err))
				}
			}()
			// 锁外的查询可能早于上一个持锁者的写入，持锁后再查一次
			if !req.Force {
				if out, done, err := g.match(ctx, log, c.Title, cutoff); done {
					return out, err
				}
			}
		}
	}

	log.Info("🤖 [Generate] writing article")
	draft, err := g.deps.Writer.Write(ctx, llm.Prompt{Topic: c.Title, Category: c.Category, Keywords: c.Keywords})
	if err != nil {
		return Outcome{}, fmt.Errorf("write article %q: %w", c.Title, err)
	}

	article, err := g.buildArticle(ctx, c, draft)
	if err != nil {
		return Outcome{}, err
	}
	if err := g.deps.Store.Create(ctx, article); err != nil {
		return Outcome{}, fmt.Errorf("save article %q: %w", article.Slug, err)
	}
	log.Info("✅ [Generate] saved", zap.String("slug", article.Slug))

	g.archive(ctx, article)
	invalidation.Notify(ctx, g.deps.Notifier, invalidation.NewEvent(statscache.EventCreated, article.Category))

	return Outcome{Status: StatusCreated, Article: article}, nil
}

// match 返回 done=true 表示本次生成到此结束 (命中已有文章或参数错误)；查询失败按新话题处理
func (g *Generator) match(ctx context.Context, log *zap.Logger, title string, cutoff int) (Outcome, bool, error) {
	res, err := g.deps.Matcher.Check(ctx, title, cutoff)
	switch {
	case errors.Is(err, topic.ErrInvalidCutoff):
		return Outcome{}, true, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	case err != nil:
		log.Warn("⚠️ [Generate] topic match failed, treating as novel", zap.Error(err))
	case res.Matched:
		slug := ""
		if res.Article != nil {
			slug = res.Article.Slug
		}
		log.Info("⏭️ [Generate] similar article exists", zap.String("slug", slug))
		return Outcome{Status: StatusSkipped, Reason: res.Reason, BlockedBy: res.Article}, true, nil
	}
	return Outcome{}, false, nil
}

func (g *Generator) buildArticle(ctx context.Context, c topic.Candidate, d llm.Draft) (*objects.Article, error) {
	base := objects.Slugify(d.Title)
	if base == "" {
		base = objects.Slugify(c.Title)
	}
	if base == "" {
		return nil, fmt.Errorf("%w: title yields empty slug", ErrInvalidCandidate)
	}
	slug, err := g.deps.Store.UniqueSlug(ctx, base, maxSlugAttempts)
	if err != nil {
		return nil, fmt.Errorf("pick slug: %w", err)
	}

	tags := normalizeTags(d.Tags)
	if len(tags) == 0 {
		tags = normalizeTags(c.Keywords)
	}
	seo := objects.SEO{
		MetaTitle:       d.SEO.MetaTitle,
		MetaDescription: d.SEO.MetaDescription,
		Keywords:        d.SEO.Keywords,
	}
	if seo.MetaTitle == "" {
		seo.MetaTitle = d.Title
	}
	if seo.MetaDescription == "" {
		seo.MetaDescription = d.Excerpt
	}

	return &objects.Article{
		Title:       d.Title,
		Slug:        slug,
		Excerpt:     d.Excerpt,
		Content:     d.Content,
		Category:    c.Category,
		Tags:        tags,
		ReadingTime: objects.ReadingTimeFor(d.Content),
		SEO:         seo,
	}, nil
}

// archive 归档失败只记录日志
func (g *Generator) archive(ctx context.Context, a *objects.Article) {
	if g.deps.Archive == nil {
		return
	}
	body := bytes.NewBufferString(storage.ArticleMarkdown(a))
	if _, err := g.deps.Archive.Save(ctx, storage.ArticleFolder, storage.ArticleFilename(a.Slug), body); err != nil {
		logger.Warn("⚠️ [Generate] archive failed", zap.String("slug", a.Slug), zap.Error(err))
	}
}

func normalizeCandidate(c topic.Candidate) (topic.Candidate, error) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return c, fmt.Errorf("%w: empty title", ErrInvalidCandidate)
	}
	c.Category = strings.ToLower(strings.TrimSpace(c.Category))
	if c.Category == "" {
		c.Category = objects.DefaultCategory
	}
	if !objects.ValidCategory(c.Category) {
		return c, fmt.Errorf("%w: unknown category %q", ErrInvalidCandidate, c.Category)
	}
	return c, nil
}

func normalizeTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
