// Package topic 判断候选话题是否已有近期相似文章，避免重复生成
package topic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/utils"
)

const (
	// minWordLen 长度不超过该值的词视为噪音
	minWordLen = 3
	// significantCount 参与匹配的关键词个数
	significantCount = 2

	ReasonUnmatchable = "unmatchable"
	ReasonNoMatch     = "no similar recent article"
	ReasonMatched     = "similar recent article exists"
)

// ErrInvalidCutoff cutoff 天数为负
var ErrInvalidCutoff = errors.New("topic: cutoff days must be >= 0")

// Candidate 待生成的话题，仅在一次生成请求内存在
type Candidate struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// SimilarQuery 交给文章存储执行的查询：
// Words 中每个词都要以大小写不敏感的子串形式出现在标题或任一标签中，且 publishedAt >= Since
type SimilarQuery struct {
	Words []string
	Since time.Time
}

// SimilarFinder 文章存储的只读查询能力，没有命中时返回 (nil, nil)
type SimilarFinder interface {
	FindSimilar(ctx context.Context, q SimilarQuery) (*objects.Article, error)
}

// BlockingArticle 阻止本次生成的已有文章
type BlockingArticle struct {
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Result 匹配结果
type Result struct {
	Matched          bool             `json:"matched"`
	Reason           string           `json:"reason"`
	SignificantWords []string         `json:"significantWords,omitempty"`
	Since            time.Time        `json:"since,omitempty"`
	Article          *BlockingArticle `json:"article,omitempty"`
}

// Matcher 无状态，可被多个请求并发使用
type Matcher struct {
	finder    SimilarFinder
	now       utils.Clock
	threshold float64
}

type Option func(*Matcher)

// WithClock 注入时间源
func WithClock(c utils.Clock) Option {
	return func(m *Matcher) { m.now = c }
}

// WithOverlapThreshold 命中后再按词集合重合度过滤，0 表示关闭
func WithOverlapThreshold(t float64) Option {
	return func(m *Matcher) { m.threshold = t }
}

func NewMatcher(finder SimilarFinder, opts ...Option) *Matcher {
	m := &Matcher{finder: finder}
	for _, opt := range opts {
		opt(m)
	}
	m.now = m.now.OrNow()
	return m
}

// Check 判断 title 在最近 cutoffDays 天内是否已有相似文章。
// 查询失败时返回错误，由调用方决定策略 (生成流程统一为 skip-and-warn)。
func (m *Matcher) Check(ctx context.Context, title string, cutoffDays int) (Result, error) {
	if cutoffDays < 0 {
		return Result{}, ErrInvalidCutoff
	}

	words := SignificantWords(title)
	if len(words) < significantCount {
		return Result{Matched: false, Reason: ReasonUnmatchable, SignificantWords: words}, nil
	}

	since := utils.DaysAgo(m.now(), cutoffDays)
	res := Result{Reason: ReasonNoMatch, SignificantWords: words, Since: since}

	article, err := m.finder.FindSimilar(ctx, SimilarQuery{Words: words, Since: since})
	if err != nil {
		return res, fmt.Errorf("find similar article for %q: %w", title, err)
	}
	if article == nil {
		return res, nil
	}
	if m.threshold > 0 && Overlap(title, article.Title) < m.threshold {
		return res, nil
	}

	res.Matched = true
	res.Reason = ReasonMatched
	res.Article = &BlockingArticle{
		Title:       article.Title,
		Slug:        article.Slug,
		PublishedAt: article.PublishedAt,
	}
	return res, nil
}

// SignificantWords 去掉标点、按空白切分、丢弃长度 <= 3 的词，按出现顺序取前两个
func SignificantWords(title string) []string {
	tokens := tokens(title)
	if len(tokens) > significantCount {
		tokens = tokens[:significantCount]
	}
	return tokens
}

// LockKey 由关键词生成归一化的话题键，用于分布式生成锁
func LockKey(title string) string {
	words := SignificantWords(title)
	if len(words) < significantCount {
		return ""
	}
	return strings.ToLower(strings.Join(words, "+"))
}

// Overlap 两个标题有效词集合的重合度 |A∩B| / |A∪B|
func Overlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range tokens(s) {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func tokens(s string) []string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)

	var out []string
	for _, w := range strings.Fields(stripped) {
		if len([]rune(w)) > minWordLen {
			out = append(out, w)
		}
	}
	return out
}
