// Package llm 调用大模型生成文章草稿
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderLangchain = "langchain"
	ProviderOpenAI    = "openai"
)

var ErrMissingAPIKey = errors.New("llm: missing api_key")

// Config 对应配置文件中的 llm 段
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Prompt 生成一篇文章需要的输入
type Prompt struct {
	Topic    string
	Category string
	Keywords []string
}

// Draft 模型返回的文章草稿
type Draft struct {
	Title   string   `json:"title"`
	Excerpt string   `json:"excerpt"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	SEO     struct {
		MetaTitle       string   `json:"metaTitle"`
		MetaDescription string   `json:"metaDescription"`
		Keywords        []string `json:"keywords"`
	} `json:"seo"`
}

// Completer 单轮文本补全，由具体 provider 实现
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Writer struct {
	completer Completer
	timeout   time.Duration
}

// New 按 cfg.Provider 选择实现，默认 langchain
func New(cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	var (
		c   Completer
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderLangchain:
		c, err = NewLangchainCompleter(cfg)
	case ProviderOpenAI:
		c, err = NewResponsesCompleter(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewWriter(c, cfg.Timeout), nil
}

func NewWriter(c Completer, timeout time.Duration) *Writer {
	return &Writer{completer: c, timeout: timeout}
}

// Write 生成草稿；模型输出无法解析为 JSON 或缺少标题/正文时返回错误
func (w *Writer) Write(ctx context.Context, p Prompt) (Draft, error) {
	if strings.TrimSpace(p.Topic) == "" {
		return Draft{}, errors.New("llm: empty topic")
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	raw, err := w.completer.Complete(ctx, BuildPrompt(p))
	if err != nil {
		return Draft{}, fmt.Errorf("llm generate: %w", err)
	}

	var d Draft
	if err := ExtractJSON(raw, &d); err != nil {
		return Draft{}, err
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Content = strings.TrimSpace(d.Content)
	if d.Title == "" || d.Content == "" {
		return Draft{}, errors.New("llm: draft missing title or content")
	}
	return d, nil
}
