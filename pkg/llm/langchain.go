package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainCompleter OpenAI 兼容协议 (DeepSeek / GLM 通过 BaseURL 接入)
type LangchainCompleter struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

func NewLangchainCompleter(cfg Config) (*LangchainCompleter, error) {
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init llm client failed: %w", err)
	}
	return &LangchainCompleter{model: model, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

func (c *LangchainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	var opts []llms.CallOption
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	return llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
}
