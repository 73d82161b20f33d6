package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/PNikhileswar/neurapress/internal/core"
	"github.com/PNikhileswar/neurapress/internal/generator"
	"github.com/PNikhileswar/neurapress/internal/tasks"
	"github.com/PNikhileswar/neurapress/internal/trending"
	"github.com/PNikhileswar/neurapress/pkg/logger"

	"go.uber.org/zap"
)

const TaskName = "content:trending_generate"

// TrendingGenerateTask 拉取热门话题并为新话题生成文章
type TrendingGenerateTask struct {
	env *core.Env
}

func init() {
	tasks.Register(TaskName, NewTrendingGenerateTask)
}

func NewTrendingGenerateTask(env *core.Env) core.Task {
	return &TrendingGenerateTask{env: env}
}

func (t *TrendingGenerateTask) Identifier() string {
	return TaskName
}

// Run 参数: max_articles (本次最多创建几篇), cutoff_days, force
func (t *TrendingGenerateTask) Run(ctx context.Context, params map[string]any) error {
	if t.env.Generator == nil {
		return errors.New("generator not configured")
	}
	if len(t.env.Sources) == 0 {
		return errors.New("no trending sources configured")
	}

	maxArticles := tasks.IntParam(params, "max_articles", t.env.MaxArticles)
	if maxArticles <= 0 {
		maxArticles = 3
	}
	cutoff := tasks.IntParam(params, "cutoff_days", t.env.CutoffDays)
	force := tasks.BoolParam(params, "force", false)

	res := trending.Collect(ctx, t.env.Sources...)
	for _, err := range res.Errors {
		logger.Warn("⚠️ [Trending] source failed", zap.Error(err))
	}
	if len(res.Candidates) == 0 {
		if len(res.Errors) > 0 {
			return fmt.Errorf("all trending sources failed: %w", errors.Join(res.Errors...))
		}
		logger.Info("🕷️ [Trending] no candidates")
		return nil
	}
	logger.Info("🕷️ [Trending] collected", zap.Int("candidates", len(res.Candidates)))

	var created, skipped, failed int
	for _, c := range res.Candidates {
		if created >= maxArticles {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := t.env.Generator.Generate(ctx, generator.Request{Candidate: c, CutoffDays: &cutoff, Force: force})
		if err != nil {
			failed++
			logger.Error("❌ [Trending] generate failed", zap.String("title", c.Title), zap.Error(err))
			continue
		}
		if out.Status == generator.StatusCreated {
			created++
		} else {
			skipped++
		}
	}

	logger.Info("🎉 [Trending] finished",
		zap.Int("created", created),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	if created == 0 && skipped == 0 && failed > 0 {
		return fmt.Errorf("all %d generation attempts failed", failed)
	}
	return nil
}
