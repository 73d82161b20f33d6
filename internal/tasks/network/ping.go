package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PNikhileswar/neurapress/internal/core"
	"github.com/PNikhileswar/neurapress/internal/tasks"
	"github.com/PNikhileswar/neurapress/pkg/logger"

	"go.uber.org/zap"
)

const TaskName = "sys:store_ping"

// PingTask 检查 MongoDB / Redis 连通性
type PingTask struct {
	pingers []core.Pinger
}

// init 只要这个包被 import，任务就会自动挂载
func init() {
	defaultParams := map[string]any{
		"timeout": 5,
	}
	tasks.RegisterAuto(TaskName, "@every 1m", NewPingTask, defaultParams)
}

func NewPingTask(env *core.Env) core.Task {
	return &PingTask{pingers: env.Pingers}
}

func (t *PingTask) Identifier() string {
	return TaskName
}

func (t *PingTask) Run(ctx context.Context, params map[string]any) error {
	timeout := time.Duration(tasks.IntParam(params, "timeout", 5)) * time.Second

	var errs []error
	for _, p := range t.pingers {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			logger.Warn("📡 [Ping] failed", zap.String("store", p.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		logger.Debug("✅ [Ping] ok", zap.String("store", p.Name()))
	}
	return errors.Join(errs...)
}
