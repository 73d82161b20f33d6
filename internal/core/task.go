package core

import (
	"context"

	"github.com/PNikhileswar/neurapress/internal/generator"
	"github.com/PNikhileswar/neurapress/internal/trending"
)

// TaskCreator 定义任务构造函数签名，依赖从 Env 中取
type TaskCreator func(env *Env) Task

// Task 任务接口
type Task interface {
	// Run 执行任务逻辑
	// params 是从配置文件传入的动态参数
	Run(ctx context.Context, params map[string]any) error

	// Identifier 返回任务唯一标识 (用于日志)
	Identifier() string
}

// ArticleGenerator 生成流程，*generator.Generator 实现
type ArticleGenerator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Outcome, error)
}

// Pinger 外部存储的连通性检查
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// Env 任务运行所需的依赖，进程启动时组装一次
type Env struct {
	Generator   ArticleGenerator
	Sources     []trending.Source
	Pingers     []Pinger
	CutoffDays  int
	MaxArticles int
}
