package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PNikhileswar/neurapress/internal/conf"
	"github.com/PNikhileswar/neurapress/internal/engine"
	"github.com/PNikhileswar/neurapress/internal/generator"
	"github.com/PNikhileswar/neurapress/internal/invalidation"
	"github.com/PNikhileswar/neurapress/internal/repo"
	"github.com/PNikhileswar/neurapress/internal/stats"
	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ArticleStore 文章接口依赖的仓储能力，*repo.ArticleRepo 实现
type ArticleStore interface {
	List(ctx context.Context, opts repo.ListOptions) ([]*objects.Article, error)
	GetBySlug(ctx context.Context, slug string) (*objects.Article, error)
	UniqueSlug(ctx context.Context, base string, maxAttempts int) (string, error)
	Create(ctx context.Context, a *objects.Article) error
	Update(ctx context.Context, slug string, u repo.ArticleUpdate) (before, after *objects.Article, err error)
	Delete(ctx context.Context, slug string) (*objects.Article, error)
}

type TopicChecker interface {
	Check(ctx context.Context, title string, cutoffDays int) (topic.Result, error)
}

type Generator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Outcome, error)
}

type StatsService interface {
	Get(ctx context.Context) stats.Result
	CategoryCounts(ctx context.Context) stats.CategoryResult
}

// Deps 由 cmd 组装后注入
type Deps struct {
	Articles   ArticleStore
	Matcher    TopicChecker
	Generator  Generator // 可选，未配置 LLM 时为 nil
	Stats      StatsService
	Cache      *statscache.Cache
	Notifier   invalidation.Notifier
	Scheduler  *engine.Scheduler // 可选
	CutoffDays int
}

type Server struct {
	engine *gin.Engine
	http   *http.Server
	deps   Deps
	cfg    conf.ServerConfig
}

func NewServer(cfg conf.ServerConfig, deps Deps) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(requestID(), accessLog(), gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	s := &Server{engine: router, deps: deps, cfg: cfg}
	s.routes()

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"code": 1300, "error": "API not found"})
			return
		}
		c.Status(http.StatusNotFound)
	})
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.health)

	api.GET("/articles", s.listArticles)
	api.GET("/articles/:slug", s.getArticle)
	api.GET("/stats", s.getStats)
	api.GET("/stats/categories", s.getCategoryCounts)
	api.POST("/topics/check", s.checkTopic)
	api.GET("/tasks", s.listTasks)

	admin := api.Group("")
	admin.Use(adminOnly(s.cfg.AdminToken))
	{
		admin.POST("/articles", s.createArticle)
		admin.PUT("/articles/:slug", s.updateArticle)
		admin.DELETE("/articles/:slug", s.deleteArticle)
		admin.POST("/stats/invalidate", s.invalidateStats)
		admin.POST("/generate", s.generate)
		admin.POST("/tasks/:name/run", s.runTask)
	}
}

// Handler 测试中直接使用 httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动任务调度器与 web server，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context, addr string) error {
	if s.deps.Scheduler != nil {
		s.deps.Scheduler.Start()
		defer s.deps.Scheduler.Stop()
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌐 [Server] listening", zap.String("addr", addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("🛑 [Server] shutting down")
	return s.http.Shutdown(shutdownCtx)
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCreds := !(len(origins) == 1 && origins[0] == "*")
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", AdminTokenHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: allowCreds,
		MaxAge:           12 * time.Hour,
	}
}
