package server

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/PNikhileswar/neurapress/internal/engine"
	"github.com/PNikhileswar/neurapress/internal/generator"
	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/errors"
	"github.com/PNikhileswar/neurapress/pkg/logger"
	"github.com/PNikhileswar/neurapress/pkg/utils"
	"github.com/PNikhileswar/neurapress/pkg/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": utils.Now()})
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Stats.Get(c.Request.Context()))
}

func (s *Server) getCategoryCounts(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Stats.CategoryCounts(c.Request.Context()))
}

type invalidateRequest struct {
	Key string `json:"key"`
}

func (s *Server) invalidateStats(c *gin.Context) {
	var req invalidateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body", err)
			return
		}
	}
	key := strings.ToLower(strings.TrimSpace(req.Key))
	if key == "" {
		key = statscache.KeyAll
	}
	switch {
	case key == statscache.KeyAll, key == statscache.KeyAllStats, key == statscache.KeyCategoryCounts:
	case objects.ValidCategory(key):
	default:
		badRequest(c, "unknown cache key", nil)
		return
	}

	s.deps.Cache.Invalidate(key)
	c.JSON(http.StatusOK, gin.H{"message": "invalidated", "key": key})
}

type checkRequest struct {
	Title      string `json:"title"`
	CutoffDays *int   `json:"cutoffDays"`
}

// checkTopic 查重试运行；查询失败按新话题处理并附带 warning
func (s *Server) checkTopic(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body", err)
		return
	}
	cutoff := s.deps.CutoffDays
	if req.CutoffDays != nil {
		cutoff = *req.CutoffDays
	}

	res, err := s.deps.Matcher.Check(c.Request.Context(), req.Title, cutoff)
	switch {
	case stderrors.Is(err, topic.ErrInvalidCutoff):
		fail(c, err)
		return
	case err != nil:
		logger.Warn("⚠️ [Topic] check failed, treating as novel", zap.String("title", req.Title), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"data": res, "warning": "similarity check unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

type generateRequest struct {
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords"`
	CutoffDays *int     `json:"cutoffDays"`
	Force      bool     `json:"force"`
}

func (s *Server) generate(c *gin.Context) {
	if s.deps.Generator == nil {
		fail(c, errors.New(xerr.ErrUnavailable, "article generation is not configured"))
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body", err)
		return
	}

	out, err := s.deps.Generator.Generate(c.Request.Context(), generator.Request{
		Candidate:  topic.Candidate{Title: req.Title, Category: req.Category, Keywords: req.Keywords},
		CutoffDays: req.CutoffDays,
		Force:      req.Force,
	})
	if err != nil {
		if !stderrors.Is(err, generator.ErrInvalidCandidate) {
			err = errors.Wrap(xerr.LLM_ERROR, "article generation failed", err)
		}
		fail(c, err)
		return
	}

	status := http.StatusOK
	if out.Status == generator.StatusCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": out})
}

func (s *Server) listTasks(c *gin.Context) {
	if s.deps.Scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"data": []engine.JobStats{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.deps.Scheduler.Stats.GetAll()})
}

func (s *Server) runTask(c *gin.Context) {
	if s.deps.Scheduler == nil {
		fail(c, errors.New(xerr.ErrUnavailable, "scheduler is not running"))
		return
	}
	name := c.Param("name")
	if err := s.deps.Scheduler.ManualRun(name); err != nil {
		switch {
		case stderrors.Is(err, engine.ErrJobNotFound):
			fail(c, errors.Wrap(xerr.ErrNotFound, "job not found", err))
			return
		case stderrors.Is(err, engine.ErrJobRunning):
			fail(c, errors.Wrap(xerr.ErrConflict, "job already running", err))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Triggered", "job": name})
}
