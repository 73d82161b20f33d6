package server

import (
	stderrors "errors"
	"net/http"

	"github.com/PNikhileswar/neurapress/internal/generator"
	"github.com/PNikhileswar/neurapress/internal/repo"
	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/errors"
	"github.com/PNikhileswar/neurapress/pkg/logger"
	"github.com/PNikhileswar/neurapress/pkg/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail 统一错误响应 {"code": <xerr code>, "error": msg}
func fail(c *gin.Context, err error) {
	cm := classify(err)
	status := cm.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("❌ [HTTP] request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(RequestIDHeader)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"code": cm.Code, "error": cm.Msg})
}

func classify(err error) *errors.CodeMsg {
	switch {
	case stderrors.Is(err, repo.ErrNotFound):
		return &errors.CodeMsg{Code: xerr.ErrResourceNotFound, Msg: "article not found", Err: err}
	case stderrors.Is(err, repo.ErrSlugTaken):
		return &errors.CodeMsg{Code: xerr.ErrSlugTaken, Msg: "slug already taken", Err: err}
	case stderrors.Is(err, generator.ErrInvalidCandidate), stderrors.Is(err, topic.ErrInvalidCutoff):
		return &errors.CodeMsg{Code: xerr.ErrInvalidInput, Msg: err.Error(), Err: err}
	}
	return errors.From(err)
}

func badRequest(c *gin.Context, msg string, err error) {
	fail(c, errors.Wrap(xerr.ErrInvalidInput, msg, err))
}
