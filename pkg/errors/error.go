package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/PNikhileswar/neurapress/pkg/xerr"
)

type CodeMsg struct {
	Code int    // 错误码
	Msg  string // 错误消息
	Err  error  // 原始错误
}

// 实现 error 接口
func (e *CodeMsg) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code=%d, msg=%s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("code=%d, msg=%s", e.Code, e.Msg)
}

func (e *CodeMsg) Unwrap() error {
	return e.Err
}

// HTTPStatus 返回该错误对应的 HTTP 状态码
func (e *CodeMsg) HTTPStatus() int {
	return xerr.HTTPStatus(e.Code)
}

// New 构造函数
func New(code int, msg string) error {
	return &CodeMsg{Code: code, Msg: msg}
}

// Wrap 保留原始错误，便于 errors.Is 判断
func Wrap(code int, msg string, err error) error {
	return &CodeMsg{Code: code, Msg: msg, Err: err}
}

// From 从错误链中提取 CodeMsg，没有则归为服务器通用错误
func From(err error) *CodeMsg {
	var cm *CodeMsg
	if stderrors.As(err, &cm) {
		return cm
	}
	return &CodeMsg{Code: xerr.SERVER_COMMON_ERROR, Msg: "internal server error", Err: err}
}
