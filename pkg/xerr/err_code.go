package xerr

import "net/http"

const (
	SERVER_COMMON_ERROR = 100001
	REQUEST_PARAM_ERROR = 100002
	DB_ERROR            = 100004
	LLM_ERROR           = 100005

	ErrBadRequest       = 1000 // HTTP 400
	ErrInvalidInput     = 1001 // HTTP 400
	ErrMissingParameter = 1002 // HTTP 400
	ErrInvalidJSON      = 1003 // HTTP 400

	ErrUnauthenticated = 1100 // HTTP 401
	ErrInvalidToken    = 1101 // HTTP 401

	ErrNotFound         = 1300 // HTTP 404
	ErrResourceNotFound = 1301 // HTTP 404

	ErrConflict  = 1400 // HTTP 409
	ErrSlugTaken = 1401 // HTTP 409

	ErrUnavailable = 1500 // HTTP 503
)

// HTTPStatus 将业务错误码映射为 HTTP 状态码
func HTTPStatus(code int) int {
	switch {
	case code >= 1000 && code < 1100:
		return http.StatusBadRequest
	case code >= 1100 && code < 1200:
		return http.StatusUnauthorized
	case code >= 1300 && code < 1400:
		return http.StatusNotFound
	case code >= 1400 && code < 1500:
		return http.StatusConflict
	case code >= 1500 && code < 1600:
		return http.StatusServiceUnavailable
	case code == LLM_ERROR:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
