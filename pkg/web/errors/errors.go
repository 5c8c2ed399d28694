package errors

import "net/http"

// 业务错误码
const (
	CodeOK                   = 0
	CodeInvalidParams        = 40001
	CodeInsufficientResource = 40002
	CodeNotEligible          = 40003
	CodeNotFound             = 40004
	CodeOutOfSequence        = 40901
	CodeInvalidState         = 40902
	CodeAlreadyExists        = 40903
	CodeMaxReached           = 40904
	CodeNotActive            = 40905
	CodeInternalError        = 50000
)

// CodeToStatus 将业务错误码映射为 HTTP 状态码
func CodeToStatus(code int) int {
	switch {
	case code == CodeOK:
		return http.StatusOK
	case code == CodeNotEligible:
		return http.StatusForbidden
	case code == CodeNotFound:
		return http.StatusNotFound
	case code >= 40900 && code < 41000:
		return http.StatusConflict
	case code >= 40000 && code < 50000:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
