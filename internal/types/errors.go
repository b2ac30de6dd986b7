package types

import "fmt"

// ErrorCode Notion API 错误码
//
// https://developers.notion.com/reference/errors
type ErrorCode string

const (
	CodeInvalidJSON                   ErrorCode = "invalid_json"
	CodeInvalidRequestURL             ErrorCode = "invalid_request_url"
	CodeInvalidRequest                ErrorCode = "invalid_request"
	CodeValidationError               ErrorCode = "validation_error"
	CodeMissingVersion                ErrorCode = "missing_version"
	CodeUnauthorized                  ErrorCode = "unauthorized"
	CodeRestrictedResource            ErrorCode = "restricted_resource"
	CodeObjectNotFound                ErrorCode = "object_not_found"
	CodeConflictError                 ErrorCode = "conflict_error"
	CodeRateLimited                   ErrorCode = "rate_limited"
	CodeInternalServerError           ErrorCode = "internal_server_error"
	CodeServiceUnavailable            ErrorCode = "service_unavailable"
	CodeDatabaseConnectionUnavailable ErrorCode = "database_connection_unavailable"
)

// Transient 报告该错误码是否值得重试
//
// 限流、服务端故障和写冲突是暂时的；权限、找不到对象、
// 请求格式问题重试多少次都不会变好。
func (c ErrorCode) Transient() bool {
	switch c {
	case CodeRateLimited, CodeInternalServerError, CodeServiceUnavailable,
		CodeConflictError, CodeDatabaseConnectionUnavailable:
		return true
	}
	return false
}

// Error Notion API 错误响应体
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
