package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType Provider 调用错误类型
type ErrorType string

const (
	// 4xx 客户端错误（不可重试）
	ErrorTypeInvalidRequest  ErrorType = "invalid_request_error"  // 400 - 请求格式或内容错误
	ErrorTypeAuthentication  ErrorType = "authentication_error"   // 401 - API Key 问题
	ErrorTypePermission      ErrorType = "permission_error"       // 403 - API Key 权限不足
	ErrorTypeNotFound        ErrorType = "not_found_error"        // 404 - 模型不存在
	ErrorTypeRequestTooLarge ErrorType = "request_too_large"      // 413 - 请求过大
	ErrorTypeRateLimit       ErrorType = "rate_limit_error"       // 429 - 达到速率限制

	// 5xx 服务器错误
	ErrorTypeAPI        ErrorType = "api_error"        // 500 - 内部服务器错误
	ErrorTypeOverloaded ErrorType = "overloaded_error" // 503/529 - API 临时过载

	// 非 HTTP 错误
	ErrorTypeNetwork       ErrorType = "network_error"        // 连接失败、超时
	ErrorTypeEmptyResponse ErrorType = "empty_response_error" // 调用成功但没有文本
	ErrorTypeCanceled      ErrorType = "canceled_error"       // 调用方取消或截止时间已到
	ErrorTypeUnknown       ErrorType = "unknown_error"        // 无法识别
)

// ErrEmptyResponse Provider 返回成功但内容为空（部分 SDK 在软错误时如此）
var ErrEmptyResponse = errors.New("empty response from provider")

// ProviderError Provider 错误
type ProviderError struct {
	Type       ErrorType // 错误类型
	Provider   string    // Provider 名称
	StatusCode int       // HTTP 状态码（非 HTTP 错误为 0）
	Code       string    // Provider 返回的错误码（如 invalid_api_key）
	Message    string    // 错误消息
	Err        error     // 原始错误
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("[%s][%s][%s] %s: %v",
				e.Provider, e.Type, httpStatusText(e.StatusCode), e.Message, e.Err)
		}
		return fmt.Sprintf("[%s][%s][%s] %s",
			e.Provider, e.Type, httpStatusText(e.StatusCode), e.Message)
	}

	if e.Err != nil {
		return fmt.Sprintf("[%s][%s] %s: %v", e.Provider, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %s", e.Provider, e.Type, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimitError 判断是否为速率限制错误
func (e *ProviderError) IsRateLimitError() bool {
	return e.Type == ErrorTypeRateLimit
}

// IsRetryable 判断错误是否可重试
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeAPI, ErrorTypeOverloaded,
		ErrorTypeNetwork, ErrorTypeEmptyResponse, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// NewProviderError 创建 Provider 错误
func NewProviderError(provider string, errType ErrorType, message string, err error) *ProviderError {
	return &ProviderError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NewStatusError 按 HTTP 状态码创建 Provider 错误
func NewStatusError(provider string, statusCode int, code, message string, err error) *ProviderError {
	return &ProviderError{
		Type:       ErrorTypeForStatus(statusCode),
		Provider:   provider,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}

// ErrorTypeForStatus HTTP 状态码 -> 错误类型
func ErrorTypeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusBadRequest:
		return ErrorTypeInvalidRequest
	case code == http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case code == http.StatusForbidden:
		return ErrorTypePermission
	case code == http.StatusNotFound:
		return ErrorTypeNotFound
	case code == http.StatusRequestEntityTooLarge:
		return ErrorTypeRequestTooLarge
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusServiceUnavailable || code == 529:
		return ErrorTypeOverloaded
	case code >= 500:
		return ErrorTypeAPI
	case code == http.StatusRequestTimeout:
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

// httpStatusText 返回 HTTP 状态码文本
func httpStatusText(code int) string {
	if code == 529 {
		return "Service Overloaded"
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("Status %d", code)
}
