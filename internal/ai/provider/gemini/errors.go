package gemini

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// errorTypeByStatus google.rpc 状态 -> 错误类型
var errorTypeByStatus = map[string]types.ErrorType{
	"INVALID_ARGUMENT":    types.ErrorTypeInvalidRequest,
	"FAILED_PRECONDITION": types.ErrorTypeInvalidRequest,
	"UNAUTHENTICATED":     types.ErrorTypeAuthentication,
	"PERMISSION_DENIED":   types.ErrorTypePermission,
	"NOT_FOUND":           types.ErrorTypeNotFound,
	"RESOURCE_EXHAUSTED":  types.ErrorTypeRateLimit,
	"UNAVAILABLE":         types.ErrorTypeOverloaded,
	"INTERNAL":            types.ErrorTypeAPI,
	"DEADLINE_EXCEEDED":   types.ErrorTypeNetwork,
}

// Classify 将 SDK 错误归一化为 *types.ProviderError
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var pe *types.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewProviderError(provider, types.ErrorTypeCanceled, "request canceled", err)
	}

	if errors.Is(err, types.ErrEmptyResponse) {
		return types.NewProviderError(provider, types.ErrorTypeEmptyResponse, "empty completion", err)
	}

	if apiErr, ok := asAPIError(err); ok {
		pe := types.NewStatusError(provider, apiErr.Code, apiErr.Status, apiErr.Message, err)
		if t, ok := errorTypeByStatus[apiErr.Status]; ok {
			pe.Type = t
		}
		if isInvalidKey(apiErr.Message) {
			pe.Type = types.ErrorTypeAuthentication
		}
		return pe
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return types.NewProviderError(provider, types.ErrorTypeNetwork, "network error", err)
	}

	return classifyMessage(provider, err)
}

// IsRetryable 判断错误是否可重试
//
// 无效 API Key、权限不足、请求格式错误立即放弃；其余错误（含空响应与无法识别的错误）都重试。
// 取消和截止时间到达不重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *types.ProviderError
	if !errors.As(err, &pe) {
		classified := Classify("", err)
		if !errors.As(classified, &pe) {
			return true
		}
	}
	return pe.IsRetryable()
}

// asAPIError SDK 以值类型返回 APIError，兼容指针形式
func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func isInvalidKey(msg string) bool {
	return strings.Contains(msg, "API key not valid") || strings.Contains(msg, "API_KEY_INVALID")
}

// classifyMessage 没有结构化错误时按错误文本识别
func classifyMessage(provider string, err error) error {
	msg := err.Error()

	switch {
	case isInvalidKey(msg):
		return types.NewProviderError(provider, types.ErrorTypeAuthentication, "invalid API key", err)
	case strings.Contains(msg, "PERMISSION_DENIED"):
		return types.NewProviderError(provider, types.ErrorTypePermission, "permission denied", err)
	case strings.Contains(msg, "AFC is enabled"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return types.NewProviderError(provider, types.ErrorTypeRateLimit, "rate limited", err)
	case strings.Contains(msg, "UNAVAILABLE"):
		return types.NewProviderError(provider, types.ErrorTypeOverloaded, "service unavailable", err)
	default:
		return types.NewProviderError(provider, types.ErrorTypeUnknown, "unclassified error", err)
	}
}
