package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// errorTypeByCode 服务端错误 type/code -> 错误类型（覆盖按状态码推断的结果）
var errorTypeByCode = map[string]types.ErrorType{
	"invalid_api_key":              types.ErrorTypeAuthentication,
	"invalid_authentication_error": types.ErrorTypeAuthentication,
	"authentication_error":         types.ErrorTypeAuthentication,
	"permission_denied_error":      types.ErrorTypePermission,
	"invalid_request_error":        types.ErrorTypeInvalidRequest,
	"model_not_found":              types.ErrorTypeNotFound,
	"resource_not_found_error":     types.ErrorTypeNotFound,
	"rate_limit_reached_error":     types.ErrorTypeRateLimit,
	"rate_limit_exceeded":          types.ErrorTypeRateLimit,
	"engine_overloaded_error":      types.ErrorTypeOverloaded,
	"server_error":                 types.ErrorTypeAPI,
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

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		code := codeString(apiErr.Code)
		pe := types.NewStatusError(provider, apiErr.HTTPStatusCode, code, apiErr.Message, err)
		overrideType(pe, apiErr.Type, code)
		return pe
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		pe := types.NewStatusError(provider, reqErr.HTTPStatusCode, "", "request error", err)
		if reqErr.HTTPStatusCode == 0 {
			pe.Type = types.ErrorTypeNetwork
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
// 认证、权限、请求格式错误立即放弃；限流、5xx、网络错误、空响应以及无法识别的错误都重试。
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

func overrideType(pe *types.ProviderError, errType, code string) {
	for _, key := range []string{code, errType} {
		if t, ok := errorTypeByCode[key]; ok {
			pe.Type = t
			if pe.Code == "" {
				pe.Code = key
			}
			return
		}
	}
}

func codeString(code any) string {
	switch c := code.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

// classifyMessage 无结构化信息时按错误文本识别
//
// 部分兼容网关把服务端 JSON 错误体拼进错误文本，先尝试解析其中的 error.type/error.code。
func classifyMessage(provider string, err error) error {
	msg := err.Error()

	if idx := strings.Index(msg, "{"); idx >= 0 && gjson.Valid(msg[idx:]) {
		body := gjson.Parse(msg[idx:])
		status := int(body.Get("error.status").Int())
		pe := types.NewStatusError(provider, status, body.Get("error.code").String(), body.Get("error.message").String(), err)
		if status == 0 {
			pe.Type = types.ErrorTypeUnknown
		}
		overrideType(pe, body.Get("error.type").String(), pe.Code)
		return pe
	}

	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, "invalid_api_key", "incorrect api key", "invalid authentication", "unauthorized"):
		return types.NewProviderError(provider, types.ErrorTypeAuthentication, "authentication failed", err)
	case containsAny(lower, "rate limit", "too many requests"):
		return types.NewProviderError(provider, types.ErrorTypeRateLimit, "rate limited", err)
	case containsAny(lower, "connection refused", "connection reset", "timeout", "eof"):
		return types.NewProviderError(provider, types.ErrorTypeNetwork, "network error", err)
	default:
		return types.NewProviderError(provider, types.ErrorTypeUnknown, "unclassified error", err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
