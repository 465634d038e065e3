package factory

import (
	"time"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

const (
	MoonshotBaseURL = "https://api.moonshot.cn/v1"
	OpenAIBaseURL   = "https://api.openai.com/v1"

	defaultTimeout = 60 * time.Second
)

// Option 配置选项函数
type Option func(*types.Config)

// WithBaseURL 返回设置 Base URL 的 Option
func WithBaseURL(baseURL string) Option {
	return func(c *types.Config) {
		if baseURL != "" {
			c.BaseURL = baseURL
		}
	}
}

// WithTimeout 返回设置超时的 Option
func WithTimeout(timeout time.Duration) Option {
	return func(c *types.Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithSampling 返回设置采样参数的 Option，零值保持默认
func WithSampling(temperature, topP float32) Option {
	return func(c *types.Config) {
		if temperature > 0 {
			c.Temperature = temperature
		}
		if topP > 0 {
			c.TopP = topP
		}
	}
}

// WithHeader 返回添加单个 Header 的 Option
func WithHeader(key, value string) Option {
	return func(c *types.Config) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[key] = value
	}
}

// WithHeaders 返回批量设置 Headers 的 Option
func WithHeaders(headers map[string]string) Option {
	return func(c *types.Config) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		for key, value := range headers {
			c.Headers[key] = value
		}
	}
}

// Moonshot 快速创建 Moonshot (Kimi) 配置（基于 OpenAI 协议）
func Moonshot(apiKey string, opts ...Option) *types.Config {
	return OpenAICompatible(apiKey, MoonshotBaseURL, opts...)
}

// OpenAI 快速创建 OpenAI 配置
func OpenAI(apiKey string, opts ...Option) *types.Config {
	return OpenAICompatible(apiKey, OpenAIBaseURL, opts...)
}

// Gemini 快速创建 Gemini 配置（Base URL 留空使用 SDK 默认地址）
func Gemini(apiKey string, opts ...Option) *types.Config {
	return newConfig(apiKey, "", opts)
}

// OpenAICompatible 快速创建 OpenAI 兼容配置
func OpenAICompatible(apiKey, baseURL string, opts ...Option) *types.Config {
	return newConfig(apiKey, baseURL, opts)
}

func newConfig(apiKey, baseURL string, opts []Option) *types.Config {
	config := &types.Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Timeout:     defaultTimeout,
		Temperature: types.DefaultTemperature,
		TopP:        types.DefaultTopP,
		Headers:     make(map[string]string),
	}

	// 应用选项
	for _, opt := range opts {
		opt(config)
	}

	return config
}
