package types

import (
	"sort"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
)

// CompletionRequest 一次逻辑补全请求
type CompletionRequest struct {
	Messages []Message `json:"messages"`

	// Models 目标模型标识（如 "gemini"、"moonshot"），为空表示全部已知
	Models []string `json:"models,omitempty"`

	// MaxRetries 每个模型的最大尝试次数（>=1）
	MaxRetries int `json:"max_retries,omitempty"`

	// InitialBackoff 第一次重试前的等待时间，之后按 2 的幂递增
	InitialBackoff time.Duration `json:"initial_backoff,omitempty"`
}

// WithDefaults 返回补齐默认值后的副本
func (r CompletionRequest) WithDefaults() CompletionRequest {
	if r.MaxRetries < 1 {
		r.MaxRetries = DefaultMaxRetries
	}
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = DefaultInitialBackoff
	}
	return r
}

// CompletionResult 模型标识 -> 补全文本，只包含成功的模型
type CompletionResult map[string]string

// IDs 返回成功的模型标识（已排序）
func (r CompletionResult) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
