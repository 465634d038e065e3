package service

// MessageRequest 单条对话消息
type MessageRequest struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// CompletionRequest 补全请求
type CompletionRequest struct {
	Messages []MessageRequest `json:"messages" binding:"dive"`
	// Models 目标模型标识，为空使用默认模型
	Models []string `json:"models" binding:"omitempty,max=16,dive,min=1,max=64"`

	MaxRetries       int   `json:"max_retries" binding:"omitempty,min=1,max=10"`
	InitialBackoffMs int64 `json:"initial_backoff_ms" binding:"omitempty,min=1,max=60000"`
	TimeoutMs        int64 `json:"timeout_ms" binding:"omitempty,min=1"`
}

// CompletionResponse 补全响应
//
// 全部失败或没有可用模型时 Results 为空对象，不视为错误。
type CompletionResponse struct {
	RequestID  string            `json:"request_id"`
	Results    map[string]string `json:"results"`
	Failed     map[string]string `json:"failed"`
	Unresolved []string          `json:"unresolved"`
	Attempts   map[string]int    `json:"attempts"`
	Partial    bool              `json:"partial"`
	TimedOut   bool              `json:"timed_out"`
	ElapsedMs  int64             `json:"elapsed_ms"`
}

// ProviderResponse 已注册的模型标识
type ProviderResponse struct {
	ID            string `json:"id"`
	Family        string `json:"family"`
	DefaultModel  string `json:"default_model"`
	CredentialEnv string `json:"credential_env"`
	ModelEnv      string `json:"model_env,omitempty"`
	Cached        bool   `json:"cached"`
}

// ListProvidersResponse 模型标识列表
type ListProvidersResponse struct {
	Items         []*ProviderResponse `json:"items"`
	DefaultModels []string            `json:"default_models"`
}
