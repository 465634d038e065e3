package openai

import (
	"context"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/transport"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// Provider OpenAI 兼容协议的客户端句柄（Moonshot、OpenAI 等）
type Provider struct {
	name       string
	config     *types.Config
	client     *goopenai.Client
	httpClient *http.Client
}

// New 创建 OpenAI 兼容 Provider
func New(name string, config *types.Config) (*Provider, error) {
	if err := config.ValidateWithBaseURL(); err != nil {
		return nil, err
	}

	httpClient := transport.NewHTTPClient(config.Timeout, config.Headers)

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL
	clientConfig.HTTPClient = httpClient

	return &Provider{
		name:       name,
		config:     config,
		client:     goopenai.NewClientWithConfig(clientConfig),
		httpClient: httpClient,
	}, nil
}

// Family 返回协议族
func (p *Provider) Family() types.Family {
	return types.FamilyOpenAICompatible
}

// Provider 返回 Provider 名称
func (p *Provider) Provider() string {
	return p.name
}

// IsRetryable 判断调用错误是否可重试
func (p *Provider) IsRetryable(err error) bool {
	return IsRetryable(err)
}

// ChatCompletion 创建聊天补全（同步）
//
// 返回的错误已归一化为 *types.ProviderError。
func (p *Provider) ChatCompletion(ctx context.Context, model string, messages []goopenai.ChatCompletionMessage) (goopenai.ChatCompletionResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: p.config.Temperature,
		TopP:        p.config.TopP,
	})
	if err != nil {
		return goopenai.ChatCompletionResponse{}, Classify(p.name, err)
	}
	return resp, nil
}

// Close 关闭空闲连接
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
