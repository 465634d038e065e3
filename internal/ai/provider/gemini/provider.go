package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/transport"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// generator genai.Models 的调用面，测试中可替换
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider Google generateContent 协议的客户端句柄
type Provider struct {
	name       string
	config     *types.Config
	models     generator
	httpClient *http.Client
}

// New 创建 Gemini Provider
//
// BaseURL 为空时使用 SDK 默认地址。构建过程不发起网络请求。
func New(ctx context.Context, name string, config *types.Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := transport.NewHTTPClient(config.Timeout, config.Headers)

	clientConfig := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newWithGenerator(name, config, client.Models, httpClient), nil
}

func newWithGenerator(name string, config *types.Config, models generator, httpClient *http.Client) *Provider {
	return &Provider{
		name:       name,
		config:     config,
		models:     models,
		httpClient: httpClient,
	}
}

// Family 返回协议族
func (p *Provider) Family() types.Family {
	return types.FamilyGoogleGenerative
}

// Provider 返回 Provider 名称
func (p *Provider) Provider() string {
	return p.name
}

// IsRetryable 判断调用错误是否可重试
func (p *Provider) IsRetryable(err error) bool {
	return IsRetryable(err)
}

// GenerateContent 生成内容
//
// prompt 去掉首尾空白后作为单个 user 内容发送，systemInstruction 非空时放入生成配置。
// 返回的错误已归一化为 *types.ProviderError。
func (p *Provider) GenerateContent(ctx context.Context, model, prompt, systemInstruction string) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{userContent(strings.TrimSpace(prompt))}

	temperature := p.config.Temperature
	topP := p.config.TopP
	genConfig := &genai.GenerateContentConfig{
		Temperature: &temperature,
		TopP:        &topP,
	}
	if systemInstruction != "" {
		genConfig.SystemInstruction = userContent(systemInstruction)
	}

	resp, err := p.models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return nil, Classify(p.name, err)
	}
	return resp, nil
}

// Close 关闭空闲连接
func (p *Provider) Close() error {
	if p.httpClient != nil {
		p.httpClient.CloseIdleConnections()
	}
	return nil
}

func userContent(text string) *genai.Content {
	return &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}
}
