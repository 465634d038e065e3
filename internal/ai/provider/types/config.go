package types

import (
	"errors"
	"time"
)

var (
	ErrMissingAPIKey  = errors.New("API key is required")
	ErrMissingBaseURL = errors.New("base URL is required")
)

const (
	DefaultTemperature float32 = 0.7
	DefaultTopP        float32 = 0.95
)

// Config Provider 客户端通用配置
type Config struct {
	APIKey      string            // API Key
	BaseURL     string            // API 基础 URL（Google 协议族可为空，使用 SDK 默认地址）
	Timeout     time.Duration     // 单次 HTTP 请求超时
	Temperature float32           // 采样温度
	TopP        float32           // nucleus sampling
	Headers     map[string]string // 自定义 HTTP Headers
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.TopP == 0 {
		c.TopP = DefaultTopP
	}
	return nil
}

// ValidateWithBaseURL 验证配置并要求 BaseURL
func (c *Config) ValidateWithBaseURL() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}
