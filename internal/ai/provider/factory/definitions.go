package factory

import (
	"context"
	"fmt"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/gemini"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/openai"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/registry"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// Spec Provider 定义的声明式描述（内置表与配置文件共用）
type Spec struct {
	ID            string
	Family        types.Family
	CredentialEnv string
	ModelEnv      string
	DefaultModel  string
	BaseURL       string
	Headers       map[string]string
}

// BuiltinSpecs 内置 Provider 表
func BuiltinSpecs() []Spec {
	return []Spec{
		{
			ID:            "gemini",
			Family:        types.FamilyGoogleGenerative,
			CredentialEnv: "GEMINI_API_KEY",
			ModelEnv:      "GEMINI_MODEL",
			DefaultModel:  "gemini-1.5-flash",
		},
		{
			ID:            "moonshot",
			Family:        types.FamilyOpenAICompatible,
			CredentialEnv: "OPENAI_API_KEY",
			ModelEnv:      "OPENAI_MODEL",
			DefaultModel:  "moonshot-v1-8k",
			BaseURL:       MoonshotBaseURL,
		},
	}
}

// Definition 根据 Spec 生成注册表定义，按协议族选择构建函数
func Definition(spec Spec, opts ...Option) (registry.Definition, error) {
	construct, err := constructFor(spec, opts)
	if err != nil {
		return registry.Definition{}, err
	}

	def := registry.Definition{
		ID:            spec.ID,
		CredentialEnv: spec.CredentialEnv,
		ModelEnv:      spec.ModelEnv,
		DefaultModel:  spec.DefaultModel,
		Family:        spec.Family,
		BaseURL:       spec.BaseURL,
		Construct:     construct,
	}
	if err := def.Validate(); err != nil {
		return registry.Definition{}, err
	}
	return def, nil
}

// NewRegistry 创建包含内置 Provider 与额外 Provider 的注册表
func NewRegistry(extra []Spec, opts ...Option) (*registry.Registry, error) {
	specs := append(BuiltinSpecs(), extra...)

	defs := make([]registry.Definition, 0, len(specs))
	for _, spec := range specs {
		def, err := Definition(spec, opts...)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return registry.New(defs...)
}

func constructFor(spec Spec, opts []Option) (registry.ConstructFunc, error) {
	opts = append(append([]Option{}, opts...), WithHeaders(spec.Headers))

	switch spec.Family {
	case types.FamilyOpenAICompatible:
		baseURL := spec.BaseURL
		if baseURL == "" {
			baseURL = OpenAIBaseURL
		}
		return func(ctx context.Context, credential string) (types.ClientHandle, error) {
			p, err := openai.New(spec.ID, OpenAICompatible(credential, baseURL, opts...))
			if err != nil {
				return nil, err
			}
			return p, nil
		}, nil

	case types.FamilyGoogleGenerative:
		opts = append(opts, WithBaseURL(spec.BaseURL))
		return func(ctx context.Context, credential string) (types.ClientHandle, error) {
			p, err := gemini.New(ctx, spec.ID, Gemini(credential, opts...))
			if err != nil {
				return nil, err
			}
			return p, nil
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s: unsupported family %s", registry.ErrInvalidDefinition, spec.ID, spec.Family)
	}
}
