package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

var (
	ErrDuplicateProvider = errors.New("provider already registered")
	ErrInvalidDefinition = errors.New("invalid provider definition")
)

// ConstructFunc 使用凭证构建客户端句柄
type ConstructFunc func(ctx context.Context, credential string) (types.ClientHandle, error)

// Definition Provider 定义（进程启动时确定，之后不再修改）
type Definition struct {
	ID            string       // 模型标识，如 "gemini"、"moonshot"
	CredentialEnv string       // 凭证环境变量名
	ModelEnv      string       // 模型名环境变量名
	DefaultModel  string       // 模型名环境变量未设置时使用
	Family        types.Family // 协议族
	BaseURL       string       // 仅用于展示，构建逻辑由 Construct 决定
	Construct     ConstructFunc
}

// Validate 验证定义
func (d Definition) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidDefinition)
	case d.CredentialEnv == "":
		return fmt.Errorf("%w: %s: credential env is required", ErrInvalidDefinition, d.ID)
	case d.DefaultModel == "" && d.ModelEnv == "":
		return fmt.Errorf("%w: %s: model env or default model is required", ErrInvalidDefinition, d.ID)
	case d.Family == types.FamilyUnknown:
		return fmt.Errorf("%w: %s: family is required", ErrInvalidDefinition, d.ID)
	case d.Construct == nil:
		return fmt.Errorf("%w: %s: construct func is required", ErrInvalidDefinition, d.ID)
	}
	return nil
}

// Registry Provider 定义表
//
// 新的 Provider 通过追加定义接入，调用方无需修改。
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// New 创建注册表
func New(defs ...Definition) (*Registry, error) {
	r := &Registry{definitions: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 注册 Provider 定义
func (r *Registry) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, def.ID)
	}
	r.definitions[def.ID] = def
	return nil
}

// Lookup 查找 Provider 定义
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[id]
	return def, ok
}

// IDs 列出所有模型标识（已排序）
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.definitions))
	for id := range r.definitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Definitions 列出所有定义（按 ID 排序）
func (r *Registry) Definitions() []Definition {
	ids := r.IDs()

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(ids))
	for _, id := range ids {
		if def, ok := r.definitions[id]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// Len 返回定义数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.definitions)
}
