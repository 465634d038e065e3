package clientmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/registry"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
)

var (
	// ErrNotRegistered 模型标识不在注册表中
	ErrNotRegistered = errors.New("provider not registered")
	// ErrMissingCredential 凭证环境变量未设置
	ErrMissingCredential = errors.New("credential not set")
)

// LookupEnv 环境变量读取函数，签名同 os.LookupEnv
type LookupEnv func(key string) (string, bool)

// Entry 客户端池中的一项
type Entry struct {
	ID     string
	Handle types.ClientHandle
	Model  string // 厂商侧模型名
}

// Family 返回句柄协议族
func (e *Entry) Family() types.Family {
	return e.Handle.Family()
}

// Manager 进程级客户端池
//
// 每个模型标识首次使用时读取凭证并构建客户端，之后复用，不会淘汰。
// 同一标识并发首次使用时只构建一次；构建期间不持有池锁。
type Manager struct {
	registry *registry.Registry
	lookup   LookupEnv
	logger   *logger.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group
}

// Option Manager 选项
type Option func(*Manager)

// WithLookupEnv 替换环境变量读取函数
func WithLookupEnv(lookup LookupEnv) Option {
	return func(m *Manager) {
		if lookup != nil {
			m.lookup = lookup
		}
	}
}

// WithLogger 设置日志
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.logger = log
		}
	}
}

// New 创建客户端池
func New(reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		registry: reg,
		lookup:   os.LookupEnv,
		logger:   logger.L(),
		entries:  make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("clientmgr")
	return m
}

// Resolve 解析模型标识为可用客户端
//
// ids 为空时解析注册表中的全部标识。只返回解析成功的标识，
// 未注册、缺少凭证或构建失败的标识被跳过并记录告警，不会导致整体失败。
func (m *Manager) Resolve(ctx context.Context, ids []string) map[string]*Entry {
	resolved, _ := m.ResolveWithErrors(ctx, ids)
	return resolved
}

// ResolveWithErrors 同 Resolve，额外返回每个未解析标识的原因
func (m *Manager) ResolveWithErrors(ctx context.Context, ids []string) (map[string]*Entry, map[string]error) {
	if len(ids) == 0 {
		ids = m.registry.IDs()
	}

	resolved := make(map[string]*Entry, len(ids))
	var unresolved map[string]error

	for _, id := range dedupe(ids) {
		entry, err := m.get(ctx, id)
		if err != nil {
			if unresolved == nil {
				unresolved = make(map[string]error)
			}
			unresolved[id] = err
			m.logger.WithContext(ctx).Warn("provider unavailable",
				zap.String("provider_id", id),
				zap.Error(err))
			continue
		}
		resolved[id] = entry
	}
	return resolved, unresolved
}

// Cached 返回已缓存的标识（已排序）
func (m *Manager) Cached() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsCached 判断标识是否已缓存
func (m *Manager) IsCached(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id]
	return ok
}

// Close 释放所有已缓存客户端的连接，进程退出时调用
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for id, entry := range m.entries {
		if err := entry.Handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) cached(id string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	return entry, ok
}

func (m *Manager) get(ctx context.Context, id string) (*Entry, error) {
	if entry, ok := m.cached(id); ok {
		return entry, nil
	}

	v, err, _ := m.group.Do(id, func() (interface{}, error) {
		// another flight may have finished between the read and Do
		if entry, ok := m.cached(id); ok {
			return entry, nil
		}

		entry, err := m.construct(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.entries[id] = entry
		m.mu.Unlock()

		m.logger.Info("provider client initialized",
			zap.String("provider_id", id),
			zap.String("family", entry.Family().String()),
			zap.String("model", entry.Model))
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (m *Manager) construct(ctx context.Context, id string) (*Entry, error) {
	def, ok := m.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}

	credential, ok := m.lookup(def.CredentialEnv)
	if !ok || strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredential, def.CredentialEnv)
	}

	model := def.DefaultModel
	if def.ModelEnv != "" {
		if v, ok := m.lookup(def.ModelEnv); ok && strings.TrimSpace(v) != "" {
			model = strings.TrimSpace(v)
		}
	}
	if model == def.DefaultModel {
		m.logger.Info("using default model",
			zap.String("provider_id", id),
			zap.String("model", model))
	}

	handle, err := def.Construct(ctx, strings.TrimSpace(credential))
	if err != nil {
		return nil, fmt.Errorf("construct %s client: %w", id, err)
	}

	return &Entry{ID: id, Handle: handle, Model: model}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
