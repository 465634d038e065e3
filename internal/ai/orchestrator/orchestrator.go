package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/Garacc/stock-agent-cn/internal/ai/adapter"
	"github.com/Garacc/stock-agent-cn/internal/ai/clientmgr"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
	"github.com/Garacc/stock-agent-cn/internal/ai/retry"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
)

// ErrUnsupportedHandle 句柄不支持其协议族的调用面
var ErrUnsupportedHandle = errors.New("client handle does not support its family")

// OpenAICaller OpenAI 兼容协议族的调用面
type OpenAICaller interface {
	ChatCompletion(ctx context.Context, model string, messages []goopenai.ChatCompletionMessage) (goopenai.ChatCompletionResponse, error)
}

// GoogleCaller Google generateContent 协议族的调用面
type GoogleCaller interface {
	GenerateContent(ctx context.Context, model, prompt, systemInstruction string) (*genai.GenerateContentResponse, error)
}

// Resolver 模型标识 -> 客户端
type Resolver interface {
	ResolveWithErrors(ctx context.Context, ids []string) (map[string]*clientmgr.Entry, map[string]error)
}

// Orchestrator 多 Provider 补全编排器
//
// 一个请求被并发分发到所有解析成功的 Provider，每个 Provider 独立重试，
// 互不取消、互不等待。任何失败都只体现为结果中缺少对应的键。
type Orchestrator struct {
	resolver      Resolver
	observer      Observer
	logger        *logger.Logger
	defaultModels []string
	timeout       time.Duration
}

// Option 编排器选项
type Option func(*Orchestrator)

// WithObserver 设置观测钩子
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithLogger 设置日志
func WithLogger(log *logger.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithDefaultModels 请求未指定模型时使用的模型标识，为空则使用全部已知
func WithDefaultModels(ids ...string) Option {
	return func(o *Orchestrator) {
		o.defaultModels = append([]string(nil), ids...)
	}
}

// WithTimeout 每个请求的整体截止时间（0 表示只使用调用方 ctx）
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = timeout
	}
}

// New 创建编排器
func New(resolver Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		observer: NopObserver{},
		logger:   logger.L(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("orchestrator")
	return o
}

// Complete 执行补全，返回成功的模型标识 -> 文本
//
// 不返回错误：未解析、重试耗尽、不可重试错误、截止时间到达都只表现为缺少对应的键。
// 没有任何可用 Provider 时返回空结果。
func (o *Orchestrator) Complete(ctx context.Context, req types.CompletionRequest) types.CompletionResult {
	return o.CompleteWithReport(ctx, req).Results
}

// CompleteWithReport 执行补全并返回完整报告
func (o *Orchestrator) CompleteWithReport(ctx context.Context, req types.CompletionRequest) *Report {
	start := time.Now()

	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = logger.WithRequestID(ctx, requestID)
	}
	log := o.logger.WithContext(ctx)

	req = req.WithDefaults()
	ids := req.Models
	if len(ids) == 0 {
		ids = o.defaultModels
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	report := &Report{
		RequestID: requestID,
		Requested: append([]string(nil), ids...),
		Results:   types.CompletionResult{},
		Failed:    map[string]error{},
		Attempts:  map[string]int{},
	}

	resolved, unresolved := o.resolver.ResolveWithErrors(ctx, ids)
	report.Unresolved = unresolved
	if report.Unresolved == nil {
		report.Unresolved = map[string]error{}
	}
	for id := range resolved {
		report.Resolved = append(report.Resolved, id)
	}
	sort.Strings(report.Resolved)

	if len(resolved) == 0 {
		report.Elapsed = time.Since(start)
		log.Warn("no provider available",
			zap.Strings("requested", ids),
			zap.Strings("unresolved", report.UnresolvedIDs()))
		o.observer.OnComplete(ctx, report)
		return report
	}

	log.Info("dispatching completion",
		zap.Strings("providers", report.Resolved),
		zap.Int("messages", len(req.Messages)),
		zap.Int("max_retries", req.MaxRetries),
		zap.Duration("initial_backoff", req.InitialBackoff))

	policy := retry.Policy{MaxRetries: req.MaxRetries, InitialBackoff: req.InitialBackoff}
	agg := newAggregate()

	// plain Group: one provider's failure must not cancel its siblings
	var g errgroup.Group
	for _, id := range report.Resolved {
		entry := resolved[id]
		g.Go(func() error {
			o.run(ctx, entry, req.Messages, policy, agg)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		report.TimedOut = true
	}

	agg.snapshot(report)
	report.Partial = len(report.Results) < len(report.Resolved)
	report.Elapsed = time.Since(start)

	fields := []zap.Field{
		zap.Strings("succeeded", report.Results.IDs()),
		zap.Strings("failed", report.FailedIDs()),
		zap.Duration("elapsed", report.Elapsed),
	}
	switch {
	case report.TimedOut:
		log.Warn("deadline reached, returning partial results",
			append(fields, zap.Strings("pending", report.Pending()))...)
	case len(report.Results) == 0:
		log.Warn("all providers failed", fields...)
	case report.Partial:
		log.Warn("partial success", fields...)
	default:
		log.Info("completion finished", fields...)
	}

	o.observer.OnComplete(ctx, report)
	return report
}

// run 执行单个 Provider 的调用并记录结果
func (o *Orchestrator) run(ctx context.Context, entry *clientmgr.Entry, messages []types.Message, policy retry.Policy, agg *aggregate) {
	log := o.logger.WithContext(ctx).With(
		zap.String("provider_id", entry.ID),
		zap.String("model", entry.Model))

	start := time.Now()
	var attempts int32

	text, err := func() (text string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("provider call panicked: %v", r)
			}
		}()

		call, err := callFor(entry, messages, log)
		if err != nil {
			return "", err
		}
		counted := func(ctx context.Context) (string, error) {
			atomic.AddInt32(&attempts, 1)
			return call(ctx)
		}

		return retry.Execute(ctx, policy, entry.Handle.IsRetryable, counted,
			retry.OnRetry(func(attempt int, err error, wait time.Duration) {
				log.Warn("attempt failed, retrying",
					zap.Int("attempt", attempt),
					zap.Duration("backoff", wait),
					zap.Error(err))
				o.observer.OnAttemptFailed(ctx, entry.ID, attempt, err, wait)
			}))
	}()

	latency := time.Since(start)
	n := int(atomic.LoadInt32(&attempts))

	if err != nil {
		var failure *retry.Failure
		if errors.As(err, &failure) && failure.Fatal {
			log.Error("provider gave up on non-retryable error",
				zap.Int("attempts", n), zap.Error(failure.Err))
		} else {
			log.Error("provider failed",
				zap.Int("attempts", n), zap.Duration("latency", latency), zap.Error(err))
		}
		agg.fail(entry.ID, n, err)
		o.observer.OnProviderResult(ctx, entry.ID, n, latency, err)
		return
	}

	log.Info("provider succeeded",
		zap.Int("attempts", n),
		zap.Duration("latency", latency),
		zap.Int("length", utf8.RuneCountInString(text)))
	log.Debug("provider response", zap.String("content", truncate(text, 500)))

	agg.succeed(entry.ID, n, text)
	o.observer.OnProviderResult(ctx, entry.ID, n, latency, nil)
}

// callFor 按协议族整形请求并生成单次调用
func callFor(entry *clientmgr.Entry, messages []types.Message, log *logger.Logger) (retry.Call, error) {
	switch entry.Family() {
	case types.FamilyOpenAICompatible:
		caller, ok := entry.Handle.(OpenAICaller)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedHandle, entry.ID)
		}
		payload := adapter.ToOpenAIMessages(messages)
		log.Debug("request messages", zap.Int("count", len(payload)))

		return func(ctx context.Context) (string, error) {
			resp, err := caller.ChatCompletion(ctx, entry.Model, payload)
			if err != nil {
				return "", err
			}
			return adapter.FromOpenAIResponse(resp)
		}, nil

	case types.FamilyGoogleGenerative:
		caller, ok := entry.Handle.(GoogleCaller)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedHandle, entry.ID)
		}
		prompt := adapter.ToGooglePrompt(messages)
		log.Debug("request prompt",
			zap.String("prompt", truncate(prompt.Prompt, 500)),
			zap.Bool("system_instruction", prompt.HasSystemInstruction()))

		return func(ctx context.Context) (string, error) {
			resp, err := caller.GenerateContent(ctx, entry.Model, prompt.Prompt, prompt.SystemInstruction)
			if err != nil {
				return "", err
			}
			return adapter.FromGoogleResponse(resp)
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s has family %s", ErrUnsupportedHandle, entry.ID, entry.Family())
	}
}

// aggregate 并发写入的结果集
type aggregate struct {
	mu       sync.Mutex
	results  map[string]string
	failed   map[string]error
	attempts map[string]int
}

func newAggregate() *aggregate {
	return &aggregate{
		results:  make(map[string]string),
		failed:   make(map[string]error),
		attempts: make(map[string]int),
	}
}

func (a *aggregate) succeed(id string, attempts int, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[id] = text
	a.attempts[id] = attempts
}

func (a *aggregate) fail(id string, attempts int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed[id] = err
	a.attempts[id] = attempts
}

// snapshot 复制当前结果，之后到达的结果不影响 report
func (a *aggregate) snapshot(report *Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, text := range a.results {
		report.Results[id] = text
	}
	for id, err := range a.failed {
		report.Failed[id] = err
	}
	for id, n := range a.attempts {
		report.Attempts[id] = n
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
