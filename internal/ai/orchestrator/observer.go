package orchestrator

import (
	"context"
	"time"
)

// Observer 补全过程的观测钩子
//
// 回调可能在多个 goroutine 中并发调用，实现需自行保证并发安全。
// 截止时间到达后仍在运行的调用可能在 OnComplete 之后回调 OnProviderResult。
type Observer interface {
	// OnAttemptFailed 某次尝试失败且即将重试
	OnAttemptFailed(ctx context.Context, providerID string, attempt int, err error, wait time.Duration)

	// OnProviderResult 单个 Provider 结束（err 为 nil 表示成功）
	OnProviderResult(ctx context.Context, providerID string, attempts int, latency time.Duration, err error)

	// OnComplete 请求结束
	OnComplete(ctx context.Context, report *Report)
}

// NopObserver 空实现
type NopObserver struct{}

func (NopObserver) OnAttemptFailed(context.Context, string, int, error, time.Duration)  {}
func (NopObserver) OnProviderResult(context.Context, string, int, time.Duration, error) {}
func (NopObserver) OnComplete(context.Context, *Report)                                 {}

// Observers 组合多个 Observer
type Observers []Observer

func (obs Observers) OnAttemptFailed(ctx context.Context, providerID string, attempt int, err error, wait time.Duration) {
	for _, o := range obs {
		o.OnAttemptFailed(ctx, providerID, attempt, err, wait)
	}
}

func (obs Observers) OnProviderResult(ctx context.Context, providerID string, attempts int, latency time.Duration, err error) {
	for _, o := range obs {
		o.OnProviderResult(ctx, providerID, attempts, latency, err)
	}
}

func (obs Observers) OnComplete(ctx context.Context, report *Report) {
	for _, o := range obs {
		o.OnComplete(ctx, report)
	}
}
