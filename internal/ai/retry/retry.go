package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// Call 一次 Provider 调用，返回补全文本
type Call func(ctx context.Context) (string, error)

// Classifier 判断错误是否值得继续重试
type Classifier func(err error) bool

// Policy 重试策略
type Policy struct {
	// MaxRetries 最大尝试次数（第一次调用也计入），小于 1 时按 1 处理
	MaxRetries int
	// InitialBackoff 第一次失败后的等待时间，第 i 次失败后等待 InitialBackoff * 2^i
	InitialBackoff time.Duration
}

// Failure 放弃重试时返回的错误
type Failure struct {
	Attempts int   // 实际调用次数
	Fatal    bool  // 因不可重试错误提前放弃
	Err      error // 最后一次错误
}

func (f *Failure) Error() string {
	reason := "retries exhausted"
	if f.Fatal {
		reason = "non-retryable error"
	}
	return fmt.Sprintf("%s after %d attempt(s): %v", reason, f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Option Execute 选项
type Option func(*options)

type options struct {
	onRetry func(attempt int, err error, wait time.Duration)
}

// OnRetry 每次失败且将要重试时回调（attempt 从 1 开始）
func OnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

// Execute 按指数退避执行 call
//
// 成功返回文本；失败总是返回 *Failure。等待期间只挂起当前 goroutine，ctx 结束时立即返回。
// 空文本视为失败，由 isRetryable 决定是否重试。
func Execute(ctx context.Context, policy Policy, isRetryable Classifier, call Call, opts ...Option) (string, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var (
		attempts int
		lastErr  error
		fatal    bool
		text     string
	)

	operation := func() error {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return backoff.Permanent(err)
		}

		attempts++
		out, err := call(ctx)
		if err == nil && out == "" {
			err = types.ErrEmptyResponse
		}
		if err != nil {
			lastErr = err
			if isRetryable != nil && !isRetryable(err) {
				fatal = true
				return backoff.Permanent(err)
			}
			return err
		}
		text = out
		return nil
	}

	notify := func(err error, wait time.Duration) {
		if o.onRetry != nil {
			o.onRetry(attempts, err, wait)
		}
	}

	if err := backoff.RetryNotify(operation, newBackOff(ctx, policy), notify); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", &Failure{Attempts: attempts, Fatal: fatal, Err: lastErr}
	}
	return text, nil
}

func newBackOff(ctx context.Context, policy Policy) backoff.BackOff {
	if policy.MaxRetries <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialBackoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = time.Duration(math.MaxInt64)
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(policy.MaxRetries-1)), ctx)
}
