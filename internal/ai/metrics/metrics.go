package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Garacc/stock-agent-cn/internal/ai/orchestrator"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
	"github.com/Garacc/stock-agent-cn/internal/ai/retry"
)

const namespace = "stockagent"

// 结果标签
const (
	outcomeSuccess   = "success"
	outcomeExhausted = "exhausted"
	outcomeFatal     = "fatal"
)

// Collector 以 Prometheus 指标实现 orchestrator.Observer
type Collector struct {
	attempts    *prometheus.CounterVec
	results     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	requests    *prometheus.CounterVec
	unavailable prometheus.Counter
}

var _ orchestrator.Observer = (*Collector)(nil)

// NewCollector 创建并注册指标，reg 为 nil 时使用 prometheus.DefaultRegisterer
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "attempt_failures_total",
			Help:      "Failed provider attempts that were retried.",
		}, []string{"provider", "error_type"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "provider_results_total",
			Help:      "Provider outcomes per completion request.",
		}, []string{"provider", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "provider_latency_seconds",
			Help:      "Provider latency including retries.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"provider", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "completions_total",
			Help:      "Completion requests by aggregate status.",
		}, []string{"status"}),
		unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "no_provider_total",
			Help:      "Completion requests with no available provider.",
		}),
	}

	reg.MustRegister(c.attempts, c.results, c.latency, c.requests, c.unavailable)
	return c
}

func (c *Collector) OnAttemptFailed(_ context.Context, providerID string, _ int, err error, _ time.Duration) {
	c.attempts.WithLabelValues(providerID, errorType(err)).Inc()
}

func (c *Collector) OnProviderResult(_ context.Context, providerID string, _ int, latency time.Duration, err error) {
	outcome := outcomeOf(err)
	c.results.WithLabelValues(providerID, outcome).Inc()
	c.latency.WithLabelValues(providerID, outcome).Observe(latency.Seconds())
}

func (c *Collector) OnComplete(_ context.Context, report *orchestrator.Report) {
	if report.Unavailable() {
		c.unavailable.Inc()
	}
	c.requests.WithLabelValues(status(report)).Inc()
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	var failure *retry.Failure
	if errors.As(err, &failure) && failure.Fatal {
		return outcomeFatal
	}
	return outcomeExhausted
}

func errorType(err error) string {
	var perr *types.ProviderError
	if errors.As(err, &perr) {
		return string(perr.Type)
	}
	if errors.Is(err, types.ErrEmptyResponse) {
		return string(types.ErrorTypeEmptyResponse)
	}
	return string(types.ErrorTypeUnknown)
}

func status(report *orchestrator.Report) string {
	switch {
	case report.Unavailable():
		return "unavailable"
	case len(report.Results) == 0:
		return "failed"
	case report.TimedOut:
		return "timeout"
	case report.Partial:
		return "partial"
	default:
		return "success"
	}
}
