package orchestrator

import (
	"sort"
	"time"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// Report 一次补全请求的完整结果
type Report struct {
	RequestID string

	// Requested 实际请求的模型标识（空表示全部已知）
	Requested []string
	// Resolved 解析成功并被调度的模型标识（已排序）
	Resolved []string
	// Unresolved 未解析的模型标识及原因（未注册、缺少凭证、构建失败）
	Unresolved map[string]error

	// Results 成功的补全文本
	Results types.CompletionResult
	// Failed 调度后失败的模型标识及最后一次错误
	Failed map[string]error
	// Attempts 每个调度模型的调用次数
	Attempts map[string]int

	// Partial 部分成功：成功数小于调度数
	Partial bool
	// TimedOut 截止时间到达时仍有调用未结束
	TimedOut bool

	Elapsed time.Duration
}

// Unavailable 是否没有任何可用 Provider
func (r *Report) Unavailable() bool {
	return len(r.Resolved) == 0
}

// Pending 截止时间到达时仍未结束的模型标识
func (r *Report) Pending() []string {
	var pending []string
	for _, id := range r.Resolved {
		if _, ok := r.Results[id]; ok {
			continue
		}
		if _, ok := r.Failed[id]; ok {
			continue
		}
		pending = append(pending, id)
	}
	return pending
}

// UnresolvedIDs 未解析的模型标识（已排序）
func (r *Report) UnresolvedIDs() []string {
	return sortedKeys(r.Unresolved)
}

// FailedIDs 失败的模型标识（已排序）
func (r *Report) FailedIDs() []string {
	return sortedKeys(r.Failed)
}

func sortedKeys(m map[string]error) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
