package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Garacc/stock-agent-cn/internal/ai/orchestrator"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/registry"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
	apperrors "github.com/Garacc/stock-agent-cn/internal/pkg/errors"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
	"github.com/Garacc/stock-agent-cn/internal/pkg/response"
)

// Completer 执行一次多模型补全
type Completer interface {
	CompleteWithReport(ctx context.Context, req types.CompletionRequest) *orchestrator.Report
}

// CacheInspector 查询客户端池状态
type CacheInspector interface {
	IsCached(id string) bool
}

// CompletionService 补全 HTTP 服务
type CompletionService struct {
	completer     Completer
	registry      *registry.Registry
	pool          CacheInspector
	defaults      types.CompletionRequest
	defaultModels []string
	logger        *logger.Logger
}

// NewCompletionService 创建补全服务
//
// defaults 提供请求未指定时的 MaxRetries 与 InitialBackoff。
func NewCompletionService(
	completer Completer,
	reg *registry.Registry,
	pool CacheInspector,
	defaults types.CompletionRequest,
	defaultModels []string,
	log *logger.Logger,
) *CompletionService {
	return &CompletionService{
		completer:     completer,
		registry:      reg,
		pool:          pool,
		defaults:      defaults.WithDefaults(),
		defaultModels: defaultModels,
		logger:        log.Named("completion"),
	}
}

// RegisterRoutes 注册路由
func (s *CompletionService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/completions", s.Complete)
	r.GET("/providers", s.ListProviders)
}

// Complete 多模型补全
func (s *CompletionService) Complete(c *gin.Context) {
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	bizReq, err := s.toBizRequest(&req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	report := s.completer.CompleteWithReport(ctx, bizReq)
	if report.Unavailable() {
		s.logger.WithContext(ctx).Warn("no provider available for request",
			zap.Strings("requested", report.Requested))
	}

	response.Success(c, toCompletionResponse(report))
}

// ListProviders 列出已注册的模型标识
func (s *CompletionService) ListProviders(c *gin.Context) {
	defs := s.registry.Definitions()

	items := make([]*ProviderResponse, 0, len(defs))
	for _, def := range defs {
		items = append(items, &ProviderResponse{
			ID:            def.ID,
			Family:        def.Family.String(),
			DefaultModel:  def.DefaultModel,
			CredentialEnv: def.CredentialEnv,
			ModelEnv:      def.ModelEnv,
			Cached:        s.pool.IsCached(def.ID),
		})
	}

	defaultModels := s.defaultModels
	if defaultModels == nil {
		defaultModels = []string{}
	}
	response.Success(c, &ListProvidersResponse{Items: items, DefaultModels: defaultModels})
}

func (s *CompletionService) toBizRequest(req *CompletionRequest) (types.CompletionRequest, error) {
	if len(req.Messages) == 0 {
		return types.CompletionRequest{}, apperrors.New(apperrors.ErrLLMEmptyMessages)
	}

	messages := make([]types.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			return types.CompletionRequest{}, apperrors.New(apperrors.ErrLLMEmptyContent, fmt.Sprintf("messages[%d]", i))
		}
		messages = append(messages, types.Message{Role: types.Role(m.Role), Content: m.Content})
	}

	bizReq := types.CompletionRequest{
		Messages:       messages,
		Models:         req.Models,
		MaxRetries:     s.defaults.MaxRetries,
		InitialBackoff: s.defaults.InitialBackoff,
	}
	if req.MaxRetries > 0 {
		bizReq.MaxRetries = req.MaxRetries
	}
	if req.InitialBackoffMs > 0 {
		bizReq.InitialBackoff = time.Duration(req.InitialBackoffMs) * time.Millisecond
	}
	return bizReq, nil
}

func toCompletionResponse(report *orchestrator.Report) *CompletionResponse {
	resp := &CompletionResponse{
		RequestID:  report.RequestID,
		Results:    make(map[string]string, len(report.Results)),
		Failed:     make(map[string]string, len(report.Failed)),
		Unresolved: report.UnresolvedIDs(),
		Attempts:   report.Attempts,
		Partial:    report.Partial,
		TimedOut:   report.TimedOut,
		ElapsedMs:  report.Elapsed.Milliseconds(),
	}
	for id, text := range report.Results {
		resp.Results[id] = text
	}
	for id, err := range report.Failed {
		resp.Failed[id] = err.Error()
	}
	if resp.Attempts == nil {
		resp.Attempts = map[string]int{}
	}
	return resp
}
