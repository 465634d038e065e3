package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garacc/stock-agent-cn/internal/ai/orchestrator"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/registry"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
	apperrors "github.com/Garacc/stock-agent-cn/internal/pkg/errors"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
)

type fakeCompleter struct {
	got      types.CompletionRequest
	deadline bool
	report   *orchestrator.Report
}

func (f *fakeCompleter) CompleteWithReport(ctx context.Context, req types.CompletionRequest) *orchestrator.Report {
	f.got = req
	_, f.deadline = ctx.Deadline()
	return f.report
}

type cachedSet map[string]bool

func (s cachedSet) IsCached(id string) bool { return s[id] }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(t *testing.T, completer Completer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	noop := func(context.Context, string) (types.ClientHandle, error) { return nil, errors.New("unused") }
	reg, err := registry.New(
		registry.Definition{ID: "moonshot", CredentialEnv: "OPENAI_API_KEY", ModelEnv: "OPENAI_MODEL", DefaultModel: "moonshot-v1-8k", Family: types.FamilyOpenAICompatible, Construct: noop},
		registry.Definition{ID: "gemini", CredentialEnv: "GEMINI_API_KEY", ModelEnv: "GEMINI_MODEL", DefaultModel: "gemini-1.5-flash", Family: types.FamilyGoogleGenerative, Construct: noop},
	)
	require.NoError(t, err)

	svc := NewCompletionService(completer, reg, cachedSet{"gemini": true},
		types.CompletionRequest{MaxRetries: 4, InitialBackoff: 2 * time.Second},
		[]string{"gemini"}, logger.NewNop())

	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestComplete_Success(t *testing.T) {
	completer := &fakeCompleter{report: &orchestrator.Report{
		RequestID:  "req-1",
		Resolved:   []string{"gemini", "moonshot"},
		Unresolved: map[string]error{"deepseek": errors.New("credential not set")},
		Results:    types.CompletionResult{"gemini": "buy"},
		Failed:     map[string]error{"moonshot": errors.New("retries exhausted")},
		Attempts:   map[string]int{"gemini": 1, "moonshot": 3},
		Partial:    true,
		Elapsed:    1500 * time.Millisecond,
	}}
	r := newRouter(t, completer)

	w, env := do(t, r, http.MethodPost, "/api/v1/completions", `{
		"messages": [{"role": "system", "content": "S"}, {"role": "user", "content": "U"}],
		"models": ["gemini", "moonshot", "deepseek"],
		"max_retries": 2,
		"initial_backoff_ms": 100,
		"timeout_ms": 30000
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, apperrors.Success, env.Code)

	var resp CompletionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, map[string]string{"gemini": "buy"}, resp.Results)
	assert.Equal(t, "retries exhausted", resp.Failed["moonshot"])
	assert.Equal(t, []string{"deepseek"}, resp.Unresolved)
	assert.Equal(t, 3, resp.Attempts["moonshot"])
	assert.True(t, resp.Partial)
	assert.Equal(t, int64(1500), resp.ElapsedMs)

	got := completer.got
	require.Len(t, got.Messages, 2)
	assert.Equal(t, types.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, []string{"gemini", "moonshot", "deepseek"}, got.Models)
	assert.Equal(t, 2, got.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, got.InitialBackoff)
	assert.True(t, completer.deadline)
}

func TestComplete_AppliesDefaults(t *testing.T) {
	completer := &fakeCompleter{report: &orchestrator.Report{Results: types.CompletionResult{}}}
	r := newRouter(t, completer)

	w, env := do(t, r, http.MethodPost, "/api/v1/completions",
		`{"messages": [{"role": "user", "content": "hi"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, apperrors.Success, env.Code)
	assert.Equal(t, 4, completer.got.MaxRetries)
	assert.Equal(t, 2*time.Second, completer.got.InitialBackoff)
	assert.Empty(t, completer.got.Models)
	assert.False(t, completer.deadline)

	var resp CompletionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestComplete_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"messages": [`, apperrors.ErrInvalidParams},
		{"missing messages", `{}`, apperrors.ErrLLMEmptyMessages},
		{"empty messages", `{"messages": []}`, apperrors.ErrLLMEmptyMessages},
		{"blank content", `{"messages": [{"role": "user", "content": "  "}]}`, apperrors.ErrLLMEmptyContent},
		{"bad role", `{"messages": [{"role": "tool", "content": "x"}]}`, apperrors.ErrInvalidParams},
		{"bad retries", `{"messages": [{"role": "user", "content": "x"}], "max_retries": 99}`, apperrors.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{}
			r := newRouter(t, completer)

			w, env := do(t, r, http.MethodPost, "/api/v1/completions", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, env.Code)
			assert.Nil(t, completer.got.Messages)
		})
	}
}

func TestListProviders(t *testing.T) {
	r := newRouter(t, &fakeCompleter{})

	w, env := do(t, r, http.MethodGet, "/api/v1/providers", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListProvidersResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Items, 2)

	assert.Equal(t, "gemini", resp.Items[0].ID)
	assert.Equal(t, "google", resp.Items[0].Family)
	assert.True(t, resp.Items[0].Cached)

	assert.Equal(t, "moonshot", resp.Items[1].ID)
	assert.Equal(t, "openai", resp.Items[1].Family)
	assert.Equal(t, "moonshot-v1-8k", resp.Items[1].DefaultModel)
	assert.False(t, resp.Items[1].Cached)

	assert.Equal(t, []string{"gemini"}, resp.DefaultModels)
}
