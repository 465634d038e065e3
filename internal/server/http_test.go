package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garacc/stock-agent-cn/internal/ai/orchestrator"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/registry"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
	"github.com/Garacc/stock-agent-cn/internal/completion/service"
	"github.com/Garacc/stock-agent-cn/internal/conf"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
)

type stubCompleter struct{}

func (stubCompleter) CompleteWithReport(context.Context, types.CompletionRequest) *orchestrator.Report {
	return &orchestrator.Report{RequestID: "r", Results: types.CompletionResult{"gemini": "hold"}}
}

type noneCached struct{}

func (noneCached) IsCached(string) bool { return false }

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg, err := conf.LoadConfig("")
	require.NoError(t, err)

	reg, err := registry.New(registry.Definition{
		ID:            "gemini",
		CredentialEnv: "GEMINI_API_KEY",
		DefaultModel:  "gemini-1.5-flash",
		Family:        types.FamilyGoogleGenerative,
		Construct: func(context.Context, string) (types.ClientHandle, error) {
			return nil, errors.New("unused")
		},
	})
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_up_total", Help: "test"}))

	log := logger.NewNop()
	svc := service.NewCompletionService(stubCompleter{}, reg, noneCached{}, cfg.LLM.CompletionDefaults(), nil, log)
	return NewHTTPServer(cfg, log, svc, promReg).Handler()
}

func TestHTTPServer_Routes(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		status   int
		contains string
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK, `"status":"ok"`},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, "test_up_total"},
		{"providers", http.MethodGet, "/api/v1/providers", "", http.StatusOK, `"id":"gemini"`},
		{"completions", http.MethodPost, "/api/v1/completions", `{"messages":[{"role":"user","content":"hi"}]}`, http.StatusOK, `"gemini":"hold"`},
		{"not found", http.MethodGet, "/nope", "", http.StatusNotFound, `"code":1002`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
			assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
		})
	}
}
