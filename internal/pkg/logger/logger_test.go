package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return Wrap(zap.New(core)), logs
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:   "default config",
			config: DefaultConfig(),
		},
		{
			name:   "console output",
			config: &Config{Level: "info", Format: "console", Output: "console"},
		},
		{
			name: "file output",
			config: &Config{
				Level:  "debug",
				Format: "json",
				Output: "file",
				File: FileConfig{
					Filename:   filepath.Join(dir, "file.log"),
					MaxSize:    10,
					MaxAge:     7,
					MaxBackups: 3,
					Compress:   true,
				},
			},
		},
		{
			name: "both output",
			config: &Config{
				Level:  "warn",
				Format: "json",
				Output: "both",
				File: FileConfig{
					Filename:   filepath.Join(dir, "both.log"),
					MaxSize:    10,
					MaxAge:     7,
					MaxBackups: 3,
				},
			},
		},
		{
			name:    "invalid level",
			config:  &Config{Level: "invalid", Format: "json", Output: "console"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  &Config{Level: "info", Format: "invalid", Output: "console"},
			wantErr: true,
		},
		{
			name:    "invalid output",
			config:  &Config{Level: "info", Format: "json", Output: "invalid"},
			wantErr: true,
		},
		{
			name:    "file output without filename",
			config:  &Config{Level: "info", Format: "json", Output: "file"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Same(t, tt.config, logger.Config())
		})
	}
}

func TestNew_NilConfigUsesDefault(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "info", logger.Config().Level)
}

func TestWithContext_AddsRequestID(t *testing.T) {
	logger, logs := observed()

	logger.WithContext(context.Background()).Info("no id")
	logger.WithContext(WithRequestID(context.Background(), "req-1")).Info("with id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "request_id")
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
}

func TestFromContext(t *testing.T) {
	logger, logs := observed()

	ctx := ToContext(WithRequestID(context.Background(), "req-2"), logger)
	InfoContext(ctx, "hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-2", logs.All()[0].ContextMap()["request_id"])
	assert.Equal(t, "req-2", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestNamedAndWith(t *testing.T) {
	logger, logs := observed()

	logger.Named("orchestrator").With(zap.String("provider_id", "gemini")).Warn("retrying")

	entry := logs.All()[0]
	assert.Equal(t, "orchestrator", entry.LoggerName)
	assert.Equal(t, "gemini", entry.ContextMap()["provider_id"])
}

func TestGlobalLogger(t *testing.T) {
	previous := L()
	t.Cleanup(func() { SetGlobal(previous) })

	logger, logs := observed()
	SetGlobal(logger)

	Info("info message", zap.String("key", "value"))
	Warn("warn message")

	assert.Same(t, logger, L())
	assert.Equal(t, 2, logs.Len())
}

func TestNewWithOptions(t *testing.T) {
	logger, err := NewWithOptions(
		WithLevel("debug"),
		WithFormat("console"),
		WithOutput("console"),
		WithCaller(false),
	)
	require.NoError(t, err)
	assert.Equal(t, "debug", logger.Config().Level)
	assert.False(t, logger.Config().EnableCaller)
}

func TestProduction(t *testing.T) {
	logger, err := Production(filepath.Join(t.TempDir(), "prod.log"))
	require.NoError(t, err)
	assert.Equal(t, "both", logger.Config().Output)
	logger.Info("test production logger")
}

func TestGinLoggerWithConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, logs := observed()

	var seen string
	r := gin.New()
	r.Use(GinLoggerWithConfig(logger, MiddlewareOptions{SkipPaths: []string{"/health"}}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/providers", func(c *gin.Context) {
		seen = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, 0, logs.Len())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(http.StatusOK), logs.All()[0].ContextMap()["status"])
}

func TestGinRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, logs := observed()

	r := gin.New()
	r.Use(GinRecovery(logger))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}
