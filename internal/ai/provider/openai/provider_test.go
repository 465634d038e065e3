package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New("moonshot", &types.Config{
		APIKey:  "sk-test",
		BaseURL: server.URL + "/v1",
		Headers: map[string]string{"X-Trace": "abc"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew(t *testing.T) {
	_, err := New("moonshot", &types.Config{BaseURL: "https://api.moonshot.cn/v1"})
	assert.ErrorIs(t, err, types.ErrMissingAPIKey)

	_, err = New("moonshot", &types.Config{APIKey: "sk-test"})
	assert.ErrorIs(t, err, types.ErrMissingBaseURL)

	p, err := New("moonshot", &types.Config{APIKey: "sk-test", BaseURL: "https://api.moonshot.cn/v1"})
	require.NoError(t, err)
	assert.Equal(t, "moonshot", p.Provider())
	assert.Equal(t, types.FamilyOpenAICompatible, p.Family())
	assert.NoError(t, p.Close())
}

func TestProvider_ChatCompletion(t *testing.T) {
	var received goopenai.ChatCompletionRequest

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "abc", r.Header.Get("X-Trace"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","model":"moonshot-v1-8k",
			"choices":[{"index":0,"message":{"role":"assistant","content":"ok-A"},"finish_reason":"stop"}]}`)
	})

	resp, err := p.ChatCompletion(context.Background(), "moonshot-v1-8k", []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: "S"},
		{Role: goopenai.ChatMessageRoleUser, Content: "U1"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "ok-A", resp.Choices[0].Message.Content)

	assert.Equal(t, "moonshot-v1-8k", received.Model)
	assert.InDelta(t, types.DefaultTemperature, received.Temperature, 1e-6)
	assert.InDelta(t, types.DefaultTopP, received.TopP, 1e-6)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "U1", received.Messages[1].Content)
}

func TestProvider_ChatCompletionErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantType  types.ErrorType
		retryable bool
	}{
		{
			name:      "invalid key",
			status:    http.StatusUnauthorized,
			body:      `{"error":{"message":"Invalid Authentication","type":"invalid_authentication_error"}}`,
			wantType:  types.ErrorTypeAuthentication,
			retryable: false,
		},
		{
			name:      "bad request",
			status:    http.StatusBadRequest,
			body:      `{"error":{"message":"bad","type":"invalid_request_error"}}`,
			wantType:  types.ErrorTypeInvalidRequest,
			retryable: false,
		},
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"message":"slow down","type":"rate_limit_reached_error"}}`,
			wantType:  types.ErrorTypeRateLimit,
			retryable: true,
		},
		{
			name:      "engine overloaded",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"message":"busy","type":"engine_overloaded_error"}}`,
			wantType:  types.ErrorTypeOverloaded,
			retryable: true,
		},
		{
			name:      "server error without json",
			status:    http.StatusBadGateway,
			body:      `upstream unavailable`,
			wantType:  types.ErrorTypeAPI,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := p.ChatCompletion(context.Background(), "moonshot-v1-8k", []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleUser, Content: "hi"},
			})
			require.Error(t, err)

			var pe *types.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, "moonshot", pe.Provider)
			assert.Equal(t, tt.retryable, p.IsRetryable(err))
		})
	}
}

func TestProvider_ChatCompletionCanceled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ChatCompletion(ctx, "moonshot-v1-8k", []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleUser, Content: "hi"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"empty response", types.ErrEmptyResponse, true},
		{"wrapped empty response", fmt.Errorf("call: %w", types.ErrEmptyResponse), true},
		{"deadline", context.DeadlineExceeded, false},
		{"plain unknown", errors.New("something odd"), true},
		{"invalid key text", errors.New("error, status code: 401, message: invalid_api_key"), false},
		{"rate limit text", errors.New("Rate limit reached for requests"), true},
		{"embedded json auth", errors.New(`upstream said: {"error":{"type":"invalid_authentication_error","message":"bad key"}}`), false},
		{"embedded json overloaded", errors.New(`upstream said: {"error":{"type":"engine_overloaded_error","message":"busy"}}`), true},
		{"api error 403", &goopenai.APIError{HTTPStatusCode: 403, Message: "forbidden"}, false},
		{"api error 500", &goopenai.APIError{HTTPStatusCode: 500, Message: "oops"}, true},
		{"api error invalid_api_key code", &goopenai.APIError{HTTPStatusCode: 0, Code: "invalid_api_key"}, false},
		{"request error 503", &goopenai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}, true},
		{"request error 404", &goopenai.RequestError{HTTPStatusCode: 404, Err: errors.New("not found")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
