package transport

import (
	"net/http"
	"time"
)

// NewHTTPClient 创建 Provider 使用的 HTTP 客户端，每个请求附加 headers
func NewHTTPClient(timeout time.Duration, headers map[string]string) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:    http.DefaultTransport.(*http.Transport).Clone(),
			headers: headers,
		},
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for key, value := range t.headers {
			req.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(req)
}

// CloseIdleConnections 让 http.Client.CloseIdleConnections 能传递到底层 Transport
func (t *headerTransport) CloseIdleConnections() {
	if ci, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}
