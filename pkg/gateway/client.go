// Package gateway provides a pass-through client for the upstream AI gateway.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrAPIKeyNotConfigured 表示服务端未配置网关密钥。
var ErrAPIKeyNotConfigured = errors.New("API key not configured")

// UpstreamError 表示网关返回了非 2xx 状态码，Body 保留原始响应文本。
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

// Response 是网关的成功响应，按原样转发给调用方。
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client 定义了对网关三个接口的原样转发。
type Client interface {
	ChatCompletions(ctx context.Context, body []byte) (*Response, error)
	ImageGenerations(ctx context.Context, body []byte) (*Response, error)
	ListModels(ctx context.Context, query url.Values) (*Response, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a gateway client. timeout 为 0 时使用 http.Client 的默认行为。
func NewClient(baseURL, apiKey string, timeout time.Duration) Client {
	return &httpClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) ChatCompletions(ctx context.Context, body []byte) (*Response, error) {
	return c.do(ctx, "chat_completions", http.MethodPost, "/chat/completions", bytes.NewReader(body))
}

func (c *httpClient) ImageGenerations(ctx context.Context, body []byte) (*Response, error) {
	return c.do(ctx, "images_generations", http.MethodPost, "/images/generations", bytes.NewReader(body))
}

func (c *httpClient) ListModels(ctx context.Context, query url.Values) (*Response, error) {
	path := "/models"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, "models", http.MethodGet, path, nil)
}

func (c *httpClient) do(ctx context.Context, endpoint, method, path string, body io.Reader) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
