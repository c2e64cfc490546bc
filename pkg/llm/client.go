// Package llm provides a client for interacting with Large Language Models
// through an OpenAI-compatible gateway.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"storyforge/pkg/log"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// ErrCompletionFailed 包装所有模型调用失败（传输错误、非 2xx、响应为空）。
var ErrCompletionFailed = errors.New("chat completion failed")

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 是一次非流式对话补全请求。
type Request struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 发送完整对话记录，返回第一个候选回复的内容。
	Complete(ctx context.Context, req Request) (string, error)
}

// Options 配置 NewClient。
type Options struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	CountTokens bool
}

type gatewayClient struct {
	client      *openai.Client
	countTokens bool
}

// NewClient creates a new LLM client against the configured gateway.
func NewClient(opts Options) Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	return &gatewayClient{
		client:      openai.NewClientWithConfig(cfg),
		countTokens: opts.CountTokens,
	}
}

func (c *gatewayClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	if c.countTokens {
		if n, ok := estimatePromptTokens(req.Messages); ok {
			promptTokens.WithLabelValues(req.Model).Observe(float64(n))
		}
	}

	start := time.Now()
	// 与代理接口保持相同的默认采样参数
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         messages,
		MaxTokens:        req.MaxTokens,
		Temperature:      float32(req.Temperature),
		TopP:             1,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		Stream:           false,
	})
	duration := time.Since(start)
	completionDuration.WithLabelValues(req.Model).Observe(duration.Seconds())

	if err != nil {
		completionsTotal.WithLabelValues(req.Model, errorStatus(err)).Inc()
		log.Warnw("chat completion failed", "model", req.Model, "duration", duration.String(), "error", err)
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		completionsTotal.WithLabelValues(req.Model, "empty_response").Inc()
		log.Warnw("chat completion returned no content", "model", req.Model, "duration", duration.String())
		return "", fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}

	completionsTotal.WithLabelValues(req.Model, "success").Inc()
	log.Infow("chat completion finished",
		"model", req.Model,
		"duration", duration.String(),
		"promptTokens", resp.Usage.PromptTokens,
		"completionTokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

func errorStatus(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return strconv.Itoa(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return strconv.Itoa(reqErr.HTTPStatusCode)
	}
	return "transport_error"
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// estimatePromptTokens 用 cl100k_base 估算对话记录的 token 数；编码表加载失败时返回 false。
// 网关背后的模型各不相同，这里只作为容量观测的近似值。
func estimatePromptTokens(messages []Message) (int, bool) {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warnf("failed to load tiktoken encoding: %v", err)
			return
		}
		encoding = enc
	})
	if encoding == nil {
		return 0, false
	}
	total := 0
	for _, m := range messages {
		total += len(encoding.Encode(m.Content, nil, nil))
	}
	return total, true
}
