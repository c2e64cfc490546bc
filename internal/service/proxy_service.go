package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"storyforge/pkg/gateway"
	"strconv"
)

// ErrPromptRequired 表示图片生成请求缺少 prompt。
var ErrPromptRequired = errors.New("Prompt is required")

// 代理接口的默认参数
const (
	DefaultChatModel        = "openai/gpt-4o-mini"
	DefaultChatMaxTokens    = 950
	DefaultChatTemperature  = 1.0
	DefaultChatTopP         = 1.0
	DefaultImageModel       = "stabilityai/sd3.5"
	DefaultImageSize        = "1024x1024"
	DefaultImageCount       = 1
	DefaultImageQuality     = "standard"
	DefaultImageStyle       = "natural"
	DefaultImageProvider    = "deepinfra"
	DefaultModelsLimit      = "50"
	DefaultModelsOffset     = "0"
	DefaultModelsGatewayTag = "openrouter"
)

// ChatCompletionRequest 是 /chat-completions 接收的请求体。
// 指针字段用于区分“未提供”与零值。
type ChatCompletionRequest struct {
	Model             string          `json:"model"`
	Messages          json.RawMessage `json:"messages"`
	MaxTokens         *int            `json:"max_tokens"`
	Temperature       *float64        `json:"temperature"`
	TopP              *float64        `json:"top_p"`
	FrequencyPenalty  *float64        `json:"frequency_penalty"`
	PresencePenalty   *float64        `json:"presence_penalty"`
	Stream            *bool           `json:"stream"`
	Tools             json.RawMessage `json:"tools"`
	Provider          string          `json:"provider"`
	PortkeyProvider   string          `json:"portkey_provider"`
	PortkeyVirtualKey string          `json:"portkey_virtual_key"`
}

type upstreamChatRequest struct {
	Model             string          `json:"model"`
	Messages          json.RawMessage `json:"messages,omitempty"`
	MaxTokens         int             `json:"max_tokens"`
	Temperature       float64         `json:"temperature"`
	TopP              float64         `json:"top_p"`
	FrequencyPenalty  float64         `json:"frequency_penalty"`
	PresencePenalty   float64         `json:"presence_penalty"`
	Stream            bool            `json:"stream"`
	Tools             json.RawMessage `json:"tools,omitempty"`
	Provider          string          `json:"provider,omitempty"`
	PortkeyProvider   string          `json:"portkey_provider,omitempty"`
	PortkeyVirtualKey string          `json:"portkey_virtual_key,omitempty"`
}

// ImageGenerationRequest 是 /images/generations 接收的请求体。
type ImageGenerationRequest struct {
	Prompt            string `json:"prompt"`
	Model             string `json:"model"`
	Size              string `json:"size"`
	N                 *int   `json:"n"`
	Quality           string `json:"quality"`
	Style             string `json:"style"`
	Provider          string `json:"provider"`
	PortkeyProvider   string `json:"portkey_provider"`
	PortkeyVirtualKey string `json:"portkey_virtual_key"`
	GoogleProjectID   string `json:"google_project_id"`
	GoogleLocation    string `json:"google_location"`
	GoogleEndpointID  string `json:"google_endpoint_id"`
}

type upstreamImageRequest struct {
	Prompt            string `json:"prompt"`
	Model             string `json:"model"`
	Size              string `json:"size"`
	N                 int    `json:"n"`
	Quality           string `json:"quality"`
	Style             string `json:"style"`
	Provider          string `json:"provider"`
	PortkeyProvider   string `json:"portkey_provider,omitempty"`
	PortkeyVirtualKey string `json:"portkey_virtual_key,omitempty"`
	GoogleProjectID   string `json:"google_project_id,omitempty"`
	GoogleLocation    string `json:"google_location,omitempty"`
	GoogleEndpointID  string `json:"google_endpoint_id,omitempty"`
}

// ModelsQuery 是 /models 接收的查询参数，空字符串表示未提供。
type ModelsQuery struct {
	Provider           string
	Limit              string
	Offset             string
	IncludeHuggingface string
	Gateway            string
}

// ProxyService 为网关的三个接口补全默认参数后原样转发。
type ProxyService interface {
	ChatCompletions(ctx context.Context, req ChatCompletionRequest) (*gateway.Response, error)
	ImageGenerations(ctx context.Context, req ImageGenerationRequest) (*gateway.Response, error)
	ListModels(ctx context.Context, query ModelsQuery) (*gateway.Response, error)
}

type proxyService struct {
	client gateway.Client
}

// NewProxyService 创建一个新的 ProxyService 实例。
func NewProxyService(client gateway.Client) ProxyService {
	return &proxyService{client: client}
}

func (s *proxyService) ChatCompletions(ctx context.Context, req ChatCompletionRequest) (*gateway.Response, error) {
	body, err := json.Marshal(buildChatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}
	return s.client.ChatCompletions(ctx, body)
}

func (s *proxyService) ImageGenerations(ctx context.Context, req ImageGenerationRequest) (*gateway.Response, error) {
	if req.Prompt == "" {
		return nil, ErrPromptRequired
	}
	body, err := json.Marshal(buildImageRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}
	return s.client.ImageGenerations(ctx, body)
}

func (s *proxyService) ListModels(ctx context.Context, query ModelsQuery) (*gateway.Response, error) {
	return s.client.ListModels(ctx, buildModelsQuery(query))
}

func buildChatRequest(req ChatCompletionRequest) upstreamChatRequest {
	out := upstreamChatRequest{
		Model:             stringOr(req.Model, DefaultChatModel),
		MaxTokens:         DefaultChatMaxTokens,
		Temperature:       DefaultChatTemperature,
		TopP:              DefaultChatTopP,
		Provider:          req.Provider,
		PortkeyProvider:   req.PortkeyProvider,
		PortkeyVirtualKey: req.PortkeyVirtualKey,
	}
	if present(req.Messages) {
		out.Messages = req.Messages
	}
	if present(req.Tools) {
		out.Tools = req.Tools
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		out.TopP = *req.TopP
	}
	if req.FrequencyPenalty != nil {
		out.FrequencyPenalty = *req.FrequencyPenalty
	}
	if req.PresencePenalty != nil {
		out.PresencePenalty = *req.PresencePenalty
	}
	if req.Stream != nil {
		out.Stream = *req.Stream
	}
	return out
}

func buildImageRequest(req ImageGenerationRequest) upstreamImageRequest {
	n := DefaultImageCount
	if req.N != nil {
		n = *req.N
	}
	return upstreamImageRequest{
		Prompt:            req.Prompt,
		Model:             stringOr(req.Model, DefaultImageModel),
		Size:              stringOr(req.Size, DefaultImageSize),
		N:                 n,
		Quality:           stringOr(req.Quality, DefaultImageQuality),
		Style:             stringOr(req.Style, DefaultImageStyle),
		Provider:          stringOr(req.Provider, DefaultImageProvider),
		PortkeyProvider:   req.PortkeyProvider,
		PortkeyVirtualKey: req.PortkeyVirtualKey,
		GoogleProjectID:   req.GoogleProjectID,
		GoogleLocation:    req.GoogleLocation,
		GoogleEndpointID:  req.GoogleEndpointID,
	}
}

func buildModelsQuery(q ModelsQuery) url.Values {
	values := url.Values{}
	if q.Provider != "" {
		values.Set("provider", q.Provider)
	}
	values.Set("limit", stringOr(q.Limit, DefaultModelsLimit))
	values.Set("offset", stringOr(q.Offset, DefaultModelsOffset))
	// 只有精确的 "true" 才开启
	values.Set("include_huggingface", strconv.FormatBool(q.IncludeHuggingface == "true"))
	values.Set("gateway", stringOr(q.Gateway, DefaultModelsGatewayTag))
	return values
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
