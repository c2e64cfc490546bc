package handler

import (
	"errors"
	"io"
	"net/http"
	"storyforge/internal/service"
	"storyforge/pkg/gateway"
	"storyforge/pkg/log"

	"github.com/gin-gonic/gin"
)

// ProxyHandler 把浏览器请求转发到网关。
// 它使用 {error, details} 格式的错误响应，成功时原样返回网关的响应体。
type ProxyHandler struct {
	proxyService service.ProxyService
}

// NewProxyHandler 创建一个新的 ProxyHandler。
func NewProxyHandler(proxyService service.ProxyService) *ProxyHandler {
	return &ProxyHandler{proxyService: proxyService}
}

// ChatCompletions 处理 POST /chat-completions。
func (h *ProxyHandler) ChatCompletions(c *gin.Context) {
	var req service.ChatCompletionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	resp, err := h.proxyService.ChatCompletions(c.Request.Context(), req)
	h.respond(c, resp, err, "Failed to generate response")
}

// ImageGenerations 处理 POST /images/generations。
func (h *ProxyHandler) ImageGenerations(c *gin.Context) {
	var req service.ImageGenerationRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	resp, err := h.proxyService.ImageGenerations(c.Request.Context(), req)
	h.respond(c, resp, err, "Failed to generate image")
}

// ListModels 处理 GET /models。
func (h *ProxyHandler) ListModels(c *gin.Context) {
	resp, err := h.proxyService.ListModels(c.Request.Context(), service.ModelsQuery{
		Provider:           c.Query("provider"),
		Limit:              c.Query("limit"),
		Offset:             c.Query("offset"),
		IncludeHuggingface: c.Query("include_huggingface"),
		Gateway:            c.Query("gateway"),
	})
	h.respond(c, resp, err, "Failed to fetch models")
}

func (h *ProxyHandler) respond(c *gin.Context, resp *gateway.Response, err error, upstreamMessage string) {
	if err == nil {
		c.Data(resp.StatusCode, resp.ContentType, resp.Body)
		return
	}

	var upstreamErr *gateway.UpstreamError
	switch {
	case errors.Is(err, gateway.ErrAPIKeyNotConfigured):
		log.Errorw("gateway api key is not configured", "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API key not configured"})
	case errors.Is(err, service.ErrPromptRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
	case errors.As(err, &upstreamErr):
		log.Errorw("gateway request failed", "path", c.FullPath(), "status", upstreamErr.StatusCode, "body", upstreamErr.Body)
		c.JSON(upstreamErr.StatusCode, gin.H{"error": upstreamMessage, "details": upstreamErr.Body})
	default:
		log.Error("proxy request failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
	}
}

// bindOptionalJSON 解析请求体，空请求体按 {} 处理。格式错误时写入 400 并返回 false。
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body", "details": err.Error()})
		return false
	}
	return true
}
