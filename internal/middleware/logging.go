// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"net/http"
	"storyforge/pkg/log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 的请求头和响应头名称。
const RequestIDHeader = "X-Request-ID"

// RequestLogger 是一个 Gin 中间件，用于记录每个请求的状态码、耗时等信息。
// /health 和 /metrics 不记录。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set("requestID", requestID)

		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		// 只记录路由模板，/play/:token 中的令牌不进日志；未匹配路由时用原始路径
		if route := c.FullPath(); route != "" {
			path = route
		}
		statusCode := c.Writer.Status()
		fields := []interface{}{
			"statusCode", statusCode,
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"requestID", requestID,
		}
		if raw := c.Request.URL.RawQuery; raw != "" {
			fields = append(fields, "query", raw)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case statusCode >= http.StatusInternalServerError:
			log.Errorw("HTTP Request Log", fields...)
		case statusCode >= http.StatusBadRequest:
			log.Warnw("HTTP Request Log", fields...)
		default:
			log.Infow("HTTP Request Log", fields...)
		}
	}
}
