// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"storyforge/pkg/token"
	"strings"

	"github.com/gin-gonic/gin"
)

// GameAuthMiddleware 创建一个 Gin 中间件，用于校验游戏令牌。
// 它从 Authorization 请求头中提取 token，验证通过后把 gameID 存入 Gin 的上下文。
func GameAuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Missing Authorization header")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abortUnauthorized(c, "Invalid Authorization header format")
			return
		}

		claims, err := jwtManager.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set("gameID", claims.GameID)
		c.Set("claims", claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
		"data":    nil,
	})
}
