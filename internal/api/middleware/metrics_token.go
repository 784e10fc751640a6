package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MetricsTokenMiddleware 保护 /metrics。token 为空时不做校验。
// 抓取方通过 Authorization: Bearer 或 X-Metrics-Token 传递令牌。
func MetricsTokenMiddleware(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := strings.TrimSpace(c.GetHeader("X-Metrics-Token"))
		if got == "" {
			parts := strings.Fields(c.GetHeader("Authorization"))
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				got = parts[1]
			}
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
