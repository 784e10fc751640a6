package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/errcode"
)

// RateCounter 是 *redis.Client 的计数能力，用于导出限流。
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client RateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// rateLimit 按客户端 IP 与固定时间窗计数，超过 limit 返回 429。
// counter 为 nil 或 limit<=0 时不限制；Redis 不可用时放行并记录日志。
func rateLimit(counter RateCounter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}
		bucket := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, c.ClientIP(), bucket)

		count, err := incrWithTTL(c.Request.Context(), counter, key, window)
		if err != nil {
			middleware.LoggerFromContext(c).Warn("rate limit counter unavailable", slog.Any("error", err))
			c.Next()
			return
		}
		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "too many export requests",
				"code":      errcode.RateLimited,
				"retryable": true,
			})
			return
		}
		c.Next()
	}
}
