package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chatbox/backend/internal/monitoring"
	"chatbox/backend/internal/storage/redis"
)

// RateLimitByIP 基于 Redis 计数的按 IP 限流中间件。
// 多进程部署时各进程共享同一计数窗口。
func RateLimitByIP(client *redis.Client, metrics *monitoring.Metrics, log *zap.Logger, requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:ip:%s", c.ClientIP())

		count, err := client.IncrementRateLimit(c.Request.Context(), key, window)
		if err != nil {
			// 限流计数不可用时放行，不因基础设施故障拒绝请求
			log.Warn("rate limit counter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count > int64(requests) {
			if metrics != nil {
				metrics.RateLimitBlocks.Inc()
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// LocalRateLimitByIP 进程内的按 IP 限流中间件，未配置 Redis 时使用。
func LocalRateLimitByIP(metrics *monitoring.Metrics, requests int, window time.Duration) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limit := rate.Every(window / time.Duration(requests))

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(limit, requests)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			if metrics != nil {
				metrics.RateLimitBlocks.Inc()
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
