package middleware

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"todo_api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

var tokenBucket = redis.NewScript(luaScript)

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Capacity   int     // Maximum number of tokens (max requests)
	RefillRate float64 // Tokens refilled per second
}

// DefaultRateLimiterConfig allows 10 requests per second with a burst of 20
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   20,
		RefillRate: 10.0,
	}
}

// orDefault replaces a missing or non-positive configuration, which would
// otherwise block every request or divide by zero in Retry-After.
func (cfg *RateLimiterConfig) orDefault() *RateLimiterConfig {
	if cfg == nil || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return DefaultRateLimiterConfig()
	}
	return cfg
}

// StrictRateLimiter is meant for credential endpoints (register, login).
// Burst: 5 requests, sustained: 1 request every 2 seconds.
func StrictRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   5,
		RefillRate: 0.5,
	}
}

func CustomRateLimiter(capacity int, refillRate float64) *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   capacity,
		RefillRate: refillRate,
	}
}

// KeyFunc returns the bucket key for a request, or ok=false when the request
// cannot be attributed.
type KeyFunc func(c *gin.Context) (key string, ok bool)

// UserKey buckets authenticated requests per user. It must run after AuthMiddleware.
func UserKey(c *gin.Context) (string, bool) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return "", false
	}
	return UserRateLimiterKey(userID), true
}

// ClientIPKey buckets requests per client address
func ClientIPKey(c *gin.Context) (string, bool) {
	return fmt.Sprintf("rate_limiter:ip:%s", c.ClientIP()), true
}

// RateLimiterMiddleware implements a token bucket in Redis via a Lua script.
// Redis failures fail open.
func RateLimiterMiddleware(redisClient *redis.Client, config *RateLimiterConfig, keyFn KeyFunc) gin.HandlerFunc {
	config = config.orDefault()

	return func(c *gin.Context) {
		key, ok := keyFn(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized - user_id not found in context",
			})
			return
		}

		now := float64(time.Now().UnixMicro()) / 1e6

		allowed, err := tokenBucket.Run(c.Request.Context(), redisClient, []string{key},
			config.Capacity,
			config.RefillRate,
			now,
		).Int64()
		if err != nil {
			logrus.WithError(err).WithField("key", key).Error("Failed to execute rate limiter script")
			c.Next()
			return
		}

		if allowed == 0 {
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter(config.RefillRate)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": fmt.Sprintf("%.1f seconds", 1.0/config.RefillRate),
			})
			return
		}

		c.Next()
	}
}

// UserRateLimiterKey builds the bucket key for a user
func UserRateLimiterKey(userID int) string {
	return fmt.Sprintf("rate_limiter:user:%d", userID)
}

func retryAfter(refillRate float64) float64 {
	seconds := 1.0 / refillRate
	if seconds < 1 {
		return 1
	}
	return seconds
}
