package handler

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"a2ui-backend/pkg/logger"
)

const bucketIdleTTL = 10 * time.Minute

// tokenBucket 令牌桶：容量为每分钟配额，按秒匀速补充
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter 按客户端 IP 分桶的限流器
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*tokenBucket
	maxTokens  float64
	refillRate float64 // 每秒补充的令牌数
	lastSweep  time.Time
	now        func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		buckets:    make(map[string]*tokenBucket),
		maxTokens:  float64(perMinute),
		refillRate: float64(perMinute) / 60.0,
		now:        time.Now,
	}
}

// Allow 消耗一个令牌；失败时返回需要等待的时长
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	b, ok := r.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: r.maxTokens, lastRefill: now}
		r.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(r.maxTokens, b.tokens+elapsed*r.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / r.refillRate * float64(time.Second))
	return false, wait
}

// sweep 定期清理长时间空闲的桶
func (r *RateLimiter) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < bucketIdleTTL {
		return
	}
	r.lastSweep = now
	for key, b := range r.buckets {
		if now.Sub(b.lastRefill) > bucketIdleTTL {
			delete(r.buckets, key)
		}
	}
}

// Middleware limiter 为 nil 时不限流
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		ok, wait := r.Allow(c.ClientIP())
		if !ok {
			logger.Warnf("客户端 %s 触发限流 %s", c.ClientIP(), c.FullPath())
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
