package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"healthhive/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ipLimiter 单个IP的令牌桶及最近一次访问时间
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 存储每个IP的限流器，长时间不活跃的IP由 Evict 回收
type IPRateLimiter struct {
	ips map[string]*ipLimiter
	mu  *sync.Mutex
	r   rate.Limit
	b   int
	now func() time.Time
}

// NewIPRateLimiter 创建一个新的IP限流器
// r: 每秒允许的请求数 (QPS)
// b: 桶的大小 (Burst)
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*ipLimiter),
		mu:  &sync.Mutex{},
		r:   r,
		b:   b,
		now: time.Now,
	}
}

// GetLimiter 获取指定IP的限流器并刷新访问时间
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, exists := i.ips[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = entry
	}
	entry.lastSeen = i.now()
	return entry.limiter
}

// Evict 回收超过 idle 未访问的IP，返回回收数量
// 空闲超过填满令牌桶所需时间的IP，重建限流器与保留它没有区别
func (i *IPRateLimiter) Evict(idle time.Duration) int {
	cutoff := i.now().Add(-idle)

	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for ip, entry := range i.ips {
		if entry.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			n++
		}
	}
	return n
}

// Len 当前跟踪的IP数量
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

// RunEviction 按 idle 的一半周期回收空闲IP，直到 ctx 结束
func (i *IPRateLimiter) RunEviction(ctx context.Context, idle time.Duration, log *zap.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := i.Evict(idle); n > 0 {
				log.Debug("evicted idle ip limiters", zap.Int("evicted", n), zap.Int("remaining", i.Len()))
			}
		}
	}
}

// RateLimitMiddleware 按客户端IP限流
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := limiter.GetLimiter(c.ClientIP())
		if !l.Allow() {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActionCounter 固定窗口计数器，返回窗口内的累计次数
type ActionCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisActionCounter 基于 INCR + EXPIRE 的计数器，多实例共享
type RedisActionCounter struct {
	rdb *redis.Client
}

func NewRedisActionCounter(rdb *redis.Client) *RedisActionCounter {
	return &RedisActionCounter{rdb: rdb}
}

func (r *RedisActionCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// UserActionLimitMiddleware 限制单个用户每分钟的写操作次数（评论、点赞、举报）
// 需在 AuthMiddleware 之后使用；计数器故障时放行并记录日志
func UserActionLimitMiddleware(counter ActionCounter, perMinute int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok || perMinute <= 0 {
			c.Next()
			return
		}

		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:actions:%s:%d", userID, window)
		n, err := counter.Incr(c.Request.Context(), key, time.Minute)
		if err != nil {
			log.Warn("user action limiter unavailable", zap.String("user_id", userID), zap.Error(err))
			c.Next()
			return
		}
		if n > int64(perMinute) {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many actions, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserActionLimit 按配置组装用户写操作限流，未配置 Redis 时直接放行
func UserActionLimit(rdb *redis.Client, perMinute int, log *zap.Logger) gin.HandlerFunc {
	if rdb == nil || perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return UserActionLimitMiddleware(NewRedisActionCounter(rdb), perMinute, log)
}
