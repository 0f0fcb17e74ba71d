package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// LimiterStore counts hits per key inside a fixed window.
type LimiterStore interface {
	Hit(ctx context.Context, key string) (count int64, resetIn time.Duration, err error)
}

type RateLimiter struct {
	store  LimiterStore
	limit  int
	window time.Duration
	log    *slog.Logger
}

func NewRateLimiter(store LimiterStore, limit int, window time.Duration, log *slog.Logger) *RateLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimiter{store: store, limit: limit, window: window, log: log}
}

// RateLimiterMiddleware enforces the limit for a derived key. Store failures
// let the request through.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, resetIn, err := rl.store.Hit(c.Request.Context(), key)

		if err != nil {
			rl.log.WarnContext(c.Request.Context(), "rate limiter store failed", "err", err, "key", key)
			c.Next()
			return
		}

		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			retryAfter := int(resetIn.Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			abortError(c, http.StatusTooManyRequests, "rate_limited", rateLimitMessage(rl.window))
			return
		}

		c.Next()
	}
}

func rateLimitMessage(window time.Duration) string {
	return "Too many requests from this IP, please try again after " + window.String()
}

// MemoryLimiterStore keeps windows in process; fine for a single replica.
type MemoryLimiterStore struct {
	mu      sync.Mutex
	window  time.Duration
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int64
	windowEnd time.Time
}

func NewMemoryLimiterStore(window time.Duration) *MemoryLimiterStore {
	return &MemoryLimiterStore{
		window:  window,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (s *MemoryLimiterStore) Hit(ctx context.Context, key string) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.clients[key]

	if !ok || now.After(b.windowEnd) {
		s.sweepLocked(now)

		b = &clientBucket{windowEnd: now.Add(s.window)}
		s.clients[key] = b
	}

	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}

// drop expired buckets so the map does not grow with every client ever seen
func (s *MemoryLimiterStore) sweepLocked(now time.Time) {
	for k, b := range s.clients {
		if now.After(b.windowEnd) {
			delete(s.clients, k)
		}
	}
}

type windowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisLimiterStore shares windows across replicas.
type RedisLimiterStore struct {
	client windowCounter
	window time.Duration
	prefix string
}

func NewRedisLimiterStore(client windowCounter, window time.Duration) *RedisLimiterStore {
	return &RedisLimiterStore{client: client, window: window, prefix: "okra:ratelimit:"}
}

func (s *RedisLimiterStore) Hit(ctx context.Context, key string) (int64, time.Duration, error) {
	return s.client.IncrWindow(ctx, s.prefix+key, s.window)
}

func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
