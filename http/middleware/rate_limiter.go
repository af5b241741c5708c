package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/leeforge/imgpress/http/responder"
	"github.com/leeforge/imgpress/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// Backend is memory (per-process token bucket) or redis (shared fixed window).
	Backend           string `mapstructure:"backend" json:"backend" yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	RequestsPerMinute int    `mapstructure:"requests-per-minute" json:"requestsPerMinute" yaml:"requests-per-minute" default:"60" validate:"min=1"`
	// Burst 突发流量支持, memory backend only
	Burst     int    `mapstructure:"burst" json:"burst" yaml:"burst" default:"10" validate:"min=0"`
	KeyHeader string `mapstructure:"key-header" json:"keyHeader" yaml:"key-header" default:"X-API-Key"`
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Backend 限流后端适配器
type Backend interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryBackend keeps one token bucket per key in process memory.
type MemoryBackend struct {
	mu       sync.Mutex
	limit    rate.Limit
	perMin   int
	burst    int
	limiters map[string]*visitor
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// idle buckets are dropped once the map grows past maxVisitors.
const (
	maxVisitors = 10000
	visitorTTL  = 10 * time.Minute
)

// NewMemoryBackend refills perMinute tokens a minute with a bucket of burst.
func NewMemoryBackend(perMinute, burst int) *MemoryBackend {
	if burst < 1 {
		burst = 1
	}
	return &MemoryBackend{
		limit:    rate.Limit(float64(perMinute) / 60),
		perMin:   perMinute,
		burst:    burst,
		limiters: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (b *MemoryBackend) Allow(_ context.Context, key string) (Decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	v, ok := b.limiters[key]
	if !ok {
		if len(b.limiters) >= maxVisitors {
			b.evict(now)
		}
		v = &visitor{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.limiters[key] = v
	}
	v.lastSeen = now

	d := Decision{Limit: b.perMin}
	if v.limiter.AllowN(now, 1) {
		d.Allowed = true
		d.Remaining = int(math.Max(0, math.Floor(v.limiter.TokensAt(now))))
		return d, nil
	}
	d.RetryAfter = time.Duration(float64(time.Second) / float64(b.limit))
	return d, nil
}

func (b *MemoryBackend) evict(now time.Time) {
	for key, v := range b.limiters {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(b.limiters, key)
		}
	}
}

// RedisBackend counts requests per key in fixed one-minute windows shared by
// every replica.
type RedisBackend struct {
	client *redis.Client
	limit  int
	prefix string
	now    func() time.Time
}

func NewRedisBackend(client *redis.Client, perMinute int) *RedisBackend {
	return &RedisBackend{
		client: client,
		limit:  perMinute,
		prefix: "imgpress:rate:",
		now:    time.Now,
	}
}

func (b *RedisBackend) Allow(ctx context.Context, key string) (Decision, error) {
	now := b.now()
	window := now.Truncate(time.Minute)
	redisKey := fmt.Sprintf("%s%s:%d", b.prefix, key, window.Unix())

	var incr *redis.IntCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, 2*time.Minute)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	d := Decision{Limit: b.limit, Remaining: b.limit - count}
	if count <= b.limit {
		d.Allowed = true
		return d, nil
	}
	d.Remaining = 0
	d.RetryAfter = window.Add(time.Minute).Sub(now)
	return d, nil
}

// RateLimiter 限流器
type RateLimiter struct {
	backend   Backend
	keyHeader string
	logger    logging.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(backend Backend, keyHeader string, logger logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RateLimiter{backend: backend, keyHeader: keyHeader, logger: logger}
}

// NewRateLimiterFromConfig picks the backend named by cfg. client may be nil
// for the memory backend.
func NewRateLimiterFromConfig(cfg RateLimitConfig, client *redis.Client, logger logging.Logger) (*RateLimiter, error) {
	var backend Backend
	switch cfg.Backend {
	case "", "memory":
		backend = NewMemoryBackend(cfg.RequestsPerMinute, cfg.Burst)
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("rate limit backend redis requires a redis client")
		}
		backend = NewRedisBackend(client, cfg.RequestsPerMinute)
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
	return NewRateLimiter(backend, cfg.KeyHeader, logger), nil
}

// Middleware 限流中间件. Backend failures let the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.clientKey(r)

		d, err := rl.backend.Allow(r.Context(), key)
		if err != nil {
			logging.WithContext(rl.logger, r.Context()).Warn("rate limit backend unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))
		if !d.Allowed {
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			responder.TooManyRequests(w, r, "", Meta(r)...)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey 获取限流 key：优先 API Key，其次客户端 IP
func (rl *RateLimiter) clientKey(r *http.Request) string {
	if rl.keyHeader != "" {
		if apiKey := r.Header.Get(rl.keyHeader); apiKey != "" {
			return "key:" + apiKey
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
