// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/entitlements/internal/core"
)

// Strategy decides whether one more request under key fits inside limit.
type Strategy interface {
	Allow(
		ctx context.Context,
		key string,
		limit redis_rate.Limit,
	) (*redis_rate.Result, error)
}

type RateLimitConfig struct {
	Name       string
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	BypassFunc func(*http.Request) bool
	OnLimited  func(http.ResponseWriter, *http.Request, *redis_rate.Result)
	Metrics    *core.Metrics
}

// RateLimiter enforces a shared Redis-backed limit. When Redis cannot
// answer, every instance degrades to its own in-process token bucket with
// the same limit instead of failing open or closed.
type RateLimiter struct {
	strategy Strategy
	fallback *localLimiter
	config   RateLimitConfig
}

// NewRateLimiter uses GCRA from redis_rate, which smooths bursts per key.
func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	return newRateLimiter(redis_rate.NewLimiter(rdb), cfg)
}

// NewFixedWindowLimiter counts requests per key in a window that starts at
// the first request and expires after Limit.Period.
func NewFixedWindowLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	return newRateLimiter(NewFixedWindow(rdb), cfg)
}

func newRateLimiter(strategy Strategy, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &RateLimiter{
		strategy: strategy,
		fallback: newLocalLimiter(),
		config:   cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.config.KeyFunc(r)
		res := rl.allow(r.Context(), key)

		setRateLimitHeaders(w, res, rl.config.Limit)

		if res.Allowed == 0 {
			rl.config.Metrics.RecordRateLimited(rl.config.Name)
			if rl.config.OnLimited != nil {
				rl.config.OnLimited(w, r, res)
				return
			}
			writeRateLimitExceeded(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) *redis_rate.Result {
	res, err := rl.strategy.Allow(ctx, key, rl.config.Limit)
	if err == nil {
		return res
	}

	slog.Warn("rate limiter store unavailable, using local limiter",
		"limiter", rl.config.Name,
		"error", err,
	)
	return rl.fallback.allow(key, rl.config.Limit)
}

type FixedWindow struct {
	rdb *redis.Client
}

func NewFixedWindow(rdb *redis.Client) *FixedWindow {
	return &FixedWindow{rdb: rdb}
}

func (f *FixedWindow) Allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	pipe := f.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, limit.Period)
	pttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fixed window %s: %w", key, err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = limit.Period
	}

	return windowResult(limit, int(incr.Val()), ttl), nil
}

func windowResult(limit redis_rate.Limit, count int, ttl time.Duration) *redis_rate.Result {
	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  max(limit.Rate-count, 0),
		RetryAfter: -1,
		ResetAfter: ttl,
	}

	if count <= limit.Rate {
		res.Allowed = 1
	} else {
		res.RetryAfter = ttl
	}

	return res
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

// KeyBySDKToken keys by a hash of the X-SDK-Token header so raw tokens
// never reach Redis. Requests without the header fall back to the IP.
func KeyBySDKToken(r *http.Request) string {
	if token := r.Header.Get(SDKTokenHeader); token != "" {
		return "ratelimit:sdk:" + core.HashToken(token)
	}
	return KeyByIP(r)
}

func NewLimit(rate, burst int, period time.Duration) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: period,
	}
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))

	windowSecs := int(limit.Period.Seconds())
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, windowSecs))
	h.Set(
		"RateLimit",
		fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())),
	)
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]any{
		"success": false,
		"error": map[string]any{
			"code": "RATE_LIMITED",
			"message": fmt.Sprintf(
				"Rate limit exceeded. Retry after %d seconds.",
				retryAfter,
			),
		},
	}

	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(response)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

type localLimiter struct {
	limiters sync.Map
}

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

func newLocalLimiter() *localLimiter {
	l := &localLimiter{}
	go l.cleanup()
	return l
}

func (l *localLimiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		l.evict(time.Now().Add(-entryTTL).Unix())
	}
}

func (l *localLimiter) evict(cutoff int64) {
	l.limiters.Range(func(key, value any) bool {
		entry, ok := value.(*limiterEntry)
		if ok && entry.lastAccess.Load() < cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	ratePerSec := float64(limit.Rate) / limit.Period.Seconds()
	burst := limit.Burst
	if burst <= 0 {
		burst = limit.Rate
	}
	now := time.Now().Unix()

	entryI, loaded := l.limiters.Load(key)
	if !loaded {
		fresh := &limiterEntry{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
		fresh.lastAccess.Store(now)
		entryI, _ = l.limiters.LoadOrStore(key, fresh)
	}

	//nolint:errcheck // only *limiterEntry is ever stored
	entry := entryI.(*limiterEntry)
	entry.lastAccess.Store(now)

	allowed := entry.limiter.Allow()
	interval := time.Duration(float64(time.Second) / ratePerSec)

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  max(int(entry.limiter.Tokens()), 0),
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}

	return res
}
