package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/mintgov/pkg/api"
)

// Budget limits calls per operator.
type Budget struct {
	RPM   int
	Burst int
}

func (b Budget) perSecond() float64 {
	if b.RPM <= 0 {
		return 1
	}
	return float64(b.RPM) / 60
}

// LimiterStore keeps per-operator token buckets.
type LimiterStore interface {
	Allow(ctx context.Context, actor string, budget Budget) (bool, error)
}

// MemoryLimiterStore keeps buckets in process.
type MemoryLimiterStore struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewMemoryLimiterStore() *MemoryLimiterStore {
	return &MemoryLimiterStore{buckets: make(map[string]*rate.Limiter)}
}

func (s *MemoryLimiterStore) Allow(_ context.Context, actor string, budget Budget) (bool, error) {
	s.mu.Lock()
	l, ok := s.buckets[actor]
	if !ok {
		l = rate.NewLimiter(rate.Limit(budget.perSecond()), budget.Burst)
		s.buckets[actor] = l
	}
	s.mu.Unlock()
	return l.Allow(), nil
}

// tokenBucketScript refills and consumes one bucket atomically.
// KEYS[1] bucket key, ARGV: rate per second, capacity, now in seconds.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(last_refill))
redis.call("EXPIRE", key, 120)
return allowed
`)

// RedisLimiterStore shares buckets between API replicas.
type RedisLimiterStore struct {
	client redis.UniversalClient
	prefix string
	clock  func() time.Time
}

func NewRedisLimiterStore(client redis.UniversalClient, prefix string) *RedisLimiterStore {
	return &RedisLimiterStore{client: client, prefix: prefix, clock: time.Now}
}

func (s *RedisLimiterStore) Allow(ctx context.Context, actor string, budget Budget) (bool, error) {
	now := float64(s.clock().UnixMicro()) / 1e6
	allowed, err := tokenBucketScript.Run(ctx, s.client, []string{s.prefix + actor},
		budget.perSecond(), budget.Burst, now).Int()
	if err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return allowed == 1, nil
}

// RateLimitMiddleware enforces per-operator budgets. Requests without a
// principal are keyed by remote address. Limiter failures let the request
// through.
func RateLimitMiddleware(store LimiterStore, budget Budget) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}
			actor := r.RemoteAddr
			if p, err := GetPrincipal(r.Context()); err == nil {
				actor = string(p.GetAddress())
			}
			allowed, err := store.Allow(r.Context(), actor, budget)
			if err != nil {
				Logger(r.Context(), slog.Default()).WarnContext(r.Context(), "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				retryAfter := 60 / max(budget.RPM, 1)
				api.WriteTooManyRequests(w, max(retryAfter, 1))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
