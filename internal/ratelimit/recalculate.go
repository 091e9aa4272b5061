// Package ratelimit guards the expensive recalculation endpoint with a
// redis-backed token bucket shared across app instances. A nil limiter is
// valid and allows everything.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftbom/quotora/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyRecalculateOrg = "quotation:recalculate:org:%s"

// RecalculateLimiter bounds how often one organization can trigger a full
// quotation recompute.
type RecalculateLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewRecalculateLimiter(cfg config.Config) (*RecalculateLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if cfg.RecalcRate <= 0 || cfg.RecalcBurst <= 0 {
		return nil, errors.New("recalculate rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &RecalculateLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    cfg.RecalcRate,
		burst:   cfg.RecalcBurst,
	}, nil
}

func (l *RecalculateLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *RecalculateLimiter) Allow(ctx context.Context, orgID string) (bool, time.Duration, error) {
	if !l.Enabled() {
		return true, 0, nil
	}
	result, err := l.bucket.Allow(ctx, fmt.Sprintf(keyRecalculateOrg, strings.TrimSpace(orgID)), l.rate, l.burst)
	if err != nil {
		return false, 0, err
	}
	return result.Allowed, result.RetryAfter, nil
}
