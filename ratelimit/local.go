package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/archgw/llmgateway/config"
)

// LocalLimiter is the default, process-local Limiter: one fixed-rate token
// bucket per (model, selector) pair, seeded from the `ratelimits[]` config
// table. Each bucket refills at the configured per-second budget with a
// burst of that budget plus one; the rate is not adjusted at runtime.
// Grounded on the teacher's `features/model/middleware.AdaptiveRateLimiter`,
// adapted here to a per-selector map since the gateway multiplexes
// many callers sharing one provider budget rather than wrapping a single
// upstream client.
type LocalLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	budgets  map[string]float64 // model -> configured tokens-per-second budget
}

type bucket struct {
	limiter *rate.Limiter
}

// NewLocalLimiter seeds one bucket config per `ratelimits[]` entry. Models
// with no configured entry are unlimited (CheckLimit always allows them),
// matching spec.md §6 "ratelimits[] per-model".
func NewLocalLimiter(limits []config.Ratelimit) *LocalLimiter {
	budgets := make(map[string]float64, len(limits))
	for _, l := range limits {
		budgets[l.Model] = perSecondRate(l)
	}
	return &LocalLimiter{buckets: map[string]*bucket{}, budgets: budgets}
}

func perSecondRate(l config.Ratelimit) float64 {
	switch l.Unit {
	case config.UnitHour:
		return float64(l.Tokens) / 3600
	case config.UnitMinute:
		return float64(l.Tokens) / 60
	default:
		return float64(l.Tokens)
	}
}

// CheckLimit consumes tokens from the (model, selector) bucket with
// rate.Limiter.AllowN, which never blocks: it reports false immediately
// instead of waiting, since the gateway's
// contract is "429 now", not "block the HTTP response until capacity
// frees up" (spec.md §4.9 "on exceed → HTTP 429").
func (l *LocalLimiter) CheckLimit(ctx context.Context, model, selector string, tokens int) (bool, error) {
	budget, limited := l.budgets[model]
	if !limited {
		return true, nil
	}

	key := model + "|" + selector
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(budget), int(budget)+1)}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	_ = ctx
	return b.limiter.AllowN(time.Now(), tokens), nil
}
