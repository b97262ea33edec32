package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archgw/llmgateway/config"
)

// RedisLimiter is the cross-process Limiter backing: a fixed-window token
// counter per (model, selector, window) key, incremented with INCRBY and
// given a window-length TTL on every write. Grounded on taipm-go-deep-agent's
// `agent/cache_redis.go` connection-construction and options pattern
// (single-node vs cluster client selection, ping-on-construct with a
// troubleshooting-oriented error).
type RedisLimiter struct {
	client  redis.UniversalClient
	prefix  string
	budgets map[string]config.Ratelimit
}

// RedisOptions mirrors cache_redis.go's RedisCacheOptions shape, narrowed
// to what a rate limiter needs.
type RedisOptions struct {
	Addrs     []string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisLimiter connects to Redis (a single node, or a cluster client
// when more than one address is given) and verifies the connection with a
// Ping, matching cache_redis.go's fail-fast-with-actionable-error
// construction style.
func NewRedisLimiter(ctx context.Context, opts RedisOptions, limits []config.Ratelimit) (*RedisLimiter, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "archgw:ratelimit:"
	}

	var client redis.UniversalClient
	if len(opts.Addrs) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    opts.Addrs,
			Password: opts.Password,
		})
	} else {
		addr := "localhost:6379"
		if len(opts.Addrs) == 1 {
			addr = opts.Addrs[0]
		}
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit: connect to redis at %v: %w (fix: verify REDIS_ADDR / network policy, or fall back to ratelimit.NewLocalLimiter)", opts.Addrs, err)
	}

	budgets := make(map[string]config.Ratelimit, len(limits))
	for _, l := range limits {
		budgets[l.Model] = l
	}

	return &RedisLimiter{client: client, prefix: opts.KeyPrefix, budgets: budgets}, nil
}

// CheckLimit increments the current window's counter by tokens and compares
// against the configured budget, resetting the key's TTL to the window length
// on every write so the counter expires after its window.
func (l *RedisLimiter) CheckLimit(ctx context.Context, model, selector string, tokens int) (bool, error) {
	budget, limited := l.budgets[model]
	if !limited {
		return true, nil
	}

	window, windowKey := currentWindow(budget.Unit)
	key := fmt.Sprintf("%s%s:%s:%s", l.prefix, model, selector, windowKey)

	pipe := l.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}

	return incr.Val() <= int64(budget.Tokens), nil
}

func currentWindow(unit config.RatelimitUnit) (time.Duration, string) {
	now := time.Now().UTC()
	switch unit {
	case config.UnitHour:
		return time.Hour, now.Format("2006010215")
	case config.UnitSecond:
		return time.Second, now.Format("20060102150405")
	default:
		return time.Minute, now.Format("200601021504")
	}
}

// Close releases the underlying Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
