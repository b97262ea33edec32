// Package ratelimit implements the external `check_limit(model, selector,
// tokens)` collaborator spec.md §5 names as an out-of-core dependency: the
// gateway controller's RatelimitCheck state (§4.9) calls it once per
// request whenever the selected provider has a rate_limits block, whether or
// not a ratelimit-selector header is present. Two backings are provided: a
// process-local fixed-rate token bucket (local.go, the default) and a
// Redis-backed cross-process counter (redis.go) for multi-instance
// deployments.
package ratelimit

import "context"

// Limiter decides whether a request naming model and tokens may proceed
// under selector's budget. A false result with a nil error means the
// budget is exhausted (the controller responds 429 and increments
// ratelimited_rq, spec.md §4.9); a non-nil error means the limiter itself
// failed and the controller should fail open rather than block traffic on
// a broken rate limiter.
type Limiter interface {
	CheckLimit(ctx context.Context, model, selector string, tokens int) (allowed bool, err error)
}
