// Package telemetry provides the structured-logging, metrics, and tracing
// interfaces the gateway controller and SSE pipeline log/instrument
// through. Grounded on the teacher's `runtime/agents/telemetry` interface
// split plus its `runtime/agent/telemetry/clue.go` concrete implementation;
// adapted here for gateway-specific metric names (`ratelimited_rq`, TTFT,
// tokens_per_second) instead of agent-runtime tool telemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the structured logger every gateway package logs through.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes the counters and histograms the gateway controller
// records (spec.md §4.9): `ratelimited_rq` at RatelimitCheck, and TTFT,
// tokens_per_second and time_per_output_token_ms at Complete.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer starts and looks up spans. The gateway controller holds a Tracer
// but starts no spans itself.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span is an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// RequestMetrics is the set of measurements the controller accumulates over
// one request's lifetime and records at Complete, per spec.md §4.9.
type RequestMetrics struct {
	TTFT                time.Duration
	OutputSequenceLength int
	LatencyMs            int64
	CompletionTokens     int
}

// TimePerOutputToken computes `latency_ms / completion_tokens`, per
// spec.md §4.9 Complete. Returns 0 when CompletionTokens is 0 to avoid a
// division by zero rather than reporting an unbounded value.
func (m RequestMetrics) TimePerOutputToken() float64 {
	if m.CompletionTokens == 0 {
		return 0
	}
	return float64(m.LatencyMs) / float64(m.CompletionTokens)
}

// TokensPerSecond computes `1000 / tpot`, per spec.md §4.9 Complete.
func (m RequestMetrics) TokensPerSecond() float64 {
	tpot := m.TimePerOutputToken()
	if tpot == 0 {
		return 0
	}
	return 1000 / tpot
}
