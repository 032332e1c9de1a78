package ratelimit

import (
	"context"
	"time"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/dependency"
)

// Policy is one throttling bucket: a window and the max requests allowed
// inside it.
type Policy struct {
	Name   string
	Window time.Duration
	Max    int
}

var (
	PolicySubmission   = Policy{Name: "submission", Window: 15 * time.Minute, Max: 3}
	PolicyVerification = Policy{Name: "verification", Window: time.Hour, Max: 10}
	PolicyAdmin        = Policy{Name: "admin", Window: time.Minute, Max: 100}
	PolicyGeneral      = Policy{Name: "general", Window: time.Minute, Max: 30}
)

// Result carries the limiter decision plus the header values the caller
// must attach to every response that consulted it.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter throttles requests per (identifier, policy) pair on top of a
// pluggable counter backend.
type Limiter struct {
	counters dependency.CounterStore
}

func New(counters dependency.CounterStore) *Limiter {
	return &Limiter{counters: counters}
}

// Check consumes one request slot for the identifier under the policy.
// Backend errors fail open: the request is allowed and the error logged,
// so a counter store outage can't take the signup flow down with it.
func (l *Limiter) Check(ctx context.Context, identifier string, p Policy) Result {
	key := "rl:" + p.Name + ":" + identifier

	count, ttl, err := l.counters.Incr(ctx, key, p.Window)
	if err != nil {
		slog.Default().ErrorContext(ctx, "rate limit backend error, allowing request",
			slog.String("policy", p.Name),
			slog.String("err", err.Error()),
		)
		return Result{Allowed: true, Limit: p.Max, Remaining: p.Max, ResetAt: time.Now().Add(p.Window)}
	}

	remaining := p.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(p.Max),
		Limit:     p.Max,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}
}
