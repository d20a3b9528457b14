// Package ratelimit implements per-user, per-action admission control using
// a trailing sliding window: each past attempt ages out individually, so
// recovery is gradual rather than an all-at-once bucket reset.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stride/internal/observability"
)

// Admitter is the admission contract consumed by the services. Both the
// in-process Limiter and the RedisLimiter satisfy it.
type Admitter interface {
	Admit(ctx context.Context, userID uint, action string) Result
}

// Rule configures admission for one action kind.
type Rule struct {
	MaxActions int
	Window     time.Duration
	// Cooldown, when set, is the minimum retry-after reported on a denial.
	Cooldown time.Duration
}

// Result is the outcome of an admission check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// DefaultRules is the production rule set for quota-consuming actions.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"goal":    {MaxActions: 20, Window: time.Hour},
		"post":    {MaxActions: 30, Window: time.Hour},
		"comment": {MaxActions: 60, Window: time.Hour, Cooldown: 10 * time.Second},
		"kudoz":   {MaxActions: 10, Window: time.Minute},
		"follow":  {MaxActions: 50, Window: time.Hour},
	}
}

// Limiter is an in-process sliding-window limiter. It is constructed once
// and injected; state is a map from (user, action) to the ordered sequence
// of attempt timestamps. A single mutex makes check-then-append atomic, so
// two concurrent calls can never both take the last admission slot.
type Limiter struct {
	mu       sync.Mutex
	rules    map[string]Rule
	attempts map[string][]time.Time
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's clock. Tests use this to control time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New returns a Limiter enforcing the given rules. Actions without a rule
// are always admitted.
func New(rules map[string]Rule, opts ...Option) *Limiter {
	l := &Limiter{
		rules:    rules,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndRecord admits or denies one attempt for the given user and action.
// On admission the attempt is recorded; on denial nothing is recorded and
// RetryAfter estimates when the oldest in-window attempt ages out.
func (l *Limiter) CheckAndRecord(userID uint, action string) Result {
	rule, ok := l.rules[action]
	if !ok || rule.MaxActions <= 0 {
		return Result{Allowed: true}
	}

	key := attemptKey(userID, action)
	now := l.now()
	cutoff := now.Add(-rule.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.attempts[key]

	// Drop timestamps that have aged out of the window from the front;
	// the sequence is append-only so it stays ordered.
	idx := 0
	for idx < len(ts) && !ts[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		ts = append([]time.Time(nil), ts[idx:]...)
	}

	if len(ts) >= rule.MaxActions {
		l.attempts[key] = ts
		retry := ts[0].Add(rule.Window).Sub(now)
		if retry < rule.Cooldown {
			retry = rule.Cooldown
		}
		observability.RateLimitDenials.WithLabelValues(action).Inc()
		return Result{Allowed: false, RetryAfter: retry}
	}

	ts = append(ts, now)
	l.attempts[key] = ts
	return Result{Allowed: true, Remaining: rule.MaxActions - len(ts)}
}

// Admit implements Admitter. The in-process limiter has no use for the
// context; it exists to match the shared-store variant.
func (l *Limiter) Admit(_ context.Context, userID uint, action string) Result {
	return l.CheckAndRecord(userID, action)
}

// Rules returns the configured rule for an action, if any.
func (l *Limiter) Rules(action string) (Rule, bool) {
	rule, ok := l.rules[action]
	return rule, ok
}

func attemptKey(userID uint, action string) string {
	return fmt.Sprintf("%d:%s", userID, action)
}
