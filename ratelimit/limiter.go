// Package ratelimit implements per-connection sliding-window counters with
// independent category windows plus a cross-category total used for abuse
// detection.
package ratelimit

import "time"

// Category names one class of rate-limited inbound events.
type Category string

const (
	Message    Category = "message"
	Typing     Category = "typing"
	Join       Category = "join"
	CreateRoom Category = "createRoom"
)

// Reasons carried in rate-limited notifications. Abuse is the stronger
// signal: the caller must disconnect, not just drop the event.
const (
	ReasonLimited = "rate-limited"
	ReasonAbuse   = "abuse"
)

// Rule is one (max, window) pair.
type Rule struct {
	Max    int
	Window time.Duration
}

// DefaultRules covers every category the coordinator checks.
func DefaultRules() map[Category]Rule {
	return map[Category]Rule{
		Message:    {Max: 15, Window: 10 * time.Second},
		Typing:     {Max: 20, Window: 5 * time.Second},
		Join:       {Max: 5, Window: 30 * time.Second},
		CreateRoom: {Max: 3, Window: time.Minute},
	}
}

// DefaultTotal is the cross-category abuse window.
func DefaultTotal() Rule {
	return Rule{Max: 200, Window: time.Minute}
}

// Decision is the outcome of one Check call.
type Decision struct {
	Allowed bool
	Reason  string
}

type bucket map[Category][]time.Time

// Limiter tracks sliding windows per connection. It is only touched from
// the coordinator goroutine and therefore carries no locking.
type Limiter struct {
	rules map[Category]Rule
	total Rule
	conns map[string]bucket
	now   func() time.Time
}

func New(rules map[Category]Rule, total Rule) *Limiter {
	return &Limiter{
		rules: rules,
		total: total,
		conns: make(map[string]bucket),
		now:   time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Check purges expired timestamps, tests the total window first (abuse),
// then the category window, and records the event only when it is allowed.
func (l *Limiter) Check(connID string, cat Category) Decision {
	rule, ok := l.rules[cat]
	if !ok {
		return Decision{Allowed: true}
	}

	now := l.now()
	b, ok := l.conns[connID]
	if !ok {
		b = make(bucket)
		l.conns[connID] = b
	}

	totalCount := 0
	for c, stamps := range b {
		window := l.total.Window
		if r, ok := l.rules[c]; ok && r.Window > window {
			window = r.Window
		}
		b[c] = purge(stamps, now, window)
		for _, ts := range b[c] {
			if now.Sub(ts) < l.total.Window {
				totalCount++
			}
		}
	}

	if totalCount >= l.total.Max {
		return Decision{Reason: ReasonAbuse}
	}

	inWindow := 0
	for _, ts := range b[cat] {
		if now.Sub(ts) < rule.Window {
			inWindow++
		}
	}
	if inWindow >= rule.Max {
		return Decision{Reason: ReasonLimited}
	}

	b[cat] = append(b[cat], now)
	return Decision{Allowed: true}
}

// Forget drops all state for a connection. Called on disconnect.
func (l *Limiter) Forget(connID string) {
	delete(l.conns, connID)
}

func purge(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := stamps[:0]
	for _, ts := range stamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}
