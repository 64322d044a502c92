package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrRateLimited is returned when a request exceeds one of its rules.
var ErrRateLimited = errors.New("rate limited")

// Class groups routes that share a rule set.
type Class string

const (
	// ClassDefault applies the whole-service bounds only.
	ClassDefault Class = "default"
	// ClassLogin adds the per-minute login bound to the whole-service bounds.
	ClassLogin Class = "login"
)

// Rule is a sliding-window limit.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed    bool
	Rule       string
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limits configures the standard rule sets.
type Limits struct {
	LoginPerMinute int
	PerHour        int
	PerDay         int
}

// Limiter evaluates sliding-window rules per client key and route class.
type Limiter struct {
	store Store
	rules map[Class][]Rule
	now   func() time.Time
}

// NewLimiter builds a limiter with the login and default classes.
func NewLimiter(store Store, limits Limits) *Limiter {
	global := []Rule{
		{Name: "global-hour", Limit: limits.PerHour, Window: time.Hour},
		{Name: "global-day", Limit: limits.PerDay, Window: 24 * time.Hour},
	}
	login := append([]Rule{{Name: "login-minute", Limit: limits.LoginPerMinute, Window: time.Minute}}, global...)
	return NewLimiterWithRules(store, map[Class][]Rule{
		ClassDefault: global,
		ClassLogin:   login,
	})
}

// NewLimiterWithRules builds a limiter from explicit rule sets.
// Rules with a non-positive limit or window are ignored.
func NewLimiterWithRules(store Store, rules map[Class][]Rule) *Limiter {
	filtered := make(map[Class][]Rule, len(rules))
	for class, set := range rules {
		for _, rule := range set {
			if rule.Limit <= 0 || rule.Window <= 0 {
				continue
			}
			if rule.Name == "" {
				rule.Name = string(class)
			}
			filtered[class] = append(filtered[class], rule)
		}
	}
	return &Limiter{
		store: store,
		rules: filtered,
		now:   time.Now,
	}
}

// WithClock allows injection of a custom clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Rules returns the rules evaluated for class.
func (l *Limiter) Rules(class Class) []Rule {
	return append([]Rule(nil), l.rules[class]...)
}

// MaxWindow returns the longest window across every class.
func (l *Limiter) MaxWindow() time.Duration {
	var longest time.Duration
	for _, set := range l.rules {
		for _, rule := range set {
			if rule.Window > longest {
				longest = rule.Window
			}
		}
	}
	return longest
}

// Now returns the limiter's clock reading.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Allow evaluates every rule of class for clientKey and records the attempt only
// when all of them allow it. A denied request returns ErrRateLimited and records nothing.
// Store failures allow the request.
func (l *Limiter) Allow(ctx context.Context, clientKey string, class Class) (Decision, error) {
	rules := l.rules[class]
	if len(rules) == 0 || l.store == nil || clientKey == "" {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	results := make([]Decision, 0, len(rules))
	var denied *Decision
	for _, rule := range rules {
		key := storageKey(rule, clientKey)
		res, err := l.evaluate(ctx, rule, key, now)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"rule": rule.Name, "client": clientKey}).Warn("rate limit check failed")
			return Decision{Allowed: true}, nil
		}
		if !res.Allowed && (denied == nil || res.RetryAfter > denied.RetryAfter) {
			snapshot := res
			denied = &snapshot
		}
		results = append(results, res)
	}
	if denied != nil {
		return *denied, ErrRateLimited
	}

	for i, rule := range rules {
		if err := l.store.RecordAttempt(ctx, storageKey(rule, clientKey), now); err != nil {
			log.WithError(err).WithFields(log.Fields{"rule": rule.Name, "client": clientKey}).Warn("rate limit record failed")
			return Decision{Allowed: true}, nil
		}
		results[i].Remaining--
		if results[i].Remaining < 0 {
			results[i].Remaining = 0
		}
	}

	best := results[0]
	for _, res := range results[1:] {
		if res.Remaining < best.Remaining || (res.Remaining == best.Remaining && res.Reset.Before(best.Reset)) {
			best = res
		}
	}
	return best, nil
}

func (l *Limiter) evaluate(ctx context.Context, rule Rule, key string, now time.Time) (Decision, error) {
	if err := l.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return Decision{}, err
	}
	count, err := l.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return Decision{}, err
	}
	oldest, hasAttempts, err := l.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return Decision{}, err
	}

	res := Decision{
		Allowed:   true,
		Rule:      rule.Name,
		Limit:     rule.Limit,
		Remaining: rule.Limit - count,
		Reset:     now.Add(rule.Window),
	}
	if hasAttempts {
		res.Reset = oldest.Add(rule.Window)
	}
	if count >= rule.Limit {
		res.Allowed = false
		res.Remaining = 0
		res.RetryAfter = res.Reset.Sub(now)
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res, nil
}

func storageKey(rule Rule, clientKey string) string {
	return fmt.Sprintf("%s:%s", rule.Name, clientKey)
}
