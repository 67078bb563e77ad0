// Package ratelimit meters requests with token buckets keyed by client
// address or by the person making the request.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// idleTTL is how long an untouched bucket is kept before cleanup drops it
const idleTTL = time.Hour

// bucket is a token bucket. Tokens refill continuously at rate per second up
// to capacity.
type bucket struct {
	mu       sync.Mutex
	capacity float64
	rate     float64
	tokens   float64
	last     time.Time
}

func newBucket(capacity int, rate float64, now time.Time) *bucket {
	return &bucket{capacity: float64(capacity), rate: rate, tokens: float64(capacity), last: now}
}

// take consumes a token if one is available. It returns the tokens left, the
// wait until the next token, and when the bucket will be full again.
func (b *bucket) take(now time.Time) (ok bool, remaining int, next time.Duration, full time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.last); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed.Seconds()*b.rate)
	}
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		ok = true
	}

	full = now
	if b.rate > 0 {
		if b.tokens < b.capacity {
			full = now.Add(secondsToDuration((b.capacity - b.tokens) / b.rate))
		}
		if b.tokens < 1 {
			next = secondsToDuration((1 - b.tokens) / b.rate)
		}
	}
	return ok, int(b.tokens), next, full
}

func (b *bucket) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last.Before(cutoff)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Request identifies one call to be metered.
type Request struct {
	Method string
	Path   string
	Peer   string // client address
	Actor  string // acting person, empty when anonymous
}

// Info is the outcome of Allow. Limit is zero for unmetered requests.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
	Scope      Scope
}

// Limiter holds one bucket per client and rule.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter. A nil config allows 1000 requests a minute
// per client on every route.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop(config.CleanupInterval)
	}
	return l
}

// Allow meters req and reports whether it may proceed.
func (l *Limiter) Allow(req Request) Info {
	cfg := l.config
	if !cfg.Enabled || cfg.Whitelist[req.Peer] {
		return Info{Allowed: true}
	}
	if cfg.Blacklist[req.Peer] {
		return Info{Allowed: false}
	}
	exempt := cfg.Exempt
	if exempt == nil {
		exempt = DefaultExempt
	}
	if Exempt(req.Method, req.Path, exempt) {
		return Info{Allowed: true}
	}

	rule := Match(req.Method, req.Path, cfg.Rules)
	if rule == nil {
		rule = &Rule{Method: req.Method, Path: req.Path, Limit: cfg.DefaultLimit, Window: cfg.DefaultWindow}
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Info{Allowed: true}
	}

	b := l.bucket(bucketKey(*rule, req), *rule)
	ok, remaining, next, full := b.take(l.now())
	info := Info{
		Allowed:   ok,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetTime: full,
		Scope:     rule.Scope,
	}
	if !ok {
		info.RetryAfter = next
	}
	return info
}

// bucketKey names the bucket a request draws from. Actor-scoped rules fall
// back to the address for anonymous callers.
func bucketKey(rule Rule, req Request) string {
	who := "peer:" + req.Peer
	if rule.Scope == ScopeActor && req.Actor != "" {
		who = "actor:" + strings.ToLower(req.Actor)
	}
	path := req.Path
	if rule.prefix() {
		path = rule.Path
	}
	return who + " " + req.Method + " " + path
}

func (l *Limiter) bucket(key string, rule Rule) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := rule.Burst
	if capacity <= 0 {
		capacity = rule.Limit
	}
	b := newBucket(capacity, float64(rule.Limit)/rule.Window.Seconds(), l.now())
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(l.now().Add(-idleTTL))
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets not used since cutoff and returns how many remain
func (l *Limiter) cleanup(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
		}
	}
	return len(l.buckets)
}

// Stop ends background cleanup. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
