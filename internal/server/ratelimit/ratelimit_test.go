package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a manual time source for limiter tests
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = c.now
	t.Cleanup(l.Stop)
	return l, c
}

func get(path string) Request {
	return Request{Method: "GET", Path: path, Peer: "127.0.0.1"}
}

func TestBucket_TakeAndRefill(t *testing.T) {
	start := time.Now()
	b := newBucket(10, 1.0, start)

	for i := 0; i < 10; i++ {
		ok, remaining, _, _ := b.take(start)
		if !ok {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		assert.Equal(t, 9-i, remaining)
	}

	ok, _, next, full := b.take(start)
	assert.False(t, ok, "11th request should be denied")
	assert.Equal(t, time.Second, next)
	assert.Equal(t, start.Add(10*time.Second), full)

	// One token after a second, then empty again
	ok, _, _, _ = b.take(start.Add(time.Second))
	assert.True(t, ok)
	ok, _, _, _ = b.take(start.Add(time.Second))
	assert.False(t, ok)
}

func TestBucket_NeverExceedsCapacity(t *testing.T) {
	start := time.Now()
	b := newBucket(3, 1.0, start)
	_, remaining, _, full := b.take(start.Add(time.Hour))
	assert.Equal(t, 2, remaining)
	assert.Equal(t, start.Add(time.Hour+time.Second), full)
}

func TestLimiter_Allow(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	for i := 0; i < 10; i++ {
		info := l.Allow(get("/intakes"))
		if !info.Allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	info := l.Allow(get("/intakes"))
	assert.False(t, info.Allowed)
	assert.Zero(t, info.Remaining)
	assert.InDelta(t, float64(6*time.Second), float64(info.RetryAfter), float64(time.Millisecond))

	c.advance(7 * time.Second)
	assert.True(t, l.Allow(get("/intakes")).Allowed)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})

	for i := 0; i < 100; i++ {
		info := l.Allow(get("/intakes"))
		require.True(t, info.Allowed)
		assert.Zero(t, info.Limit)
	}

	assert.False(t, l.Allow(Request{Method: "GET", Path: "/intakes", Peer: "192.168.1.1"}).Allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false})
	for i := 0; i < 100; i++ {
		info := l.Allow(get("/intakes"))
		require.True(t, info.Allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_Exempt(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(get("/health")).Allowed)
		assert.True(t, l.Allow(get("/drafts/abc/events")).Allowed)
	}
	assert.True(t, l.Allow(get("/drafts/abc")).Allowed)
	assert.False(t, l.Allow(get("/drafts/abc")).Allowed, "draft reads are metered")
}

func TestLimiter_RuleLimits(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Rules: []Rule{
			{Method: "POST", Path: "/api/loops/synthesize", Limit: 5, Window: time.Hour, Burst: 5},
		},
	})
	synth := Request{Method: "POST", Path: "/api/loops/synthesize", Peer: "127.0.0.1"}

	for i := 0; i < 5; i++ {
		info := l.Allow(synth)
		require.True(t, info.Allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
	}
	assert.False(t, l.Allow(synth).Allowed)

	info := l.Allow(get("/other"))
	assert.True(t, info.Allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLimiter_BurstSmallerThanLimit(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled: true,
		Rules:   []Rule{{Method: "POST", Path: "/burst", Limit: 10, Window: time.Minute, Burst: 5}},
	})
	req := Request{Method: "POST", Path: "/burst", Peer: "127.0.0.1"}

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow(req).Allowed, "burst request %d", i+1)
	}
	assert.False(t, l.Allow(req).Allowed)
}

func TestLimiter_PrefixRuleSharesBucket(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Rules:         []Rule{{Method: "PATCH", Path: "/intakes/", Limit: 2, Window: time.Hour}},
	})
	patch := func(id string) Request {
		return Request{Method: "PATCH", Path: "/intakes/" + id, Peer: "127.0.0.1"}
	}

	assert.True(t, l.Allow(patch("a")).Allowed)
	assert.True(t, l.Allow(patch("b")).Allowed)
	info := l.Allow(patch("c"))
	assert.False(t, info.Allowed, "a third intake id draws from the same bucket")
	assert.Equal(t, 2, info.Limit)
}

func TestLimiter_ActorScope(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled: true,
		Rules: []Rule{
			{Method: "POST", Path: "/api/interviews/", Limit: 2, Window: time.Hour, Scope: ScopeActor},
		},
	})
	ask := func(peer, actor string) Info {
		return l.Allow(Request{Method: "POST", Path: "/api/interviews/questions", Peer: peer, Actor: actor})
	}

	// The same recruiter on two addresses shares one bucket
	assert.True(t, ask("10.0.0.1", "ana@handshake.com").Allowed)
	assert.True(t, ask("10.0.0.2", "Ana@Handshake.com").Allowed)
	info := ask("10.0.0.3", "ana@handshake.com")
	assert.False(t, info.Allowed)
	assert.Equal(t, ScopeActor, info.Scope)

	// Colleagues behind the same address keep their own budget
	assert.True(t, ask("10.0.0.1", "ben@handshake.com").Allowed)

	// Anonymous callers are metered by address
	assert.True(t, ask("10.0.0.9", "").Allowed)
	assert.True(t, ask("10.0.0.9", "").Allowed)
	assert.False(t, ask("10.0.0.9", "").Allowed)
	assert.True(t, ask("10.0.0.8", "").Allowed)
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(get("/intakes")).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("Expected 100 allowed requests, got %d", allowed)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	for i := 0; i < 10; i++ {
		l.Allow(Request{Method: "GET", Path: "/intakes", Peer: fmt.Sprintf("127.0.0.%d", i+1)})
	}
	c.advance(30 * time.Minute)
	for i := 0; i < 5; i++ {
		l.Allow(Request{Method: "GET", Path: "/intakes", Peer: fmt.Sprintf("127.0.0.%d", i+1)})
	}
	c.advance(45 * time.Minute)

	assert.Equal(t, 5, l.cleanup(c.now().Add(-idleTTL)), "only recently used buckets survive")
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, CleanupInterval: time.Minute})
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l, _ := newTestLimiter(t, nil)
	info := l.Allow(get("/intakes"))
	assert.True(t, info.Allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatch(t *testing.T) {
	rules := []Rule{
		{Method: "POST", Path: "/drafts/", Limit: 1},
		{Method: "POST", Path: "/drafts/special/", Limit: 2},
		{Method: "POST", Path: "/drafts/exact", Limit: 3},
	}

	tests := []struct {
		method, path string
		want         int
	}{
		{"POST", "/drafts/k/loop", 1},
		{"POST", "/drafts/special/loop", 2},
		{"POST", "/drafts/exact", 3},
		{"GET", "/drafts/k", 0},
		{"POST", "/intakes", 0},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rule := Match(tt.method, tt.path, rules)
			if tt.want == 0 {
				assert.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			assert.Equal(t, tt.want, rule.Limit)
		})
	}
}

func TestExempt(t *testing.T) {
	assert.True(t, Exempt("GET", "/health", DefaultExempt))
	assert.True(t, Exempt("GET", "/drafts/k1/events", DefaultExempt))
	assert.False(t, Exempt("POST", "/health", DefaultExempt))
	assert.False(t, Exempt("GET", "/drafts/k1", DefaultExempt))
	assert.False(t, Exempt("GET", "/drafts/k1/events/x", DefaultExempt))
}

func TestLoadConfig(t *testing.T) {
	v := viper.New()
	v.Set(KeyDefaultLimit, 50)
	v.Set(KeyDefaultWindow, "30s")
	v.Set(KeyWhitelist, "10.0.0.1, 10.0.0.2")
	v.Set(KeyGenerationLimit, 20)

	cfg := LoadConfig(v)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)
	assert.Equal(t, DefaultExempt, cfg.Exempt)

	synth := Match("POST", "/api/loops/synthesize", cfg.Rules)
	require.NotNil(t, synth)
	assert.Equal(t, 20, synth.Limit)
}

func TestLoadConfig_Disabled(t *testing.T) {
	v := viper.New()
	v.Set(KeyEnabled, false)
	assert.False(t, LoadConfig(v).Enabled)
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules(0)

	synth := Match("POST", "/api/loops/synthesize", rules)
	require.NotNil(t, synth)
	assert.Equal(t, time.Hour, synth.Window)
	assert.Equal(t, 60, synth.Limit)
	assert.Equal(t, ScopeActor, synth.Scope)

	questions := Match("POST", "/api/interviews/questions", rules)
	require.NotNil(t, questions)
	assert.Equal(t, synth.Limit, questions.Limit)

	enrich := Match("POST", "/drafts/k/stages/s1/questions", rules)
	require.NotNil(t, enrich)
	assert.Equal(t, ScopeActor, enrich.Scope)

	edit := Match("PATCH", "/intakes/abc", rules)
	require.NotNil(t, edit)
	assert.Equal(t, ScopePeer, edit.Scope)

	assert.Nil(t, Match("GET", "/intakes", rules), "reads use the default limit")
}
