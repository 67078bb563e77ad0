package ratelimit

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Scope decides whose bucket a request draws from.
type Scope int

const (
	// ScopePeer keys buckets on the client address
	ScopePeer Scope = iota
	// ScopeActor keys buckets on the person making the request. Anonymous
	// requests fall back to the client address.
	ScopeActor
)

func (s Scope) String() string {
	if s == ScopeActor {
		return "actor"
	}
	return "peer"
}

// Rule limits one route. A Path ending in "/" covers every path below it,
// and all of those paths share a single bucket per client.
type Rule struct {
	Method string
	Path   string
	Limit  int           // requests per Window
	Window time.Duration
	Burst  int // bucket capacity, Limit when 0
	Scope  Scope
}

func (r Rule) prefix() bool {
	return strings.HasSuffix(r.Path, "/")
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	Rules           []Rule
	// Exempt lists "METHOD /path" routes that are never limited. A nil
	// Exempt means DefaultExempt.
	Exempt []string
}

// DefaultExempt keeps the health check and open draft event streams out of
// every bucket.
var DefaultExempt = []string{"GET /health", "GET /drafts/*/events"}

// Keys read by LoadConfig. Each is also read from the upper-cased environment variable.
const (
	KeyEnabled         = "rate_limit_enabled"
	KeyDefaultLimit    = "rate_limit_default_limit"
	KeyDefaultWindow   = "rate_limit_default_window"
	KeyCleanupInterval = "rate_limit_cleanup_interval"
	KeyWhitelist       = "rate_limit_whitelist"
	KeyBlacklist       = "rate_limit_blacklist"
	KeyGenerationLimit = "rate_limit_generation_per_hour"
)

// SetDefaults registers the rate limit keys and their defaults on v.
func SetDefaults(v *viper.Viper) {
	for _, key := range []string{KeyEnabled, KeyDefaultLimit, KeyDefaultWindow, KeyCleanupInterval,
		KeyWhitelist, KeyBlacklist, KeyGenerationLimit} {
		_ = v.BindEnv(key)
	}
	v.SetDefault(KeyEnabled, true)
	v.SetDefault(KeyDefaultLimit, 1000)
	v.SetDefault(KeyDefaultWindow, time.Minute)
	v.SetDefault(KeyCleanupInterval, 5*time.Minute)
	v.SetDefault(KeyWhitelist, "")
	v.SetDefault(KeyBlacklist, "")
	v.SetDefault(KeyGenerationLimit, 60)
}

// LoadConfig loads rate limiting configuration from v. A nil v reads the
// environment only.
func LoadConfig(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
		v.AutomaticEnv()
	}
	SetDefaults(v)

	if !v.GetBool(KeyEnabled) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    v.GetInt(KeyDefaultLimit),
		DefaultWindow:   v.GetDuration(KeyDefaultWindow),
		CleanupInterval: v.GetDuration(KeyCleanupInterval),
		Whitelist:       splitList(v.GetString(KeyWhitelist)),
		Blacklist:       splitList(v.GetString(KeyBlacklist)),
		Rules:           DefaultRules(v.GetInt(KeyGenerationLimit)),
		Exempt:          DefaultExempt,
	}
}

// DefaultRules returns the intake service limits. Text generation is metered
// per person at generationPerHour; writes are metered per address.
func DefaultRules(generationPerHour int) []Rule {
	if generationPerHour <= 0 {
		generationPerHour = 60
	}
	generation := func(path string) Rule {
		return Rule{Method: "POST", Path: path, Limit: generationPerHour, Window: time.Hour, Burst: 10, Scope: ScopeActor}
	}
	write := func(method, path string) Rule {
		return Rule{Method: method, Path: path, Limit: 300, Window: time.Minute, Burst: 30, Scope: ScopePeer}
	}

	return []Rule{
		generation("/api/jd/analyze"),
		generation("/api/jd/enhance"),
		generation("/api/jd/assist"),
		generation("/api/loops/synthesize"),
		generation("/api/interviews/"),
		generation("/api/org/ask"),
		generation("/api/uploads/process"),
		// stage enrichment and loop synthesis on drafts
		{Method: "POST", Path: "/drafts/", Limit: 2 * generationPerHour, Window: time.Hour, Burst: 20, Scope: ScopeActor},

		{Method: "POST", Path: "/api/ats/", Limit: 30, Window: time.Minute, Burst: 5, Scope: ScopeActor},
		{Method: "POST", Path: "/api/org/resolve", Limit: 60, Window: time.Minute, Burst: 10, Scope: ScopePeer},

		// autosave PATCHes arrive every few seconds while editing
		write("POST", "/intakes"),
		write("POST", "/intakes/"),
		write("PATCH", "/intakes/"),
		write("DELETE", "/intakes/"),
		write("PATCH", "/drafts/"),
	}
}

// splitList parses a comma-separated list into a set.
func splitList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result[item] = true
		}
	}
	return result
}
