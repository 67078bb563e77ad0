package ratelimit

import (
	"strings"
)

// Match returns the rule governing method and path, or nil when none does.
// An exact path beats any prefix, and among prefixes the longest wins.
func Match(method, path string, rules []Rule) *Rule {
	var best *Rule
	for i := range rules {
		rule := &rules[i]
		if rule.Method != method {
			continue
		}
		if rule.Path == path {
			return rule
		}
		if rule.prefix() && strings.HasPrefix(path, rule.Path) {
			if best == nil || len(rule.Path) > len(best.Path) {
				best = rule
			}
		}
	}
	return best
}

// Exempt reports whether method and path match one of the "METHOD /path"
// patterns. A "*" path segment matches any single segment.
func Exempt(method, path string, patterns []string) bool {
	for _, pattern := range patterns {
		m, p, ok := strings.Cut(pattern, " ")
		if !ok || m != method {
			continue
		}
		if segmentsMatch(p, path) {
			return true
		}
	}
	return false
}

func segmentsMatch(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}
