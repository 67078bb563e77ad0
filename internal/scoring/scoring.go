// Package scoring computes relevance scores between competency signals and catalog entries.
package scoring

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Default weights for scoring components
const (
	signalWeight   = 0.6
	functionWeight = 0.4
)

// Function alignment scores
const (
	alignmentUnspecified = 0.5 // no job function supplied
	alignmentUniversal   = 0.8 // job function supplied, candidate declares no affinity
	alignmentMatch       = 1.0
	alignmentMismatch    = 0.2
)

// jitterSpread bounds the multiplicative jitter to [1-spread, 1+spread]
const jitterSpread = 0.05

// Jitter supplies uniformly distributed values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Jitter interface {
	Float64() float64
}

type fixedJitter float64

func (f fixedJitter) Float64() float64 { return float64(f) }

// NoJitter yields a factor of exactly 1.0 so scores are deterministic
var NoJitter Jitter = fixedJitter(0.5)

type globalJitter struct{}

// Float64 uses the package-level generator, which is safe for concurrent use
func (globalJitter) Float64() float64 { return rand.Float64() }

// DefaultJitter is the jitter source used when none is injected
var DefaultJitter Jitter = globalJitter{}

type lockedJitter struct {
	mu sync.Mutex
	j  Jitter
}

func (l *lockedJitter) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.j.Float64()
}

// Locked serializes access to j so a seeded *rand.Rand can be shared across goroutines
func Locked(j Jitter) Jitter {
	if j == nil {
		return DefaultJitter
	}
	return &lockedJitter{j: j}
}

// Score returns the relevance of a catalog entry (keywords, functions) to the requested signals.
// The result is always in [0, 1]; it is 0 when either signals or keywords is empty.
func Score(signals, keywords []string, jobFunction string, templateFunctions []string, jitter Jitter) float64 {
	if len(signals) == 0 || len(keywords) == 0 {
		return 0
	}
	if jitter == nil {
		jitter = DefaultJitter
	}

	combined := signalWeight*SignalMatchRatio(signals, keywords) +
		functionWeight*FunctionAlignment(jobFunction, templateFunctions)

	factor := 1 - jitterSpread + 2*jitterSpread*jitter.Float64()
	return clamp(combined * factor)
}

// SignalMatchRatio returns the fraction of signals that match at least one keyword.
// Matching is a case-insensitive substring test in either direction.
func SignalMatchRatio(signals, keywords []string) float64 {
	if len(signals) == 0 {
		return 0
	}
	lowered := lowerAll(keywords)

	matched := 0
	for _, signal := range signals {
		s := strings.ToLower(strings.TrimSpace(signal))
		if s == "" {
			continue
		}
		for _, k := range lowered {
			if containsEither(s, k) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(signals))
}

// FunctionAlignment scores how well a job function fits a candidate's declared functions.
// An empty templateFunctions list means the candidate is universal.
func FunctionAlignment(jobFunction string, templateFunctions []string) float64 {
	if strings.TrimSpace(jobFunction) == "" {
		return alignmentUnspecified
	}
	if IsUniversal(templateFunctions) {
		return alignmentUniversal
	}
	if MatchesFunction(jobFunction, templateFunctions) {
		return alignmentMatch
	}
	return alignmentMismatch
}

// MatchesFunction reports whether jobFunction matches any function by bidirectional
// case-insensitive substring
func MatchesFunction(jobFunction string, functions []string) bool {
	jf := strings.ToLower(strings.TrimSpace(jobFunction))
	if jf == "" {
		return false
	}
	for _, f := range lowerAll(functions) {
		if containsEither(jf, f) {
			return true
		}
	}
	return false
}

// IsUniversal reports whether a function list declares no affinity
func IsUniversal(functions []string) bool {
	for _, f := range functions {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
