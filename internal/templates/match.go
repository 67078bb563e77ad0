package templates

import (
	"context"
	"log"
	"sort"

	"github.com/jonathan/smart-intake/internal/scoring"
	"github.com/jonathan/smart-intake/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	// catalogThreshold is the minimum score a hit needs to leave its catalog
	catalogThreshold = 0.4
	// aggregateThreshold is the minimum score a hit needs in the merged list
	aggregateThreshold = 0.5
	// MaxHits caps the merged list
	MaxHits = 6
)

// Matcher queries every catalog concurrently and merges the scored hits
type Matcher struct {
	catalogs []Catalog
	jitter   scoring.Jitter
}

// NewMatcher creates a matcher. A nil jitter uses scoring.DefaultJitter.
func NewMatcher(jitter scoring.Jitter, catalogs ...Catalog) *Matcher {
	if jitter == nil {
		jitter = scoring.DefaultJitter
	} else {
		jitter = scoring.Locked(jitter)
	}
	return &Matcher{catalogs: catalogs, jitter: jitter}
}

// Match returns at most MaxHits hits scoring above the aggregate threshold, best first.
// A catalog that fails contributes nothing; the others still count.
func (m *Matcher) Match(ctx context.Context, signals []string, jobFunction, jobLevel string) []types.TemplateHit {
	results := make([][]types.TemplateHit, len(m.catalogs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, catalog := range m.catalogs {
		g.Go(func() error {
			entries, err := catalog.Entries(gCtx, jobFunction, jobLevel)
			if err != nil {
				log.Printf("[templates] %s catalog unavailable: %v", catalog.Source(), err)
				return nil
			}
			results[i] = m.scoreCatalog(catalog.Source(), entries, signals, jobFunction)
			return nil
		})
	}
	_ = g.Wait()

	var merged []types.TemplateHit
	for _, hits := range results {
		for _, h := range hits {
			if h.Score > aggregateThreshold {
				merged = append(merged, h)
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > MaxHits {
		merged = merged[:MaxHits]
	}
	return merged
}

// scoreCatalog filters entries by job function and keeps those above the catalog threshold
func (m *Matcher) scoreCatalog(source types.TemplateSource, entries []Entry, signals []string, jobFunction string) []types.TemplateHit {
	var hits []types.TemplateHit
	for _, e := range entries {
		if !functionRelevant(e, jobFunction) {
			continue
		}
		score := scoring.Score(signals, e.Keywords, jobFunction, e.Functions, m.jitter)
		if score <= catalogThreshold {
			continue
		}
		hits = append(hits, types.TemplateHit{
			Source: source,
			ID:     e.ID,
			Title:  e.Title,
			Score:  score,
			URL:    e.URL,
			Notes:  e.Notes,
		})
	}
	return hits
}

func functionRelevant(e Entry, jobFunction string) bool {
	if jobFunction == "" || scoring.IsUniversal(e.Functions) {
		return true
	}
	return scoring.MatchesFunction(jobFunction, e.Functions)
}
