package templates

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/jonathan/smart-intake/internal/scoring"
	"github.com/jonathan/smart-intake/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCatalog struct{}

func (failingCatalog) Source() types.TemplateSource { return types.SourceATSForm }

func (failingCatalog) Entries(context.Context, string, string) ([]Entry, error) {
	return nil, errors.New("ats unreachable")
}

func defaultCatalogs(t *testing.T) (*StaticCatalog, *StaticCatalog) {
	t.Helper()
	f, err := LoadFile("")
	require.NoError(t, err)
	return NewWikiCatalog(f, "https://wiki.example.com/"), NewFormCatalog(f)
}

func TestLoadFile_Default(t *testing.T) {
	f, err := LoadFile("")
	require.NoError(t, err)
	assert.Len(t, f.Wiki, 5)
	assert.Len(t, f.Forms, 6)
}

func TestParseFile_RejectsEntryWithoutKeywords(t *testing.T) {
	_, err := ParseFile([]byte("wiki:\n  - id: TPL-X\n    title: X\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TPL-X")
}

func TestNewWikiCatalog_DerivesURL(t *testing.T) {
	wiki, _ := defaultCatalogs(t)
	entries, err := wiki.Entries(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://wiki.example.com/pages/TPL-UX-LEVEL3", entries[0].URL)
}

func TestMatch_ResultInvariants(t *testing.T) {
	wiki, forms := defaultCatalogs(t)
	rng := rand.New(rand.NewPCG(7, 11))
	m := NewMatcher(rng, wiki, forms)

	inputs := []struct {
		signals  []string
		function string
	}{
		{[]string{"Design", "Craft", "Communication", "Leadership"}, "Product Design"},
		{[]string{"System Design", "Code", "Execution"}, "Engineering"},
		{[]string{"Data", "Statistics", "Collaboration"}, ""},
		{[]string{"Leadership", "Management", "Communication", "Execution", "Results"}, "Sales"},
	}

	for _, in := range inputs {
		hits := m.Match(context.Background(), in.signals, in.function, "")
		assert.LessOrEqual(t, len(hits), MaxHits)
		for i, h := range hits {
			assert.Greater(t, h.Score, 0.5)
			assert.LessOrEqual(t, h.Score, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
			}
		}
	}
}

func TestMatch_FiltersByFunction(t *testing.T) {
	wiki, forms := defaultCatalogs(t)
	m := NewMatcher(scoring.NoJitter, wiki, forms)

	hits := m.Match(context.Background(), []string{"Design", "Portfolio", "Code"}, "Design", "")
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.NotEqual(t, "TPL-ENG-SYSTEM", h.ID)
		assert.NotEqual(t, "FORM-ENG-PROBLEM", h.ID)
	}
	assert.Equal(t, "TPL-UX-LEVEL3", hits[0].ID)
	assert.Equal(t, types.SourceWikiTemplate, hits[0].Source)
}

func TestMatch_OneCatalogFailing(t *testing.T) {
	wiki, _ := defaultCatalogs(t)
	signals := []string{"Leadership", "Communication", "Design"}

	alone := NewMatcher(scoring.NoJitter, wiki).Match(context.Background(), signals, "Design", "")
	degraded := NewMatcher(scoring.NoJitter, wiki, failingCatalog{}).Match(context.Background(), signals, "Design", "")

	require.NotEmpty(t, alone)
	assert.Equal(t, alone, degraded)
}

func TestMatch_AllCatalogsFailing(t *testing.T) {
	m := NewMatcher(scoring.NoJitter, failingCatalog{}, failingCatalog{})
	assert.Empty(t, m.Match(context.Background(), []string{"Leadership"}, "", ""))
}

func TestMatch_TruncatesToMax(t *testing.T) {
	var entries []Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, Entry{ID: string(rune('A' + i)), Keywords: []string{"Leadership"}})
	}
	m := NewMatcher(scoring.NoJitter, NewStaticCatalog(types.SourceWikiTemplate, entries))

	hits := m.Match(context.Background(), []string{"Leadership"}, "", "")
	assert.Len(t, hits, MaxHits)
}

func TestMatch_EmptySignals(t *testing.T) {
	wiki, forms := defaultCatalogs(t)
	m := NewMatcher(scoring.NoJitter, wiki, forms)
	assert.Empty(t, m.Match(context.Background(), nil, "Engineering", ""))
}
