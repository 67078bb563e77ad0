package orgctx

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/jonathan/smart-intake/internal/glean"
	"github.com/jonathan/smart-intake/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	people   []glean.Person
	chart    *glean.OrgChart
	err      error
	chartErr error
}

func (f *fakeSearcher) SearchPerson(context.Context, string) ([]glean.Person, error) {
	return f.people, f.err
}

func (f *fakeSearcher) GetOrgChart(context.Context, string) (*glean.OrgChart, error) {
	return f.chart, f.chartErr
}

func nameOf(entry string) string {
	name, _, _ := strings.Cut(entry, " - ")
	return name
}

func TestInferDepartment(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Senior Software Engineer", "Engineering"},
		{"Staff Product Designer", "Design"},
		{"Group Product Manager", "Product"},
		{"Analytics Lead", "Data/AI"},
		{"Growth Marketing Manager", "Marketing"},
		{"Account Executive", "Sales"},
		{"Program Coordinator", "Operations"},
		{"", "Operations"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, InferDepartment(tt.title))
		})
	}
}

func TestSyntheticDirectory_NeverCollidesWithManager(t *testing.T) {
	managers := []string{"Alex Morgan", "Sarah Connor", "Ryan Reynolds", "Mike", "jessica alba", "Pat Doe", ""}

	for seed := uint64(0); seed < 200; seed++ {
		d := NewSyntheticDirectory(rand.New(rand.NewPCG(seed, seed+1)))
		for _, manager := range managers {
			org, err := d.Lookup(context.Background(), manager, "Software Engineer")
			require.NoError(t, err)

			assert.GreaterOrEqual(t, len(org.Team), minTeam)
			assert.LessOrEqual(t, len(org.Team), maxTeam)
			assert.LessOrEqual(t, len(org.CrossFunc), maxCrossFunc)

			seen := map[string]bool{}
			for _, entry := range append(append([]string{}, org.Team...), org.CrossFunc...) {
				name := nameOf(entry)
				assert.False(t, seen[name], "duplicate %s", name)
				seen[name] = true
				if manager != "" {
					assert.NotEqual(t, firstName(manager), firstName(name))
				}
			}
		}
	}
}

func TestSyntheticDirectory_ManagerAndSource(t *testing.T) {
	d := NewSyntheticDirectory(rand.New(rand.NewPCG(1, 2)))

	org, err := d.Lookup(context.Background(), "", "UX Researcher")
	require.NoError(t, err)
	assert.Equal(t, "TBD Manager", org.Manager)
	assert.Equal(t, "Design", org.Department)
	assert.Equal(t, types.OrgSourceSynthetic, org.Source)

	org, err = d.Lookup(context.Background(), "Jordan May", "")
	require.NoError(t, err)
	assert.Equal(t, "Jordan May", org.Manager)
}

func TestSyntheticDirectory_SeededIsRepeatable(t *testing.T) {
	a, _ := NewSyntheticDirectory(rand.New(rand.NewPCG(9, 9))).Lookup(context.Background(), "Jordan May", "Designer")
	b, _ := NewSyntheticDirectory(rand.New(rand.NewPCG(9, 9))).Lookup(context.Background(), "Jordan May", "Designer")
	assert.Equal(t, a, b)
}

func TestLiveDirectory_Lookup(t *testing.T) {
	search := &fakeSearcher{
		people: []glean.Person{{ID: "p1", Name: "Dana Park", Title: "Director"}},
		chart: &glean.OrgChart{
			DirectReports:   []glean.Person{{Name: "Lee Ng", Title: "Designer"}},
			CrossFunctional: []glean.Person{{Name: "Ravi Shah", Title: "PM"}},
		},
	}

	org, err := NewLiveDirectory(search).Lookup(context.Background(), "Dana", "")
	require.NoError(t, err)
	assert.Equal(t, "Dana Park - Director", org.Manager)
	assert.Equal(t, "Unknown", org.Department)
	assert.Equal(t, []string{"Lee Ng - Designer"}, org.Team)
	assert.Equal(t, []string{"Ravi Shah - PM"}, org.CrossFunc)
	assert.Equal(t, types.OrgSourceLive, org.Source)
}

func TestLiveDirectory_Failures(t *testing.T) {
	tests := []struct {
		name    string
		search  *fakeSearcher
		wantMsg string
	}{
		{"no match", &fakeSearcher{}, "No person found"},
		{"search error", &fakeSearcher{err: errors.New("timeout")}, "timeout"},
		{
			"chart error",
			&fakeSearcher{people: []glean.Person{{ID: "p1", Name: "Dana Park"}}, chartErr: errors.New("403")},
			"Could not retrieve org chart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLiveDirectory(tt.search).Lookup(context.Background(), "Dana Park", "")
			require.Error(t, err)
			var lookupErr *LookupError
			assert.ErrorAs(t, err, &lookupErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestResolver_EmptyManager(t *testing.T) {
	r := NewResolver(nil, nil)
	_, err := r.Resolve(context.Background(), "  ", "Engineer")
	assert.ErrorIs(t, err, ErrManagerRequired)
}

func TestResolver_Unconfigured(t *testing.T) {
	r := NewResolver(nil, NewSyntheticDirectory(rand.New(rand.NewPCG(3, 4))))
	assert.False(t, r.Configured())

	org, err := r.Resolve(context.Background(), "Jordan May", "Engineer")
	require.NoError(t, err)
	assert.Equal(t, types.OrgSourceSynthetic, org.Source)
	assert.Empty(t, org.LookupError)
}

func TestResolver_FallsBackOnFailure(t *testing.T) {
	live := NewLiveDirectory(&fakeSearcher{})
	r := NewResolver(live, NewSyntheticDirectory(rand.New(rand.NewPCG(3, 4))))
	assert.True(t, r.Configured())

	org, err := r.Resolve(context.Background(), "Jordan May", "Engineer")
	require.NoError(t, err)
	assert.Equal(t, types.OrgSourceFallback, org.Source)
	assert.Contains(t, org.LookupError, "No person found")
	assert.Equal(t, "Jordan May", org.Manager)
	assert.Equal(t, "Engineering", org.Department)
}

func TestResolver_LiveSuccess(t *testing.T) {
	live := NewLiveDirectory(&fakeSearcher{
		people: []glean.Person{{ID: "p1", Name: "Dana Park", Title: "Director", Department: "Design"}},
		chart:  &glean.OrgChart{},
	})

	org, err := NewResolver(live, nil).Resolve(context.Background(), "Dana Park", "")
	require.NoError(t, err)
	assert.Equal(t, types.OrgSourceLive, org.Source)
	assert.Equal(t, "Design", org.Department)
	assert.Empty(t, org.Team)
}
