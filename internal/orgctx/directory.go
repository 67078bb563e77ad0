// Package orgctx resolves a hiring manager's name into organizational context:
// department, team roster and cross-functional stakeholders.
package orgctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/smart-intake/internal/glean"
	"github.com/jonathan/smart-intake/internal/types"
)

// PersonDirectory looks up the org around a manager
type PersonDirectory interface {
	Lookup(ctx context.Context, managerName, jobTitleHint string) (*types.OrgContext, error)
}

// LookupError reports that the live directory could not produce an org context
type LookupError struct {
	Manager string
	Message string
	Cause   error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// PeopleSearcher is the subset of the search client the live directory needs
type PeopleSearcher interface {
	SearchPerson(ctx context.Context, name string) ([]glean.Person, error)
	GetOrgChart(ctx context.Context, personID string) (*glean.OrgChart, error)
}

// LiveDirectory reads the org chart from the enterprise search service
type LiveDirectory struct {
	search PeopleSearcher
}

// NewLiveDirectory creates a directory backed by search
func NewLiveDirectory(search PeopleSearcher) *LiveDirectory {
	return &LiveDirectory{search: search}
}

// Lookup finds the best match for managerName and formats their org chart.
// The job title hint is not used by the live lookup.
func (d *LiveDirectory) Lookup(ctx context.Context, managerName, _ string) (*types.OrgContext, error) {
	people, err := d.search.SearchPerson(ctx, managerName)
	if err != nil {
		return nil, &LookupError{Manager: managerName, Message: fmt.Sprintf("search for %q failed", managerName), Cause: err}
	}
	if len(people) == 0 {
		return nil, &LookupError{Manager: managerName, Message: fmt.Sprintf("No person found with name %q", managerName)}
	}

	manager := people[0]
	chart, err := d.search.GetOrgChart(ctx, manager.ID)
	if err != nil || chart == nil {
		return nil, &LookupError{Manager: managerName, Message: fmt.Sprintf("Could not retrieve org chart for %s", managerName), Cause: err}
	}

	department := manager.Department
	if strings.TrimSpace(department) == "" {
		department = "Unknown"
	}

	return &types.OrgContext{
		Manager:    formatPerson(manager.Name, manager.Title),
		Department: department,
		Team:       formatPeople(chart.DirectReports),
		CrossFunc:  formatPeople(chart.CrossFunctional),
		Source:     types.OrgSourceLive,
	}, nil
}

func formatPeople(people []glean.Person) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		out = append(out, formatPerson(p.Name, p.Title))
	}
	return out
}

func formatPerson(name, title string) string {
	return name + " - " + title
}
