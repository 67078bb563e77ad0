package orgctx

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/smart-intake/internal/types"
)

// placeholderManager is used when no manager name is supplied
const placeholderManager = "TBD Manager"

const (
	minTeam      = 2
	maxTeam      = 4
	maxCrossFunc = 2
)

var namePool = []string{
	"Alex Chen", "Sarah Kim", "Mike Rodriguez", "Emily Watson", "David Park",
	"Maya Patel", "Chris Johnson", "Sam Lee", "Jessica Liu", "Ryan Torres",
	"Ashley Brown", "Kevin Zhang", "Rachel Smith", "Eric Turcotte",
	"Amanda Singh", "Jason Lee", "Maria Gonzalez", "Tom Wilson", "Lydia Nash",
	"Ryan Nguyen", "Anna Chen", "Mike Taylor", "Sofia Patel", "James Kim",
	"Lisa Chang", "Carlos Mendez", "Rachel Green", "Tony Adams", "Jessica Park",
}

var titlePool = []string{
	"Senior Manager", "Staff Manager", "Principal", "Director", "Senior Director",
	"Senior Associate", "Staff Associate", "Lead", "Senior Lead", "Principal Lead",
}

var crossFuncRoles = []string{
	"Product Manager", "Engineering Lead", "Design Lead", "Data Analyst", "Marketing Partner",
}

// departmentBuckets are checked in order; the first bucket with a matching keyword wins
var departmentBuckets = []struct {
	department string
	keywords   []string
}{
	{"Engineering", []string{"engineer", "developer", "technical"}},
	{"Design", []string{"design", "ux", "ui"}},
	{"Product", []string{"product", "pm"}},
	{"Data/AI", []string{"data", "ml", "analytics", "ai"}},
	{"Marketing", []string{"marketing", "growth"}},
	{"Sales", []string{"sales", "account"}},
}

const defaultDepartment = "Operations"

// InferDepartment maps a job title onto a department by keyword
func InferDepartment(jobTitle string) string {
	lower := strings.ToLower(jobTitle)
	if lower == "" {
		return defaultDepartment
	}
	for _, bucket := range departmentBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.department
			}
		}
	}
	return defaultDepartment
}

// SyntheticDirectory generates a plausible org when no live directory is available
type SyntheticDirectory struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticDirectory creates a generator. A nil rng is seeded from the clock.
func NewSyntheticDirectory(rng *rand.Rand) *SyntheticDirectory {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &SyntheticDirectory{rng: rng}
}

// Lookup never fails
func (d *SyntheticDirectory) Lookup(_ context.Context, managerName, jobTitleHint string) (*types.OrgContext, error) {
	manager := strings.TrimSpace(managerName)
	if manager == "" {
		manager = placeholderManager
	}
	managerFirst := firstName(manager)

	candidates := make([]string, 0, len(namePool))
	for _, name := range namePool {
		if firstName(name) != managerFirst {
			candidates = append(candidates, name)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	teamSize := min(minTeam+d.rng.IntN(maxTeam-minTeam+1), len(candidates))
	team := make([]string, 0, teamSize)
	for _, name := range candidates[:teamSize] {
		team = append(team, formatPerson(name, titlePool[d.rng.IntN(len(titlePool))]))
	}

	rest := candidates[teamSize:]
	crossSize := min(d.rng.IntN(maxCrossFunc+1), len(rest))
	crossFunc := make([]string, 0, crossSize)
	for _, name := range rest[:crossSize] {
		crossFunc = append(crossFunc, formatPerson(name, crossFuncRoles[d.rng.IntN(len(crossFuncRoles))]))
	}

	return &types.OrgContext{
		Manager:    manager,
		Department: InferDepartment(jobTitleHint),
		Team:       team,
		CrossFunc:  crossFunc,
		Source:     types.OrgSourceSynthetic,
	}, nil
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
