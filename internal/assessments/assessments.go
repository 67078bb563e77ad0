// Package assessments suggests coding assessments for a role from an embedded catalog.
package assessments

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/jonathan/smart-intake/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogFile []byte

// Category names
const (
	CategoryEngineering = "Engineering"
	CategoryDataScience = "Data Science"
	CategoryProduct     = "Product"
)

// Level names
const (
	LevelEntry   = "Entry"
	LevelMid     = "Mid"
	LevelSenior  = "Senior"
	LevelGeneral = "General"
)

type level struct {
	Name  string                   `yaml:"name"`
	Tests []types.CodingAssessment `yaml:"tests"`
}

type category struct {
	Name   string  `yaml:"name"`
	Levels []level `yaml:"levels"`
}

// Catalog holds coding assessments by category and level
type Catalog struct {
	categories []category
	note       string
}

// Request describes the role an assessment is suggested for
type Request struct {
	JobFunction     string   `json:"jobFunction"`
	Competencies    []string `json:"competencies,omitempty"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	TechStack       []string `json:"techStack,omitempty"`
}

// Load parses the embedded catalog
func Load() (*Catalog, error) {
	var f struct {
		Categories []category `yaml:"categories"`
		Note       string     `yaml:"note"`
	}
	if err := yaml.Unmarshal(catalogFile, &f); err != nil {
		return nil, fmt.Errorf("failed to parse assessment catalog: %w", err)
	}
	return &Catalog{categories: f.Categories, note: f.Note}, nil
}

// Categories lists level names per category
func (c *Catalog) Categories() map[string][]string {
	out := make(map[string][]string, len(c.categories))
	for _, cat := range c.categories {
		levels := make([]string, 0, len(cat.Levels))
		for _, l := range cat.Levels {
			levels = append(levels, l.Name)
		}
		out[cat.Name] = levels
	}
	return out
}

// Note is shown alongside the category listing
func (c *Catalog) Note() string {
	return c.note
}

// Suggest returns assessments for the request's job function and experience level.
// Unknown levels use the category's Mid tier.
func (c *Catalog) Suggest(req Request) []types.CodingAssessment {
	cat := c.category(CategoryFor(req.JobFunction))
	if cat == nil {
		return []types.CodingAssessment{}
	}

	if len(cat.Levels) == 1 && cat.Levels[0].Name == LevelGeneral {
		return clone(cat.Levels[0].Tests)
	}

	want := LevelFor(req.ExperienceLevel)
	for _, name := range []string{want, LevelMid} {
		for _, l := range cat.Levels {
			if l.Name == name {
				return clone(l.Tests)
			}
		}
	}
	return []types.CodingAssessment{}
}

func (c *Catalog) category(name string) *category {
	for i := range c.categories {
		if c.categories[i].Name == name {
			return &c.categories[i]
		}
	}
	return nil
}

// CategoryFor maps a job function onto a catalog category, defaulting to Engineering
func CategoryFor(jobFunction string) string {
	lower := strings.ToLower(jobFunction)
	switch {
	case strings.Contains(lower, "data"), strings.Contains(lower, "ml"), strings.Contains(lower, "scientist"):
		return CategoryDataScience
	case strings.Contains(lower, "product"), strings.Contains(lower, "pm"):
		return CategoryProduct
	}
	return CategoryEngineering
}

// LevelFor maps an experience level onto a catalog level
func LevelFor(experience string) string {
	switch experience {
	case "Senior":
		return LevelSenior
	case "Entry", "Junior":
		return LevelEntry
	}
	return LevelMid
}

func clone(in []types.CodingAssessment) []types.CodingAssessment {
	out := make([]types.CodingAssessment, len(in))
	for i, a := range in {
		a.Skills = append([]string(nil), a.Skills...)
		a.Languages = append([]string(nil), a.Languages...)
		out[i] = a
	}
	return out
}
