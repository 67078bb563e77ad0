// Package templates matches competency signals against interview template catalogs.
package templates

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/smart-intake/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Entry is one template or form offered by a catalog.
// An empty Functions list marks the entry as universal.
type Entry struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Functions []string `yaml:"functions"`
	Keywords  []string `yaml:"keywords"`
	URL       string   `yaml:"url,omitempty"`
	Notes     string   `yaml:"notes,omitempty"`
}

// Catalog is an external source of reusable interview templates or evaluation forms
type Catalog interface {
	// Source identifies the catalog on every hit it produces
	Source() types.TemplateSource
	// Entries returns candidate entries for a job; implementations may ignore the hints
	Entries(ctx context.Context, jobFunction, jobLevel string) ([]Entry, error)
}

// File models catalog.yaml
type File struct {
	Wiki  []Entry `yaml:"wiki"`
	Forms []Entry `yaml:"forms"`
}

// ParseFile decodes a catalog file and checks every entry has an id and keywords
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}
	for _, group := range [][]Entry{f.Wiki, f.Forms} {
		for i, e := range group {
			if strings.TrimSpace(e.ID) == "" {
				return nil, fmt.Errorf("template catalog entry %d has no id", i)
			}
			if len(e.Keywords) == 0 {
				return nil, fmt.Errorf("template catalog entry %s has no keywords", e.ID)
			}
		}
	}
	return &f, nil
}

// LoadFile reads the catalog from path, or the embedded default when path is empty
func LoadFile(path string) (*File, error) {
	if path == "" {
		return ParseFile(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog %s: %w", path, err)
	}
	return ParseFile(data)
}

// StaticCatalog serves a fixed list of entries
type StaticCatalog struct {
	source  types.TemplateSource
	entries []Entry
}

// NewStaticCatalog creates a catalog over entries
func NewStaticCatalog(source types.TemplateSource, entries []Entry) *StaticCatalog {
	return &StaticCatalog{source: source, entries: entries}
}

// Source implements Catalog
func (c *StaticCatalog) Source() types.TemplateSource { return c.source }

// Entries implements Catalog
func (c *StaticCatalog) Entries(_ context.Context, _, _ string) ([]Entry, error) {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out, nil
}

// NewWikiCatalog builds the wiki template catalog. Page URLs are derived from
// baseURL when an entry does not carry its own.
func NewWikiCatalog(f *File, baseURL string) *StaticCatalog {
	base := strings.TrimRight(baseURL, "/")
	entries := make([]Entry, len(f.Wiki))
	for i, e := range f.Wiki {
		if e.URL == "" && base != "" {
			e.URL = base + "/pages/" + e.ID
		}
		entries[i] = e
	}
	return NewStaticCatalog(types.SourceWikiTemplate, entries)
}

// NewFormCatalog builds the ATS feedback form catalog
func NewFormCatalog(f *File) *StaticCatalog {
	return NewStaticCatalog(types.SourceATSForm, f.Forms)
}
