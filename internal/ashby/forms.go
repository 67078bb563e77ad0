package ashby

import (
	"context"
	"strings"
	"unicode"

	"github.com/jonathan/smart-intake/internal/templates"
	"github.com/jonathan/smart-intake/internal/types"
)

// formStopWords never become form keywords
var formStopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true,
	"form": true, "feedback": true, "interview": true, "scorecard": true,
}

// FormCatalog serves the live feedback forms as a template catalog. Forms
// carry no function tags so every form is universal; keywords come from
// the form title.
type FormCatalog struct {
	client *Client
}

// NewFormCatalog wraps client as a template catalog
func NewFormCatalog(client *Client) *FormCatalog {
	return &FormCatalog{client: client}
}

// Source implements templates.Catalog
func (f *FormCatalog) Source() types.TemplateSource { return types.SourceATSForm }

// Entries implements templates.Catalog
func (f *FormCatalog) Entries(ctx context.Context, _, _ string) ([]templates.Entry, error) {
	forms, err := f.client.ListFeedbackForms(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]templates.Entry, 0, len(forms))
	for _, form := range forms {
		keywords := TitleKeywords(form.Title)
		if len(keywords) == 0 {
			continue
		}
		entries = append(entries, templates.Entry{
			ID:       form.ID,
			Title:    form.Title,
			Keywords: keywords,
		})
	}
	return entries, nil
}

// TitleKeywords splits a title into distinct words of three or more letters
func TitleKeywords(title string) []string {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var out []string
	for _, w := range fields {
		lower := strings.ToLower(w)
		if len(lower) < 3 || formStopWords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, w)
	}
	return out
}
