package assessments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func ids(c *Catalog, req Request) []string {
	var out []string
	for _, a := range c.Suggest(req) {
		out = append(out, a.ID)
	}
	return out
}

func TestSuggest(t *testing.T) {
	c := loadCatalog(t)

	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{"engineering senior", Request{JobFunction: "Engineering", ExperienceLevel: "Senior"}, []string{"cs_system_design_senior", "cs_leadership_coding"}},
		{"engineering junior", Request{JobFunction: "Backend Engineering", ExperienceLevel: "Junior"}, []string{"cs_general_coding_entry", "cs_frontend_basics"}},
		{"unknown function defaults to engineering mid", Request{JobFunction: "Sales"}, []string{"cs_fullstack_mid", "cs_algorithms_mid"}},
		{"data entry falls back to mid", Request{JobFunction: "Data Science", ExperienceLevel: "Entry"}, []string{"cs_data_analysis"}},
		{"ml senior", Request{JobFunction: "ML Research", ExperienceLevel: "Senior"}, []string{"cs_ml_engineering"}},
		{"product ignores level", Request{JobFunction: "Product", ExperienceLevel: "Senior"}, []string{"cs_product_analysis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(c, tt.req))
		})
	}
}

func TestSuggest_ReturnsCopies(t *testing.T) {
	c := loadCatalog(t)

	first := c.Suggest(Request{JobFunction: "Product"})
	first[0].Skills[0] = "changed"

	second := c.Suggest(Request{JobFunction: "Product"})
	assert.Equal(t, "SQL", second[0].Skills[0])
	assert.Equal(t, 60, second[0].Duration)
	assert.Equal(t, 3, second[0].QuestionCount)
}

func TestCategories(t *testing.T) {
	c := loadCatalog(t)

	cats := c.Categories()
	assert.Equal(t, []string{"Entry", "Mid", "Senior"}, cats["Engineering"])
	assert.Equal(t, []string{"Mid", "Senior"}, cats["Data Science"])
	assert.Equal(t, []string{"General"}, cats["Product"])
	assert.Equal(t, []string{"Portfolio Review"}, cats["Design"])
	assert.Contains(t, c.Note(), "portfolio reviews")
}
