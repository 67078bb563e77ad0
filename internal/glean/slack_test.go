package glean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertMarkdownToSlack(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "no formatting here", "no formatting here"},
		{"link", "see [the guide](https://wiki.example.com/guide)", "see <https://wiki.example.com/guide|the guide>"},
		{"bold", "this is **important**", "this is *important*"},
		{"italic", "this is *subtle*", "this is _subtle_"},
		{"bold and italic", "**Step 1** then *maybe* step 2", "*Step 1* then _maybe_ step 2"},
		{"italic does not cross lines", "a *b\nc* d", "a *b\nc* d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertMarkdownToSlack(tt.in))
		})
	}
}
