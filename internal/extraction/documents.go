package extraction

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/prompts"
	"github.com/jonathan/smart-intake/internal/types"
)

// Document is the extracted text of one uploaded file
type Document struct {
	FileName string `json:"fileName"`
	Text     string `json:"text"`
}

// Brief is the hiring brief read out of uploaded documents. The requirement
// fields sit at the top level of its JSON form.
type Brief struct {
	JobTitle       string `json:"jobTitle,omitempty"`
	Department     string `json:"department,omitempty"`
	HiringManager  string `json:"hiringManager,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
	types.ExtractedRequirements
}

// DocumentsResult is the brief plus which files were read
type DocumentsResult struct {
	Brief          Brief    `json:"data"`
	FilesProcessed []string `json:"filesProcessed"`
	Fallback       bool     `json:"fallback"`
}

// CombineDocuments joins documents under a header line naming each file
func CombineDocuments(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, fmt.Sprintf("--- %s ---\n%s", d.FileName, d.Text))
	}
	return strings.Join(parts, "\n\n")
}

// ProcessDocuments reads a hiring brief out of one or more documents. When the
// output cannot be parsed the combined text becomes the job description.
func (e *Extractor) ProcessDocuments(ctx context.Context, docs []Document) (*DocumentsResult, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	combined := CombineDocuments(docs)
	files := make([]string, 0, len(docs))
	for _, d := range docs {
		files = append(files, d.FileName)
	}

	system, err := prompts.Get("extraction.json", "uploads-system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Render("extraction.json", "uploads-user", map[string]string{"Documents": combined})
	if err != nil {
		return nil, err
	}

	raw, err := e.client.GenerateJSON(ctx, system, user, llm.TierLite)
	if err != nil {
		return nil, &llm.UnavailableError{Operation: "document extraction", Cause: err}
	}

	var brief Brief
	if err := llm.DecodeObject(raw, &brief); err != nil {
		log.Printf("[extraction] documents could not be parsed, returning raw text: %v", err)
		brief = Brief{JobDescription: combined}
		normalize(&brief.ExtractedRequirements)
		return &DocumentsResult{Brief: brief, FilesProcessed: files, Fallback: true}, nil
	}
	normalize(&brief.ExtractedRequirements)
	return &DocumentsResult{Brief: brief, FilesProcessed: files}, nil
}
