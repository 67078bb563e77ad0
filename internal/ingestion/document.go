// Package ingestion converts uploaded hiring documents into plain text.
package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedFileType is returned for files that are not PDF, DOCX, TXT or MD
var ErrUnsupportedFileType = errors.New("unsupported file type")

// MaxConcurrentExtractions bounds the pdftotext processes started for one upload
const MaxConcurrentExtractions = 4

// ExtractionError reports a file that could not be converted to text
type ExtractionError struct {
	FileName string
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.FileName, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// File is one uploaded document
type File struct {
	Name string
	Data []byte
}

// Text is the cleaned text of one uploaded document
type Text struct {
	FileName string
	Text     string
}

// ExtractText returns the text content of a document, chosen by file extension
func ExtractText(ctx context.Context, fileName string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md":
		text, err = plainText(data)
	case ".pdf":
		text, err = pdfText(ctx, data)
	case ".docx":
		text, err = docxText(data)
	default:
		err = ErrUnsupportedFileType
	}
	if err != nil {
		return "", &ExtractionError{FileName: fileName, Cause: err}
	}
	return CleanText(text), nil
}

// ExtractAll converts every file concurrently and keeps the input order. The
// first failure cancels the remaining conversions.
func ExtractAll(ctx context.Context, files []File) ([]Text, error) {
	out := make([]Text, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentExtractions)
	for i, f := range files {
		g.Go(func() error {
			text, err := ExtractText(gctx, f.Name, f.Data)
			if err != nil {
				return err
			}
			out[i] = Text{FileName: f.Name, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return string(data), nil
}

// pdfText shells out to pdftotext from poppler-utils
func pdfText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "intake-upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", tmp.Name(), "-")
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "install poppler-utils"
		}
		return "", fmt.Errorf("pdftotext failed (%s): %w", msg, err)
	}
	return string(output), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	docxTab          = regexp.MustCompile(`<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func docxText(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	return DocumentXMLToText(r.Editable().GetContent()), nil
}

// DocumentXMLToText flattens WordprocessingML body XML into text with one line
// per paragraph
func DocumentXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return xmlEntities.Replace(content)
}
