package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Senior Data Engineer</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Must have:</w:t></w:r><w:r><w:tab/><w:t>SQL &amp; Spark</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":            body,
		"word/_rels/document.xml.rels": `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractText_PlainText(t *testing.T) {
	for _, name := range []string{"notes.txt", "PLAYBOOK.MD"} {
		t.Run(name, func(t *testing.T) {
			text, err := ExtractText(context.Background(), name, []byte("\xef\xbb\xbf# Role\n\n\n\nHire   fast"))
			require.NoError(t, err)
			assert.Equal(t, "# Role\n\nHire fast", text)
		})
	}
}

func TestExtractText_InvalidUTF8(t *testing.T) {
	_, err := ExtractText(context.Background(), "bad.txt", []byte{0xff, 0xfe, 0xfd})
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "bad.txt", extractErr.FileName)
}

func TestExtractText_Docx(t *testing.T) {
	text, err := ExtractText(context.Background(), "jd.docx", buildDocx(t, documentXML))
	require.NoError(t, err)
	assert.Equal(t, "Senior Data Engineer\nMust have: SQL & Spark", text)
}

func TestExtractText_CorruptDocx(t *testing.T) {
	_, err := ExtractText(context.Background(), "jd.docx", []byte("not a zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jd.docx")
	assert.NotErrorIs(t, err, ErrUnsupportedFileType)
}

func TestExtractText_Unsupported(t *testing.T) {
	_, err := ExtractText(context.Background(), "slides.pptx", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Contains(t, err.Error(), "slides.pptx")
}

func TestExtractText_InvalidPDF(t *testing.T) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		t.Skip("pdftotext not installed")
	}
	_, err := ExtractText(context.Background(), "broken.pdf", []byte("%PDF-1.4 truncated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestDocumentXMLToText(t *testing.T) {
	got := DocumentXMLToText(`<w:p><w:r><w:t>a &lt;b&gt;</w:t></w:r><w:br/><w:t>c</w:t></w:p>`)
	assert.Equal(t, "a <b>\nc\n", got)
}

func TestExtractAll_KeepsOrder(t *testing.T) {
	files := []File{
		{Name: "b.txt", Data: []byte("second")},
		{Name: "a.md", Data: []byte("first")},
		{Name: "c.docx", Data: buildDocx(t, documentXML)},
	}

	texts, err := ExtractAll(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, texts, 3)
	assert.Equal(t, Text{FileName: "b.txt", Text: "second"}, texts[0])
	assert.Equal(t, Text{FileName: "a.md", Text: "first"}, texts[1])
	assert.Equal(t, "c.docx", texts[2].FileName)
}

func TestExtractAll_FailsOnAnyFile(t *testing.T) {
	_, err := ExtractAll(context.Background(), []File{
		{Name: "ok.txt", Data: []byte("fine")},
		{Name: "image.png", Data: []byte{0x89}},
	})
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}
