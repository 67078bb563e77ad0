package ingestion

import (
	"regexp"
	"strings"
)

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankRun    = regexp.MustCompile(`\n\n\n+`)
)

// CleanText normalizes extracted document text. Headings, bullets and
// indentation survive; runs of spaces collapse and at most one blank line
// separates paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	// pdftotext separates pages with form feeds
	content = strings.ReplaceAll(content, "\f", "\n\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, cleanLine(line))
	}

	result := blankRun.ReplaceAllString(strings.Join(cleaned, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "#") {
		return inlineSpace.ReplaceAllString(trimmed, " ")
	}

	indent := len(line) - len(trimmed)
	body := inlineSpace.ReplaceAllString(trimmed, " ")
	if isBulletLine(trimmed) {
		body = normalizeBullet(body)
	}
	if indent > 0 {
		return strings.Repeat(" ", indent) + body
	}
	return body
}

func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "· ")
}

// normalizeBullet rewrites word-processor bullet glyphs as markdown dashes
func normalizeBullet(line string) string {
	for _, glyph := range []string{"• ", "· "} {
		if strings.HasPrefix(line, glyph) {
			return "- " + strings.TrimPrefix(line, glyph)
		}
	}
	return line
}
