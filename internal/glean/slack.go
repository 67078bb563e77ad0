package glean

import (
	"regexp"
	"strings"
)

var (
	mdLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdBold   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic = regexp.MustCompile(`\*([^*\n]+)\*`)
)

// boldMark stands in for Slack bold while italics are rewritten
const boldMark = "\x00"

// ConvertMarkdownToSlack rewrites Markdown links, bold and italics into Slack mrkdwn
func ConvertMarkdownToSlack(text string) string {
	if text == "" {
		return text
	}

	text = mdLink.ReplaceAllString(text, "<$2|$1>")
	text = mdBold.ReplaceAllString(text, boldMark+"$1"+boldMark)
	text = mdItalic.ReplaceAllString(text, "_${1}_")
	return strings.ReplaceAll(text, boldMark, "*")
}
