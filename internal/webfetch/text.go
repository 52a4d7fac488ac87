package webfetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText reduces HTML markup to its visible text: script and style
// subtrees are dropped entirely, remaining text is split into trimmed
// non-blank lines joined by newlines. Unparseable or empty markup
// yields an empty string.
func ExtractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script,style").Remove()
	raw := doc.Text()

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
