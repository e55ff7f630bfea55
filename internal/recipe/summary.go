package recipe

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainSummary strips the markup the provider embeds in recipe summaries
// (bold tags, links to similar recipes) and collapses whitespace.
func PlainSummary(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}

	doc.Find("script, style, iframe").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// FirstSentences returns at most n sentences of a plain summary, for short
// previews such as chat replies.
func FirstSentences(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return strings.TrimSpace(text)
}
