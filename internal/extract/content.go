// -----------------------------------------------------------------------
// Main-Content Detection and Tag Filtering
// -----------------------------------------------------------------------

package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors are tried in priority order; the first whose visible
// text is long enough wins.
var contentSelectors = []string{
	"article[role=main]",
	"main article",
	"article",
	"main",
	"[role=main]",
}

// minContentLength is the visible-text floor for a detected region
const minContentLength = 100

// DetectMainContent finds the primary content region of a document.
// When no selector qualifies it falls back to the section or div with the
// most visible text, and finally to the original HTML with detected=false.
func DetectMainContent(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html, false
	}

	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if len(strings.TrimSpace(node.Text())) >= minContentLength {
			if out, herr := goquery.OuterHtml(node); herr == nil {
				return out, true
			}
		}
	}

	// Largest text block among generic containers
	var bestHTML string
	bestLen := 0
	doc.Find("section, div").Each(func(_ int, s *goquery.Selection) {
		textLen := len(strings.TrimSpace(s.Text()))
		if textLen > bestLen {
			if out, herr := goquery.OuterHtml(s); herr == nil {
				bestHTML = out
				bestLen = textLen
			}
		}
	})
	if bestLen >= minContentLength {
		return bestHTML, true
	}
	return html, false
}

// FilterByTags removes every node matching an exclude selector, then, when
// include selectors are given, keeps only the matching nodes' outer HTML.
// Empty include means pass-through.
func FilterByTags(html string, include, exclude []string) string {
	if len(include) == 0 && len(exclude) == 0 {
		return html
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	for _, sel := range exclude {
		doc.Find(sel).Remove()
	}

	if len(include) == 0 {
		if out, herr := doc.Find("body").Html(); herr == nil && out != "" {
			return out
		}
		if out, herr := doc.Html(); herr == nil {
			return out
		}
		return html
	}

	var parts []string
	for _, sel := range include {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if out, herr := goquery.OuterHtml(s); herr == nil {
				parts = append(parts, out)
			}
		})
	}
	return strings.Join(parts, "\n")
}

// SelectOnly restricts the document to a single CSS selector's content.
// Returns the original HTML when the selector matches nothing.
func SelectOnly(html, selector string) string {
	if selector == "" {
		return html
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return html
	}
	if out, herr := goquery.OuterHtml(node); herr == nil {
		return out
	}
	return html
}
