// -----------------------------------------------------------------------
// Link Extraction
// -----------------------------------------------------------------------

package extract

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns every anchor href resolved against the base URL,
// restricted to http(s), with same-page fragments dropped, deduplicated
// and sorted. A <base href> in the document overrides pageURL.
func ExtractLinks(doc *goquery.Document, pageURL string) []string {
	base := resolveBase(doc, pageURL)
	if base == nil {
		return []string{}
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		seen[resolved] = struct{}{}
	})

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}

// resolveBase honors a <base href> element when present
func resolveBase(doc *goquery.Document, pageURL string) *url.URL {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if baseURL, berr := parsed.Parse(strings.TrimSpace(href)); berr == nil {
			return baseURL
		}
	}
	return parsed
}

// resolveURL resolves a reference against the base and validates the
// scheme. Fragments are stripped from the result.
func resolveURL(base *url.URL, ref string) string {
	resolved, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
