// -----------------------------------------------------------------------
// Page Metadata Extraction
// -----------------------------------------------------------------------

package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/webpeel/webpeel/internal/models"
)

var (
	entityRe     = regexp.MustCompile(`&(amp|lt|gt|quot|#39|nbsp);`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ExtractTitle resolves the page title through the fallback chain
// og:title, twitter:title, <title>, first <h1>.
func ExtractTitle(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
		return v
	}
	if v := metaContent(doc, `meta[name="twitter:title"]`); v != "" {
		return v
	}
	if v := strings.TrimSpace(doc.Find("title").First().Text()); v != "" {
		return v
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// ExtractMetadata pulls description, author, dates, language, canonical
// URL, social image and word count out of the document.
func ExtractMetadata(doc *goquery.Document, method models.FetchMethod) models.PageMetadata {
	meta := models.PageMetadata{
		FetchedAt: time.Now().UTC(),
		Method:    method,
	}

	meta.Description = firstOf(doc,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
		`meta[name="description"]`,
	)
	meta.Author = firstOf(doc,
		`meta[property="article:author"]`,
		`meta[property="og:article:author"]`,
		`meta[name="author"]`,
		`meta[name="twitter:creator"]`,
	)

	if published := extractPublishDate(doc); published != "" {
		meta.Published = published
		meta.PublishDate = published
	}

	meta.Language = extractLanguage(doc)
	meta.Canonical = extractCanonical(doc)
	meta.Image = firstOf(doc,
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	)

	meta.WordCount = CountWords(doc)
	return meta
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func firstOf(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v := metaContent(doc, sel); v != "" {
			return v
		}
	}
	return ""
}

// extractPublishDate walks the fallback chain and normalizes to ISO 8601
func extractPublishDate(doc *goquery.Document) string {
	candidates := []string{
		metaContent(doc, `meta[property="article:published_time"]`),
		metaContent(doc, `meta[name="date"]`),
		metaContent(doc, `meta[property="og:updated_time"]`),
	}
	if v, ok := doc.Find("time[pubdate]").First().Attr("datetime"); ok {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, jsonLDDatePublished(doc))

	for _, c := range candidates {
		if iso := normalizeDate(c); iso != "" {
			return iso
		}
	}
	return ""
}

func jsonLDDatePublished(doc *goquery.Document) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if v, ok := payload["datePublished"].(string); ok && v != "" {
			found = v
			return false
		}
		return true
	})
	return found
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 January 2006",
}

func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

func extractLanguage(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").First().Attr("lang"); ok && lang != "" {
		return strings.TrimSpace(lang)
	}
	if v := metaContent(doc, `meta[http-equiv="Content-Language"]`); v != "" {
		return v
	}
	if locale := metaContent(doc, `meta[property="og:locale"]`); locale != "" {
		return strings.ReplaceAll(locale, "_", "-")
	}
	return ""
}

func extractCanonical(doc *goquery.Document) string {
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && href != "" {
		return strings.TrimSpace(href)
	}
	return metaContent(doc, `meta[property="og:url"]`)
}

// CountWords counts space-separated tokens in the visible text, with
// script/style removed and common entities decoded.
func CountWords(doc *goquery.Document) int {
	clone := doc.Clone()
	clone.Find("script, style, noscript").Remove()
	text := clone.Find("body").Text()
	if text == "" {
		text = clone.Text()
	}
	text = entityRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if text == "" {
		return 0
	}
	return len(strings.Split(text, " "))
}
