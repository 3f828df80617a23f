// -----------------------------------------------------------------------
// Auto-Extract - page-type detection and typed structured records
// -----------------------------------------------------------------------

package heuristics

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageType classifies a page for structured extraction
type PageType string

const (
	PagePricing  PageType = "pricing"
	PageProducts PageType = "products"
	PageContact  PageType = "contact"
	PageArticle  PageType = "article"
	PageAPIDocs  PageType = "api_docs"
	PageUnknown  PageType = "unknown"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
)

// DetectPageType classifies a page from its URL path and DOM signals
func DetectPageType(url string, doc *goquery.Document) PageType {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "pricing") || strings.Contains(lower, "plans"):
		return PagePricing
	case strings.Contains(lower, "contact"):
		return PageContact
	case strings.Contains(lower, "/api") || strings.Contains(lower, "/docs/") || strings.Contains(lower, "reference"):
		return PageAPIDocs
	case strings.Contains(lower, "/product") || strings.Contains(lower, "/shop") || strings.Contains(lower, "/store"):
		return PageProducts
	}

	if doc != nil {
		text := strings.ToLower(doc.Text())
		switch {
		case strings.Contains(text, "per month") && priceRe.MatchString(doc.Text()):
			return PagePricing
		case doc.Find("article").Length() > 0 || doc.Find(`meta[property="article:published_time"]`).Length() > 0:
			return PageArticle
		case emailRe.MatchString(doc.Text()) && strings.Contains(text, "contact"):
			return PageContact
		case doc.Find("code, pre").Length() > 5:
			return PageAPIDocs
		}
	}
	return PageUnknown
}

// AutoExtract produces a typed structured record for the detected page
// type. Extractors are defensive: with no signals the record comes back
// with empty collections rather than an error.
func AutoExtract(url, content string, doc *goquery.Document) map[string]interface{} {
	pageType := DetectPageType(url, doc)
	record := map[string]interface{}{"pageType": string(pageType)}

	switch pageType {
	case PagePricing:
		record["plans"] = extractPlans(content)
		record["prices"] = capped(priceRe.FindAllString(content, -1), 10)
	case PageContact:
		record["emails"] = capped(emailRe.FindAllString(content, -1), 10)
		record["phones"] = capped(phoneRe.FindAllString(content, -1), 10)
	case PageProducts:
		record["products"] = extractProducts(doc)
	case PageArticle:
		record["keyPoints"] = KeyPoints(content, "", 5)
		record["figures"] = ExtractFigures(content)
	case PageAPIDocs:
		record["endpoints"] = extractEndpoints(content)
	default:
		record["keyPoints"] = KeyPoints(content, "", 3)
	}
	return record
}

var planNameRe = regexp.MustCompile(`(?im)^#{1,4}\s*((?:free|basic|starter|pro|professional|premium|business|team|enterprise)[\w ]*)$`)

func extractPlans(content string) []string {
	var plans []string
	for _, m := range planNameRe.FindAllStringSubmatch(content, -1) {
		plans = append(plans, strings.TrimSpace(m[1]))
	}
	if plans == nil {
		return []string{}
	}
	return plans
}

func extractProducts(doc *goquery.Document) []map[string]string {
	products := []map[string]string{}
	if doc == nil {
		return products
	}
	doc.Find(`[class*="product"], [itemtype*="Product"]`).Each(func(_ int, s *goquery.Selection) {
		if len(products) >= 20 {
			return
		}
		name := strings.TrimSpace(s.Find("h2, h3, [class*='title'], [class*='name']").First().Text())
		if name == "" {
			return
		}
		price := priceRe.FindString(s.Text())
		products = append(products, map[string]string{"name": name, "price": price})
	})
	return products
}

var endpointRe = regexp.MustCompile(`(?m)(GET|POST|PUT|PATCH|DELETE)\s+(/[\w/:{}.-]*)`)

func extractEndpoints(content string) []string {
	var endpoints []string
	seen := make(map[string]struct{})
	for _, m := range endpointRe.FindAllStringSubmatch(content, -1) {
		ep := m[1] + " " + m[2]
		if _, dup := seen[ep]; dup {
			continue
		}
		seen[ep] = struct{}{}
		endpoints = append(endpoints, ep)
		if len(endpoints) >= 30 {
			break
		}
	}
	if endpoints == nil {
		return []string{}
	}
	return endpoints
}
