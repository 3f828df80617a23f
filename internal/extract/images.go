// -----------------------------------------------------------------------
// Image Extraction
// -----------------------------------------------------------------------

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/webpeel/webpeel/internal/models"
)

var backgroundImageRe = regexp.MustCompile(`background-image\s*:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// ExtractImages returns images from <img>, <picture><source srcset>, and
// inline CSS background-image declarations, resolved absolute, http(s)
// only, deduplicated by final URL.
func ExtractImages(doc *goquery.Document, pageURL string) []models.ImageInfo {
	base := resolveBase(doc, pageURL)
	if base == nil {
		return nil
	}

	seen := make(map[string]int)
	var images []models.ImageInfo

	add := func(rawURL string, info models.ImageInfo) {
		resolved := resolveURL(base, strings.TrimSpace(rawURL))
		if resolved == "" {
			return
		}
		if idx, dup := seen[resolved]; dup {
			// Keep the richer record when a duplicate carries alt text
			if images[idx].Alt == "" && info.Alt != "" {
				info.URL = resolved
				images[idx] = info
			}
			return
		}
		info.URL = resolved
		seen[resolved] = len(images)
		images = append(images, info)
	}

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		info := models.ImageInfo{}
		info.Alt, _ = s.Attr("alt")
		info.Title, _ = s.Attr("title")
		if w, ok := s.Attr("width"); ok {
			info.Width, _ = strconv.Atoi(w)
		}
		if h, ok := s.Attr("height"); ok {
			info.Height, _ = strconv.Atoi(h)
		}
		add(src, info)
	})

	doc.Find("picture source[srcset]").Each(func(_ int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		for _, candidate := range parseSrcset(srcset) {
			add(candidate, models.ImageInfo{})
		}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, match := range backgroundImageRe.FindAllStringSubmatch(style, -1) {
			add(match[1], models.ImageInfo{})
		}
	})

	return images
}

// parseSrcset splits a srcset attribute into its candidate URLs, handling
// both density ("url 2x") and width ("url 200w") descriptors.
func parseSrcset(srcset string) []string {
	var urls []string
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}
