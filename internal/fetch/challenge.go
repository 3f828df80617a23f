// -----------------------------------------------------------------------
// Bot-Challenge Detection
// -----------------------------------------------------------------------

package fetch

import "strings"

// challengeMarkers are phrases that identify an anti-bot interstitial
var challengeMarkers = []string{
	"just a moment",
	"verify you are human",
	"cf-challenge",
	"captcha",
	"checking your browser",
	"attention required",
	"enable javascript and cookies",
}

// minRealPageSize is the body length below which challenge markers are
// decisive even without a title match.
const minRealPageSize = 2048

// IsChallengePage reports whether the HTML looks like an anti-bot
// interstitial rather than real content.
func IsChallengePage(html string) bool {
	if html == "" {
		return false
	}
	lower := strings.ToLower(html)

	title := extractTitle(lower)
	for _, marker := range challengeMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}

	if len(html) < minRealPageSize {
		for _, marker := range challengeMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}

	// Cloudflare challenge scripts show up in full-size pages too
	if strings.Contains(lower, "cf-challenge") || strings.Contains(lower, "cf_chl_") {
		return true
	}
	return false
}

func extractTitle(lowerHTML string) string {
	start := strings.Index(lowerHTML, "<title")
	if start < 0 {
		return ""
	}
	open := strings.Index(lowerHTML[start:], ">")
	if open < 0 {
		return ""
	}
	rest := lowerHTML[start+open+1:]
	end := strings.Index(rest, "</title>")
	if end < 0 {
		return ""
	}
	return rest[:end]
}
