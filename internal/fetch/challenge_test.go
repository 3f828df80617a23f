package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChallengeDetectedByTitle(t *testing.T) {
	html := "<html><head><title>Just a moment...</title></head><body>" +
		strings.Repeat("x", 4096) + "</body></html>"
	assert.True(t, IsChallengePage(html))
}

func TestChallengeDetectedInSmallBody(t *testing.T) {
	html := "<html><body>Please complete the CAPTCHA to continue</body></html>"
	assert.True(t, IsChallengePage(html))
}

func TestChallengeMarkerIgnoredInLargeBody(t *testing.T) {
	// An article that merely discusses captchas is not a challenge page
	html := "<html><head><title>How CAPTCHA works</title></head><body>" +
		strings.Repeat("real article content ", 500) + "captcha history</body></html>"
	assert.False(t, IsChallengePage(html))
}

func TestCloudflareChallengeScriptDetected(t *testing.T) {
	html := "<html><head><title>Site</title></head><body>" +
		strings.Repeat("x", 4096) +
		`<script src="/cdn-cgi/challenge-platform/cf_chl_v3.js"></script></body></html>`
	assert.True(t, IsChallengePage(html))
}

func TestEmptyAndNormalPages(t *testing.T) {
	assert.False(t, IsChallengePage(""))
	assert.False(t, IsChallengePage("<html><head><title>News</title></head><body>"+
		strings.Repeat("story ", 1000)+"</body></html>"))
}

func TestVerifyHumanDetected(t *testing.T) {
	html := "<html><head><title>Verify you are human</title></head><body></body></html>"
	assert.True(t, IsChallengePage(html))
}
