package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/models"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestTitleFallbackChain(t *testing.T) {
	full := `<html><head>
		<meta property="og:title" content="A">
		<title>B</title>
	</head><body><h1>C</h1></body></html>`
	assert.Equal(t, "A", ExtractTitle(parseDoc(t, full)))

	noOG := `<html><head><title>B</title></head><body><h1>C</h1></body></html>`
	assert.Equal(t, "B", ExtractTitle(parseDoc(t, noOG)))

	noTitle := `<html><head></head><body><h1>C</h1></body></html>`
	assert.Equal(t, "C", ExtractTitle(parseDoc(t, noTitle)))
}

func TestDescriptionFallbackChain(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<meta name="twitter:description" content="tw">
		<meta name="description" content="plain">
	</head></html>`)
	meta := ExtractMetadata(doc, models.MethodSimple)
	assert.Equal(t, "tw", meta.Description)
}

func TestAuthorFallbackChain(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<meta name="author" content="Jordan Writer">
	</head></html>`)
	meta := ExtractMetadata(doc, models.MethodSimple)
	assert.Equal(t, "Jordan Writer", meta.Author)
}

func TestPublishDateNormalizedToISO(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<meta property="article:published_time" content="2024-03-15T10:30:00Z">
	</head></html>`)
	meta := ExtractMetadata(doc, models.MethodSimple)
	assert.Equal(t, "2024-03-15T10:30:00Z", meta.Published)
	assert.Equal(t, meta.Published, meta.PublishDate)
}

func TestPublishDateFromJSONLD(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<script type="application/ld+json">{"@type":"Article","datePublished":"2023-07-01"}</script>
	</head></html>`)
	meta := ExtractMetadata(doc, models.MethodSimple)
	assert.Equal(t, "2023-07-01T00:00:00Z", meta.Published)
}

func TestLanguageFallbacks(t *testing.T) {
	doc := parseDoc(t, `<html lang="fr"><head></head></html>`)
	assert.Equal(t, "fr", ExtractMetadata(doc, models.MethodSimple).Language)

	doc = parseDoc(t, `<html><head><meta property="og:locale" content="en_US"></head></html>`)
	assert.Equal(t, "en-US", ExtractMetadata(doc, models.MethodSimple).Language)
}

func TestCanonicalFallbacks(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<link rel="canonical" href="https://example.com/canonical">
		<meta property="og:url" content="https://example.com/og">
	</head></html>`)
	assert.Equal(t, "https://example.com/canonical", ExtractMetadata(doc, models.MethodSimple).Canonical)
}

func TestWordCountIgnoresScripts(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<script>var x = "should not count at all";</script>
		<p>one two three four five</p>
	</body></html>`)
	assert.Equal(t, 5, ExtractMetadata(doc, models.MethodSimple).WordCount)
}
