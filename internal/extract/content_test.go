package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func longText(n int) string {
	return strings.Repeat("some meaningful article text ", n)
}

func TestDetectMainContentPriorityOrder(t *testing.T) {
	html := `<html><body>
		<main>` + longText(10) + `</main>
		<article role="main">` + longText(10) + `</article>
	</body></html>`

	out, detected := DetectMainContent(html)
	assert.True(t, detected)
	assert.Contains(t, out, `role="main"`)
}

func TestDetectMainContentSkipsShortRegions(t *testing.T) {
	html := `<html><body>
		<article>tiny</article>
		<main>` + longText(10) + `</main>
	</body></html>`

	out, detected := DetectMainContent(html)
	assert.True(t, detected)
	assert.Contains(t, out, "<main>")
}

func TestDetectMainContentLargestBlockFallback(t *testing.T) {
	html := `<html><body>
		<div id="small">short text here</div>
		<div id="big">` + longText(20) + `</div>
	</body></html>`

	out, detected := DetectMainContent(html)
	assert.True(t, detected)
	assert.Contains(t, out, `id="big"`)
}

func TestDetectMainContentNothingQualifies(t *testing.T) {
	html := `<html><body><p>hi</p></body></html>`
	out, detected := DetectMainContent(html)
	assert.False(t, detected)
	assert.Equal(t, html, out)
}

func TestFilterByTagsExcludeThenInclude(t *testing.T) {
	html := `<div>
		<nav>navigation</nav>
		<article><aside>ad</aside><p>keep me</p></article>
		<footer>footer</footer>
	</div>`

	out := FilterByTags(html, []string{"article"}, []string{"aside", "nav", "footer"})
	assert.Contains(t, out, "keep me")
	assert.NotContains(t, out, "navigation")
	assert.NotContains(t, out, "ad")
	assert.NotContains(t, out, "footer")
}

func TestFilterByTagsEmptyIncludeIsPassThrough(t *testing.T) {
	html := `<div><p>content</p><nav>menu</nav></div>`
	out := FilterByTags(html, nil, []string{"nav"})
	assert.Contains(t, out, "content")
	assert.NotContains(t, out, "menu")
}

func TestFilterByTagsNoFiltersReturnsInput(t *testing.T) {
	html := `<div><p>unchanged</p></div>`
	assert.Equal(t, html, FilterByTags(html, nil, nil))
}

func TestSelectOnly(t *testing.T) {
	html := `<div><section id="a">first</section><section id="b">second</section></div>`
	out := SelectOnly(html, "#b")
	assert.Contains(t, out, "second")
	assert.NotContains(t, out, "first")

	// Non-matching selector leaves the document alone
	assert.Equal(t, html, SelectOnly(html, "#missing"))
}
