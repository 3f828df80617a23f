package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMarkdownBasicStructure(t *testing.T) {
	conv := NewConverter("https://example.com")
	html := `<h1>Title</h1><p>Some <strong>bold</strong> text with a <a href="/link">link</a>.</p>
		<ul><li>one</li><li>two</li></ul>`

	out, err := conv.ToMarkdown(html)
	require.NoError(t, err)

	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "**bold**")
	assert.Contains(t, out, "[link](https://example.com/link)")
	assert.Contains(t, out, "- one")
}

func TestToMarkdownDeterministic(t *testing.T) {
	conv := NewConverter("https://example.com")
	html := `<h2>Heading</h2><p>Paragraph with <em>emphasis</em>.</p><pre><code class="language-go">x := 1</code></pre>`

	a, err := conv.ToMarkdown(html)
	require.NoError(t, err)
	b, err := conv.ToMarkdown(html)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCleanMarkdownNoise(t *testing.T) {
	in := "# Title\n\n\n\n[](https://empty.example)\n\n[![alt](img.png)](https://x)\n\ntext   \nmore"
	out := CleanMarkdownNoise(in)

	assert.NotContains(t, out, "[](")
	assert.NotContains(t, out, "[![")
	assert.NotContains(t, out, "\n\n\n")
	assert.NotContains(t, out, "   \n")
	assert.Contains(t, out, "# Title")
}

func TestCleanForAI(t *testing.T) {
	in := "See [the docs](https://docs.example) for details [1].\n\n" +
		"![diagram](https://img.example/d.png)\n\n" +
		"![](https://img.example/empty.png)\n\n" +
		"https://bare.example/url\n\n" +
		"<!-- hidden comment -->\n\n" +
		"[ref]: https://ref.example"

	out := CleanForAI(in)

	assert.Contains(t, out, "the docs for details")
	assert.NotContains(t, out, "](")
	assert.Contains(t, out, "[Image: diagram]")
	assert.NotContains(t, out, "empty.png")
	assert.NotContains(t, out, "[1]")
	assert.NotContains(t, out, "bare.example")
	assert.NotContains(t, out, "hidden comment")
	assert.NotContains(t, out, "[ref]:")
}

func TestStripMarkdownRemovesFormatting(t *testing.T) {
	in := "# Heading\n\nSome **bold** and *italic* text with [a link](https://x.example).\n\n- item one\n- item two\n\n> quoted line\n"
	out := StripMarkdown(in)

	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "](")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "bold")
	assert.Contains(t, out, "a link")
	assert.Contains(t, out, "item one")
	assert.Contains(t, out, "quoted line")
}

func TestTextFormatHasNoHashes(t *testing.T) {
	conv := NewConverter("https://x.com")
	html := `<h1>Big Title</h1><h2>Sub</h2><p>body text</p>`

	out, err := conv.ToText(html)
	require.NoError(t, err)
	assert.NotContains(t, out, "#")
	assert.Contains(t, out, "Big Title")
	assert.Contains(t, out, "body text")
}
