// -----------------------------------------------------------------------
// Markdown Conversion and Cleaning
// -----------------------------------------------------------------------

package extract

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmextension "github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
)

var (
	emptyLinkRe     = regexp.MustCompile(`\[\]\([^)]*\)`)
	imageLinkRe     = regexp.MustCompile(`\[!\[[^\]]*\]\([^)]*\)\]\([^)]*\)`)
	multiNewlineRe  = regexp.MustCompile(`\n{3,}`)
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)

	inlineLinkRe  = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	imageRe       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	citationRe    = regexp.MustCompile(`\[\d+\]`)
	bareURLLineRe = regexp.MustCompile(`(?m)^\s*https?://\S+\s*$`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	refLinkDefRe  = regexp.MustCompile(`(?m)^\[[^\]]+\]:\s+\S+.*$`)
)

// Converter turns HTML into markdown or plain text
type Converter struct {
	baseURL string
}

// NewConverter creates a converter resolving relative links against baseURL
func NewConverter(baseURL string) *Converter {
	return &Converter{baseURL: baseURL}
}

// ToMarkdown converts HTML to GitHub-flavored markdown. Conversion is
// deterministic: the same HTML always yields byte-identical output.
func (c *Converter) ToMarkdown(html string) (string, error) {
	conv := md.NewConverter(c.baseURL, true, nil)
	conv.Use(plugin.GitHubFlavored())
	out, err := conv.ConvertString(html)
	if err != nil {
		return "", err
	}
	return CleanMarkdownNoise(out), nil
}

// ToText converts HTML to plain text by stripping the markdown formatting
// from the converted output.
func (c *Converter) ToText(html string) (string, error) {
	markdown, err := c.ToMarkdown(html)
	if err != nil {
		return "", err
	}
	return StripMarkdown(markdown), nil
}

// CleanMarkdownNoise removes conversion artifacts: empty links, image-only
// links, runs of blank lines, and trailing whitespace.
func CleanMarkdownNoise(markdown string) string {
	out := imageLinkRe.ReplaceAllString(markdown, "")
	out = emptyLinkRe.ReplaceAllString(out, "")
	out = trailingSpaceRe.ReplaceAllString(out, "\n")
	out = multiNewlineRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// CleanForAI additionally inlines links as their text, replaces images
// with an alt placeholder, and strips citation markers, bare-URL lines,
// HTML comments, and reference-style link definitions.
func CleanForAI(markdown string) string {
	out := imageRe.ReplaceAllStringFunc(markdown, func(m string) string {
		sub := imageRe.FindStringSubmatch(m)
		if len(sub) > 1 && strings.TrimSpace(sub[1]) != "" {
			return "[Image: " + sub[1] + "]"
		}
		return ""
	})
	out = inlineLinkRe.ReplaceAllString(out, "$1")
	out = citationRe.ReplaceAllString(out, "")
	out = bareURLLineRe.ReplaceAllString(out, "")
	out = htmlCommentRe.ReplaceAllString(out, "")
	out = refLinkDefRe.ReplaceAllString(out, "")
	out = trailingSpaceRe.ReplaceAllString(out, "\n")
	out = multiNewlineRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// StripMarkdown removes markdown formatting by walking the parsed AST and
// emitting only text content, with block boundaries as blank lines.
func StripMarkdown(markdown string) string {
	source := []byte(markdown)
	parser := goldmark.New(goldmark.WithExtensions(gmextension.GFM)).Parser()
	root := parser.Parse(gmtext.NewReader(source))

	var b strings.Builder
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				b.WriteString("\n\n")
			}
			switch n.(type) {
			case *ast.Heading, *ast.ListItem, *ast.Blockquote:
				b.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
			}
			b.WriteString("\n")
		case *ast.AutoLink:
			b.Write(node.URL(source))
		}
		return ast.WalkContinue, nil
	})

	out := multiNewlineRe.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}
