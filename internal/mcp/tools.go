// -----------------------------------------------------------------------
// MCP Tools - tool definitions exposed to MCP clients
// -----------------------------------------------------------------------

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createPeelTool returns the peel_url tool definition
func createPeelTool() mcp.Tool {
	return mcp.NewTool("peel_url",
		mcp.WithDescription("Fetch a web page and return its cleaned content as markdown"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to fetch"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: markdown, text, html, clean (default: markdown)"),
		),
		mcp.WithBoolean("render",
			mcp.Description("Force browser rendering for JavaScript-heavy pages"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector to restrict output to one page region"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Truncate content to approximately this many tokens"),
		),
	)
}

// createSearchTool returns the search_web tool definition
func createSearchTool() mcp.Tool {
	return mcp.NewTool("search_web",
		mcp.WithDescription("Search the web and return titles, URLs and snippets"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 5, max: 10)"),
		),
	)
}

// createPeelBatchTool returns the peel_batch tool definition
func createPeelBatchTool() mcp.Tool {
	return mcp.NewTool("peel_batch",
		mcp.WithDescription("Fetch several URLs at once and return their cleaned content"),
		mcp.WithArray("urls",
			mcp.WithStringItems(),
			mcp.Required(),
			mcp.Description("The URLs to fetch (max 10)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: markdown, text, html, clean (default: markdown)"),
		),
	)
}

// createExtractTool returns the extract_structured tool definition
func createExtractTool() mcp.Tool {
	return mcp.NewTool("extract_structured",
		mcp.WithDescription("Extract structured data from a page using a JSON schema or a natural-language prompt"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The page to extract from"),
		),
		mcp.WithString("schema",
			mcp.Description("JSON schema describing the fields to extract"),
		),
		mcp.WithString("prompt",
			mcp.Description("Natural-language description of what to extract"),
		),
	)
}

// createQuickAnswerTool returns the quick_answer tool definition
func createQuickAnswerTool() mcp.Tool {
	return mcp.NewTool("quick_answer",
		mcp.WithDescription("Answer a question from a page's content using passage ranking, no LLM"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("url",
			mcp.Description("Page to read; when omitted the top search results are used"),
		),
	)
}

// createSiteMapTool returns the site_map tool definition
func createSiteMapTool() mcp.Tool {
	return mcp.NewTool("site_map",
		mcp.WithDescription("List the deduplicated outbound links of a page"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The page to map"),
		),
	)
}

// createDeepFetchTool returns the deep_fetch tool definition
func createDeepFetchTool() mcp.Tool {
	return mcp.NewTool("deep_fetch",
		mcp.WithDescription("Fetch a page plus its most relevant linked pages and aggregate key points, entities and figures"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The starting page"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to look for across the pages"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Total pages to read including the start page (default: 3)"),
		),
	)
}
