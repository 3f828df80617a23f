// -----------------------------------------------------------------------
// MCP Handlers - tool implementations over the peel services
// -----------------------------------------------------------------------

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/heuristics"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

const maxMCPBatchURLs = 10

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return textResult(fmt.Sprintf("Error: "+format, args...))
}

// handlePeel implements the peel_url tool
func handlePeel(peel interfaces.PeelService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return errorResult("url parameter is required"), nil
		}
		opts := &models.RequestOptions{
			Format:   models.Format(request.GetString("format", "")),
			Render:   request.GetBool("render", false),
			Selector: request.GetString("selector", ""),
		}
		if _, ok := request.GetArguments()["max_tokens"]; ok {
			n := request.GetInt("max_tokens", 0)
			opts.MaxTokens = &n
		}

		result, err := peel.Peel(ctx, url, opts)
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("MCP peel failed")
			return errorResult("fetch failed: %v", err), nil
		}

		var sb strings.Builder
		if result.Title != "" {
			sb.WriteString("# ")
			sb.WriteString(result.Title)
			sb.WriteString("\n\n")
		}
		sb.WriteString(result.Content)
		return textResult(sb.String()), nil
	}
}

// handleSearch implements the search_web tool
func handleSearch(search interfaces.SearchService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errorResult("query parameter is required"), nil
		}
		limit := request.GetInt("limit", 5)
		if limit > 10 {
			limit = 10
		}

		results, err := search.Search(ctx, query, limit)
		if err != nil {
			logger.Warn().Err(err).Str("query", query).Msg("MCP search failed")
			return errorResult("search failed: %v", err), nil
		}
		if len(results) == 0 {
			return textResult("No results found."), nil
		}

		var sb strings.Builder
		for i, r := range results {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n\n", i+1, r.Title, r.URL, r.Snippet)
		}
		return textResult(sb.String()), nil
	}
}

// handlePeelBatch implements the peel_batch tool
func handlePeelBatch(peel interfaces.PeelService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls := request.GetStringSlice("urls", nil)
		if len(urls) == 0 {
			return errorResult("urls parameter is required"), nil
		}
		if len(urls) > maxMCPBatchURLs {
			urls = urls[:maxMCPBatchURLs]
		}
		perURLBudget := 4000
		opts := &models.RequestOptions{
			Format:    models.Format(request.GetString("format", "")),
			MaxTokens: &perURLBudget,
		}

		results := peel.PeelBatch(ctx, urls, opts)
		var sb strings.Builder
		for _, r := range results {
			fmt.Fprintf(&sb, "## %s\n\n", r.URL)
			if r.Error != "" {
				fmt.Fprintf(&sb, "Fetch failed: %s\n\n", r.Error)
				continue
			}
			sb.WriteString(r.Content)
			sb.WriteString("\n\n---\n\n")
		}
		return textResult(sb.String()), nil
	}
}

// handleExtract implements the extract_structured tool
func handleExtract(peel interfaces.PeelService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return errorResult("url parameter is required"), nil
		}
		prompt := request.GetString("prompt", "")
		schemaText := request.GetString("schema", "")
		if prompt == "" && schemaText == "" {
			return errorResult("either schema or prompt is required"), nil
		}

		spec := &models.ExtractSpec{Prompt: prompt}
		if schemaText != "" {
			var schema map[string]interface{}
			if jerr := json.Unmarshal([]byte(schemaText), &schema); jerr != nil {
				return errorResult("schema is not valid JSON: %v", jerr), nil
			}
			spec.Schema = schema
		}

		result, err := peel.Peel(ctx, url, &models.RequestOptions{
			Format:  models.FormatClean,
			Extract: spec,
		})
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("MCP extract failed")
			return errorResult("fetch failed: %v", err), nil
		}

		data, err := json.MarshalIndent(result.Extracted, "", "  ")
		if err != nil {
			return errorResult("failed to encode result: %v", err), nil
		}
		return textResult(string(data)), nil
	}
}

// handleQuickAnswer implements the quick_answer tool
func handleQuickAnswer(peel interfaces.PeelService, search interfaces.SearchService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || question == "" {
			return errorResult("question parameter is required"), nil
		}

		url := request.GetString("url", "")
		if url == "" {
			hits, serr := search.Search(ctx, question, 1)
			if serr != nil || len(hits) == 0 {
				return errorResult("no page found for question"), nil
			}
			url = hits[0].URL
		}

		result, err := peel.Peel(ctx, url, &models.RequestOptions{Format: models.FormatClean})
		if err != nil {
			return errorResult("fetch failed: %v", err), nil
		}

		passages, confidence := heuristics.QuickAnswer(result.Content, question, heuristics.DefaultPassages)
		if len(passages) == 0 {
			return textResult("No relevant passage found on " + url), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Answer (confidence %.2f, source %s):\n\n%s\n", confidence, url, passages[0].Text)
		if len(passages) > 1 {
			sb.WriteString("\nOther relevant passages:\n")
			for _, p := range passages[1:] {
				fmt.Fprintf(&sb, "- %s\n", p.Text)
			}
		}
		return textResult(sb.String()), nil
	}
}

// handleSiteMap implements the site_map tool
func handleSiteMap(peel interfaces.PeelService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return errorResult("url parameter is required"), nil
		}
		siteMap, err := peel.Map(ctx, url)
		if err != nil {
			return errorResult("map failed: %v", err), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d links on %s:\n\n", siteMap.Count, siteMap.URL)
		for _, link := range siteMap.Links {
			sb.WriteString(link)
			sb.WriteString("\n")
		}
		return textResult(sb.String()), nil
	}
}

// handleDeepFetch implements the deep_fetch tool
func handleDeepFetch(peel interfaces.PeelService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return errorResult("url parameter is required"), nil
		}
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errorResult("query parameter is required"), nil
		}
		maxPages := request.GetInt("max_pages", 3)

		out, err := peel.DeepFetch(ctx, url, query, maxPages)
		if err != nil {
			return errorResult("deep fetch failed: %v", err), nil
		}
		// Pages carry full content; summarize instead of dumping them
		delete(out, "pages")
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return errorResult("failed to encode result: %v", err), nil
		}
		return textResult(string(data)), nil
	}
}

// RegisterTools attaches every WebPeel tool to an MCP server. This is the
// single registry both the stdio binary and any embedded server use.
func RegisterTools(s *server.MCPServer, peel interfaces.PeelService, search interfaces.SearchService, logger arbor.ILogger) {
	s.AddTool(createPeelTool(), handlePeel(peel, logger))
	s.AddTool(createSearchTool(), handleSearch(search, logger))
	s.AddTool(createPeelBatchTool(), handlePeelBatch(peel, logger))
	s.AddTool(createExtractTool(), handleExtract(peel, logger))
	s.AddTool(createQuickAnswerTool(), handleQuickAnswer(peel, search, logger))
	s.AddTool(createSiteMapTool(), handleSiteMap(peel, logger))
	s.AddTool(createDeepFetchTool(), handleDeepFetch(peel, logger))
}
