package interfaces

import (
	"context"

	"github.com/webpeel/webpeel/internal/models"
)

// LLMService is the structured-extraction and question-answering engine.
// Implementations must honor ctx cancellation so an aborted HTTP connection
// propagates down to the provider call.
type LLMService interface {
	// ExtractStructured pulls a typed record out of page content using a
	// JSON schema and/or a natural-language prompt.
	ExtractStructured(ctx context.Context, content string, spec *models.ExtractSpec) (map[string]interface{}, error)

	// Answer produces an answer to a question grounded in the supplied
	// page content.
	Answer(ctx context.Context, question, content string) (string, error)

	// AnswerStream streams answer chunks to the callback, then returns
	// the final answer text.
	AnswerStream(ctx context.Context, question, content string, onChunk func(text string)) (string, error)

	// IsConfigured reports whether a provider key is available
	IsConfigured() bool
}

// SearchService queries the web search provider
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error)
}
