// -----------------------------------------------------------------------
// Claude LLM Service - structured extraction and grounded answers
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

// maxPromptContent caps how much page content is sent to the provider
const maxPromptContent = 60000

// ClaudeService implements structured extraction and question answering
// against the Anthropic API. When no key is configured the service reports
// unconfigured and callers fall back to the heuristic extractors.
type ClaudeService struct {
	config     *common.ClaudeConfig
	logger     arbor.ILogger
	client     anthropic.Client
	timeout    time.Duration
	maxTokens  int
	configured bool
}

// NewClaudeService creates the Claude service. A missing API key is not an
// error; the service comes up unconfigured.
func NewClaudeService(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	timeout := 60 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid claude timeout '%s': %w", config.Timeout, err)
		}
		timeout = parsed
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}

	service := &ClaudeService{
		config:     config,
		logger:     logger,
		timeout:    timeout,
		maxTokens:  maxTokens,
		configured: config.APIKey != "",
	}
	if service.configured {
		service.client = anthropic.NewClient(option.WithAPIKey(config.APIKey))
		logger.Debug().
			Str("model", config.Model).
			Dur("timeout", timeout).
			Int("max_tokens", maxTokens).
			Msg("Claude service initialized")
	} else {
		logger.Info().Msg("Claude service unconfigured, heuristic extraction only")
	}
	return service, nil
}

// IsConfigured reports whether a provider key is available
func (s *ClaudeService) IsConfigured() bool {
	return s.configured
}

// ExtractStructured pulls a typed record out of page content. The schema
// and prompt from the extract spec steer the model; the response must be a
// single JSON object.
func (s *ClaudeService) ExtractStructured(ctx context.Context, content string, spec *models.ExtractSpec) (map[string]interface{}, error) {
	if !s.configured {
		return nil, fmt.Errorf("llm provider not configured")
	}

	var sb strings.Builder
	sb.WriteString("Extract structured data from the page content below.\n")
	if spec != nil && len(spec.Schema) > 0 {
		schemaJSON, err := json.Marshal(spec.Schema)
		if err != nil {
			return nil, fmt.Errorf("invalid extract schema: %w", err)
		}
		sb.WriteString("The result must conform to this JSON schema:\n")
		sb.Write(schemaJSON)
		sb.WriteString("\n")
	}
	if spec != nil && spec.Prompt != "" {
		sb.WriteString("Instructions: ")
		sb.WriteString(spec.Prompt)
		sb.WriteString("\n")
	}
	sb.WriteString("Respond with a single JSON object and nothing else.\n\nPage content:\n")
	sb.WriteString(truncateContent(content))

	text, err := s.complete(ctx, sb.String())
	if err != nil {
		return nil, err
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &record); err != nil {
		return nil, fmt.Errorf("llm returned non-JSON extraction: %w", err)
	}
	return record, nil
}

// Answer produces an answer grounded in the supplied page content
func (s *ClaudeService) Answer(ctx context.Context, question, content string) (string, error) {
	if !s.configured {
		return "", fmt.Errorf("llm provider not configured")
	}
	return s.complete(ctx, answerPrompt(question, content))
}

// AnswerStream streams answer chunks to the callback and returns the full
// answer text.
func (s *ClaudeService) AnswerStream(ctx context.Context, question, content string, onChunk func(text string)) (string, error) {
	if !s.configured {
		return "", fmt.Errorf("llm provider not configured")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stream := s.client.Messages.NewStreaming(timeoutCtx, s.params(answerPrompt(question, content)))
	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok {
				full.WriteString(delta.Text)
				if onChunk != nil {
					onChunk(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("claude stream failed: %w", err)
	}
	if full.Len() == 0 {
		return "", fmt.Errorf("claude returned empty answer")
	}
	return full.String(), nil
}

func (s *ClaudeService) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

func (s *ClaudeService) complete(ctx context.Context, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Messages.New(timeoutCtx, s.params(prompt))
	if err != nil {
		return "", fmt.Errorf("claude api call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("claude returned empty response")
	}

	s.logger.Debug().
		Int("prompt_length", len(prompt)).
		Int("response_length", text.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude completion finished")
	return text.String(), nil
}

func answerPrompt(question, content string) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the page content below. ")
	sb.WriteString("If the content does not contain the answer, say so.\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nPage content:\n")
	sb.WriteString(truncateContent(content))
	return sb.String()
}

func truncateContent(content string) string {
	if len(content) <= maxPromptContent {
		return content
	}
	return content[:maxPromptContent]
}

// stripCodeFence unwraps a ```json fenced block if the model added one
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
