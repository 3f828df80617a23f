package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

func TestUnconfiguredService(t *testing.T) {
	svc, err := NewClaudeService(&common.ClaudeConfig{}, common.GetLogger())
	require.NoError(t, err)

	assert.False(t, svc.IsConfigured())

	_, err = svc.Answer(context.Background(), "q", "content")
	assert.Error(t, err)
	_, err = svc.ExtractStructured(context.Background(), "content", &models.ExtractSpec{})
	assert.Error(t, err)
}

func TestInvalidTimeoutRejected(t *testing.T) {
	_, err := NewClaudeService(&common.ClaudeConfig{Timeout: "soon"}, common.GetLogger())
	assert.Error(t, err)
}

func TestDefaultsApplied(t *testing.T) {
	cfg := &common.ClaudeConfig{APIKey: "sk-test"}
	svc, err := NewClaudeService(cfg, common.GetLogger())
	require.NoError(t, err)

	assert.True(t, svc.IsConfigured())
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, 4096, svc.maxTokens)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(` {"a":1} `))
}

func TestTruncateContent(t *testing.T) {
	long := strings.Repeat("x", maxPromptContent+100)
	assert.Len(t, truncateContent(long), maxPromptContent)
	assert.Equal(t, "short", truncateContent("short"))
}
