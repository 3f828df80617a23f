package track

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDiffAddsAndDeletes(t *testing.T) {
	oldContent := "Line 1\nLine 2\nLine 3"
	newContent := "Line 1\nLine 2 modified\nLine 3\nLine 4 added"

	diff := ComputeDiff(oldContent, newContent)

	assert.GreaterOrEqual(t, diff.Additions, 1)
	assert.GreaterOrEqual(t, diff.Deletions, 1)

	hasAdd, hasDel := false, false
	for _, c := range diff.Changes {
		switch c.Op {
		case "add":
			hasAdd = true
		case "del":
			hasDel = true
		}
	}
	assert.True(t, hasAdd)
	assert.True(t, hasDel)
	assert.Contains(t, diff.Text, "+ Line 2 modified")
	assert.Contains(t, diff.Text, "- Line 2")
	assert.Contains(t, diff.Text, "+ Line 4 added")
}

func TestComputeDiffIdenticalContent(t *testing.T) {
	content := "a\nb\nc"
	diff := ComputeDiff(content, content)
	assert.Zero(t, diff.Additions)
	assert.Zero(t, diff.Deletions)
	assert.Empty(t, diff.Changes)
}

func TestComputeDiffContextWindow(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 50; i++ {
		oldLines = append(oldLines, "unchanged")
		newLines = append(newLines, "unchanged")
	}
	oldLines[25] = "before"
	newLines[25] = "after"

	diff := ComputeDiff(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))

	// 3 leading + up to 10 trailing context lines around the change pair
	assert.Equal(t, 1, diff.Additions)
	assert.Equal(t, 1, diff.Deletions)
	require.NotEmpty(t, diff.Changes)
	assert.LessOrEqual(t, len(diff.Changes), 2+leadingContext+trailingContext+2)
}

func TestComputeDiffTruncatesHugeInputs(t *testing.T) {
	old := strings.Repeat("line\n", maxDiffLines+100)
	diff := ComputeDiff(old, "line")
	assert.True(t, diff.Truncated)
}

func TestParagraphDiff(t *testing.T) {
	oldContent := "First paragraph here.\n\nSecond paragraph stays.\n\nshort"
	newContent := "Second paragraph stays.\n\nBrand new third paragraph."

	diff := ParagraphDiff(oldContent, newContent)

	assert.Equal(t, []string{"Brand new third paragraph."}, diff.Added)
	assert.Equal(t, []string{"First paragraph here."}, diff.Removed)
}

func TestParagraphDiffFiltersShortAndTruncatesLong(t *testing.T) {
	long := strings.Repeat("w", 600)
	diff := ParagraphDiff("", "tiny\n\n"+long)

	require.Len(t, diff.Added, 1)
	assert.Len(t, diff.Added[0], 500)
}
