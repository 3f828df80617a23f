// -----------------------------------------------------------------------
// Unified Diff - classic LCS dynamic programming
// -----------------------------------------------------------------------

package track

import (
	"strings"

	"github.com/webpeel/webpeel/internal/models"
)

// maxDiffLines caps the LCS input; pages beyond it are compared on their
// first maxDiffLines lines and the result is flagged truncated.
const maxDiffLines = 10000

const (
	leadingContext  = 3
	trailingContext = 10
)

// ComputeDiff builds a unified line diff between two contents using the
// classic O(m·n) LCS table, with context hunks of 3 leading and up to 10
// trailing lines.
func ComputeDiff(oldContent, newContent string) *models.DiffResult {
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")

	truncated := false
	if len(oldLines) > maxDiffLines {
		oldLines = oldLines[:maxDiffLines]
		truncated = true
	}
	if len(newLines) > maxDiffLines {
		newLines = newLines[:maxDiffLines]
		truncated = true
	}

	ops := lcsDiff(oldLines, newLines)
	changes := buildHunks(ops)

	result := &models.DiffResult{
		Changes:   changes,
		Truncated: truncated,
	}
	var b strings.Builder
	for _, c := range changes {
		switch c.Op {
		case "add":
			result.Additions++
			b.WriteString("+ ")
		case "del":
			result.Deletions++
			b.WriteString("- ")
		default:
			b.WriteString("  ")
		}
		b.WriteString(c.Line)
		b.WriteString("\n")
	}
	result.Text = strings.TrimRight(b.String(), "\n")
	return result
}

// lcsDiff walks the LCS table backtrack to produce the full op sequence
func lcsDiff(oldLines, newLines []string) []models.DiffChange {
	m, n := len(oldLines), len(newLines)

	table := make([][]int, m+1)
	for i := range table {
		table[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if oldLines[i-1] == newLines[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	// Backtrack from the corner, collecting ops in reverse
	var reversed []models.DiffChange
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && oldLines[i-1] == newLines[j-1]:
			reversed = append(reversed, models.DiffChange{Op: "ctx", Line: oldLines[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			reversed = append(reversed, models.DiffChange{Op: "add", Line: newLines[j-1]})
			j--
		default:
			reversed = append(reversed, models.DiffChange{Op: "del", Line: oldLines[i-1]})
			i--
		}
	}

	ops := make([]models.DiffChange, len(reversed))
	for k, c := range reversed {
		ops[len(reversed)-1-k] = c
	}
	return ops
}

// buildHunks trims the full op sequence down to changed regions with
// surrounding context.
func buildHunks(ops []models.DiffChange) []models.DiffChange {
	keep := make([]bool, len(ops))
	for i, op := range ops {
		if op.Op == "ctx" {
			continue
		}
		keep[i] = true
		for k := i - 1; k >= 0 && k >= i-leadingContext; k-- {
			keep[k] = true
		}
		for k := i + 1; k < len(ops) && k <= i+trailingContext; k++ {
			keep[k] = true
		}
	}

	var out []models.DiffChange
	for i, op := range ops {
		if keep[i] {
			out = append(out, op)
		}
	}
	return out
}

// ParagraphDiff splits both contents on blank-line boundaries, keeps
// paragraphs longer than 10 characters, and reports set differences with
// each paragraph truncated to 500 characters.
func ParagraphDiff(oldContent, newContent string) *models.WatchDiff {
	oldSet := paragraphSet(oldContent)
	newSet := paragraphSet(newContent)

	diff := &models.WatchDiff{Added: []string{}, Removed: []string{}}
	for _, p := range orderedParagraphs(newContent) {
		if _, existed := oldSet[p]; !existed {
			diff.Added = append(diff.Added, truncateParagraph(p))
		}
	}
	for _, p := range orderedParagraphs(oldContent) {
		if _, exists := newSet[p]; !exists {
			diff.Removed = append(diff.Removed, truncateParagraph(p))
		}
	}
	return diff
}

func orderedParagraphs(content string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range strings.Split(content, "\n\n") {
		p = strings.TrimSpace(p)
		if len(p) <= 10 {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func paragraphSet(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range orderedParagraphs(content) {
		set[p] = struct{}{}
	}
	return set
}

func truncateParagraph(p string) string {
	if len(p) > 500 {
		return p[:500]
	}
	return p
}
