// -----------------------------------------------------------------------
// Token Budget, Fingerprint and Quality Score
// -----------------------------------------------------------------------

package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// EstimateTokens approximates the token count as ceil(len/4), a
// conservative character heuristic.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// TruncateToTokens cuts content to roughly maxTokens, preserving the first
// heading and appending a single truncation notice line. maxTokens < 0
// means no truncation.
func TruncateToTokens(content string, maxTokens int) string {
	if maxTokens < 0 || EstimateTokens(content) <= maxTokens {
		return content
	}
	notice := fmt.Sprintf("[Content truncated to ~%d tokens]", maxTokens)
	if maxTokens == 0 {
		return notice
	}

	budget := maxTokens * 4
	if budget >= len(content) {
		return content
	}

	// Keep the first heading intact even when the cut lands inside it
	cut := budget
	if idx := strings.LastIndexByte(content[:cut], '\n'); idx > 0 {
		cut = idx
	}
	head := content[:cut]
	if firstHeading := firstHeadingLine(content); firstHeading != "" && !strings.Contains(head, firstHeading) {
		head = firstHeading + "\n" + head
	}
	return strings.TrimRight(head, "\n ") + "\n" + notice
}

var headingLineRe = regexp.MustCompile(`(?m)^#{1,6}\s+.+$`)

func firstHeadingLine(content string) string {
	return headingLineRe.FindString(content)
}

var collapseRe = regexp.MustCompile(`\s+`)

// NormalizeContent trims and collapses all whitespace runs to single
// spaces, so fingerprints ignore formatting-only changes.
func NormalizeContent(content string) string {
	return collapseRe.ReplaceAllString(strings.TrimSpace(content), " ")
}

// Fingerprint returns the first 16 hex chars of the SHA-256 of the
// normalized content. FullFingerprint is the same digest at full length;
// the short form is always a prefix of the long form.
func Fingerprint(content string) string {
	return FullFingerprint(content)[:16]
}

// FullFingerprint returns all 64 hex chars of the normalized-content digest
func FullFingerprint(content string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// QualityScore rates an extraction in [0,1]. It blends extraction ratio,
// heading presence, markdown structure density, and a minimum length
// floor. Empty content always scores 0.
func QualityScore(content, sourceHTML string) float64 {
	if strings.TrimSpace(content) == "" {
		return 0
	}

	score := 0.0

	// Extraction ratio: too little relative to source suggests a miss
	if len(sourceHTML) > 0 {
		ratio := float64(len(content)) / float64(len(sourceHTML))
		switch {
		case ratio >= 0.1:
			score += 0.4
		case ratio >= 0.02:
			score += 0.25
		default:
			score += 0.1
		}
	} else {
		score += 0.25
	}

	if headingLineRe.MatchString(content) {
		score += 0.2
	}

	// Structure density: links, lists, emphasis
	structural := strings.Count(content, "](") + strings.Count(content, "\n- ") + strings.Count(content, "**")
	if structural > 0 {
		density := float64(structural) / float64(len(content)) * 1000
		if density > 2 {
			density = 2
		}
		score += 0.2 * density / 2
	}

	if len(content) >= 200 {
		score += 0.2
	} else {
		score += 0.2 * float64(len(content)) / 200
	}

	if score > 1 {
		score = 1
	}
	return score
}
