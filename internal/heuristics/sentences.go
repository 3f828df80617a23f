// -----------------------------------------------------------------------
// Sentence Splitting and Scoring Primitives
// -----------------------------------------------------------------------

package heuristics

import (
	"regexp"
	"strings"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+\s+`)
	wordRe          = regexp.MustCompile(`[A-Za-z0-9']+`)
	numberRe        = regexp.MustCompile(`\d[\d,.]*%?`)
)

// signalWords mark sentences likely to carry substance
var signalWords = []string{
	"important", "key", "significant", "announced", "launched", "released",
	"increased", "decreased", "growth", "revenue", "first", "best", "new",
	"major", "critical", "essential", "primary",
}

// SplitSentences breaks content into sentences between 20 and 500
// characters long.
func SplitSentences(content string) []string {
	raw := sentenceSplitRe.Split(content, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) >= 20 && len(s) <= 500 {
			out = append(out, s)
		}
	}
	return out
}

// Tokenize lowercases and splits text into word tokens
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Tokenize(text) {
		if len(w) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

// JaccardSimilarity measures word-set overlap between two sentences,
// considering only words longer than 2 characters.
func JaccardSimilarity(a, b string) float64 {
	setA, setB := wordSet(a), wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// Dedupe removes near-duplicate sentences at the given Jaccard threshold,
// keeping the longer of each similar pair.
func Dedupe(sentences []string, threshold float64) []string {
	var out []string
	for _, candidate := range sentences {
		replaced := false
		dup := false
		for i, kept := range out {
			if JaccardSimilarity(candidate, kept) >= threshold {
				if len(candidate) > len(kept) {
					out[i] = candidate
					replaced = true
				}
				dup = true
				break
			}
		}
		if !dup && !replaced {
			out = append(out, candidate)
		}
	}
	return out
}
