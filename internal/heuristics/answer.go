// -----------------------------------------------------------------------
// Quick Answer - BM25 passage ranking over page content
// -----------------------------------------------------------------------

package heuristics

import (
	"math"
	"sort"
	"strings"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75

	// DefaultPassages is the number of top passages returned
	DefaultPassages = 3
)

// Passage is one ranked answer candidate with its context window
type Passage struct {
	Text    string  `json:"text"`
	Context string  `json:"context"`
	Score   float64 `json:"score"`
}

// QuickAnswer ranks sentences with BM25 against the question and returns
// the top passages with a confidence in [0,1].
//
// Question-type boosts: numeric sentences for "how many"/"how much", date
// sentences for "when", definition patterns for "what is", causal phrasing
// for "why".
func QuickAnswer(content, question string, topK int) ([]Passage, float64) {
	if topK <= 0 {
		topK = DefaultPassages
	}
	sentences := SplitSentences(content)
	if len(sentences) == 0 {
		return nil, 0
	}
	questionTokens := Tokenize(question)
	if len(questionTokens) == 0 {
		return nil, 0
	}

	docs := make([][]string, len(sentences))
	totalLen := 0
	for i, s := range sentences {
		docs[i] = Tokenize(s)
		totalLen += len(docs[i])
	}
	avgLen := float64(totalLen) / float64(len(docs))

	// Document frequency per question token
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, w := range doc {
			seen[w] = struct{}{}
		}
		for _, q := range questionTokens {
			if _, ok := seen[q]; ok {
				df[q]++
			}
		}
	}

	n := float64(len(docs))
	idf := func(term string) float64 {
		d := float64(df[term])
		return math.Log((n-d+0.5)/(d+0.5) + 1)
	}

	boost := questionBoost(question)

	type scored struct {
		index int
		score float64
	}
	var ranked []scored
	for i, doc := range docs {
		tf := make(map[string]int)
		for _, w := range doc {
			tf[w]++
		}
		score := 0.0
		for _, q := range questionTokens {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			norm := f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*float64(len(doc))/avgLen))
			score += idf(q) * norm
		}
		if score > 0 {
			score += boost(sentences[i])
		}
		ranked = append(ranked, scored{i, score})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	// Theoretical max: every question term at saturation in one sentence
	maxScore := 0.0
	for _, q := range questionTokens {
		maxScore += idf(q) * (bm25K1 + 1)
	}
	confidence := 0.0
	if maxScore > 0 && len(ranked) > 0 && ranked[0].score > 0 {
		confidence = ranked[0].score / maxScore
		if confidence > 1 {
			confidence = 1
		}
	}

	var passages []Passage
	for _, r := range ranked {
		if r.score <= 0 || len(passages) >= topK {
			break
		}
		passages = append(passages, Passage{
			Text:    sentences[r.index],
			Context: contextWindow(sentences, r.index),
			Score:   r.score,
		})
	}
	return passages, confidence
}

// questionBoost returns a small additive bonus keyed on question type
func questionBoost(question string) func(sentence string) float64 {
	lower := strings.ToLower(question)
	const epsilon = 0.5

	switch {
	case strings.Contains(lower, "how many") || strings.Contains(lower, "how much"):
		return func(s string) float64 {
			if numberRe.MatchString(s) {
				return epsilon
			}
			return 0
		}
	case strings.Contains(lower, "when"):
		return func(s string) float64 {
			for _, re := range dateRes {
				if re.MatchString(s) {
					return epsilon
				}
			}
			if numberRe.MatchString(s) {
				return epsilon / 2
			}
			return 0
		}
	case strings.Contains(lower, "what is") || strings.Contains(lower, "what are"):
		return func(s string) float64 {
			sl := strings.ToLower(s)
			if strings.Contains(sl, " is ") || strings.Contains(sl, " are ") ||
				strings.Contains(sl, " means ") || strings.Contains(sl, " refers to ") {
				return epsilon
			}
			return 0
		}
	case strings.Contains(lower, "why"):
		return func(s string) float64 {
			sl := strings.ToLower(s)
			if strings.Contains(sl, "because") || strings.Contains(sl, "due to") ||
				strings.Contains(sl, "as a result") || strings.Contains(sl, "caused by") {
				return epsilon
			}
			return 0
		}
	}
	return func(string) float64 { return 0 }
}

func contextWindow(sentences []string, index int) string {
	start := index - 1
	if start < 0 {
		start = 0
	}
	end := index + 2
	if end > len(sentences) {
		end = len(sentences)
	}
	return strings.Join(sentences[start:end], " ")
}
