// -----------------------------------------------------------------------
// Key Points, Entities, Numbers and Dates
// -----------------------------------------------------------------------

package heuristics

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultDedupeThreshold is the Jaccard similarity above which two key
// points are considered the same.
const DefaultDedupeThreshold = 0.6

type scoredSentence struct {
	text  string
	score float64
}

// KeyPoints scores sentences against a query and returns the top n after
// near-duplicate removal.
//
// Score = 3·queryOverlap + 0.5·numberHits(cap 2) + 1 if any signal word
// + 0.5 if length is 60–300.
func KeyPoints(content, query string, n int) []string {
	sentences := SplitSentences(content)
	queryTokens := wordSet(query)

	scored := make([]scoredSentence, 0, len(sentences))
	for _, s := range sentences {
		scored = append(scored, scoredSentence{s, scoreSentence(s, queryTokens)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	ranked := make([]string, 0, len(scored))
	for _, sc := range scored {
		if sc.score > 0 {
			ranked = append(ranked, sc.text)
		}
	}
	ranked = Dedupe(ranked, DefaultDedupeThreshold)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func scoreSentence(sentence string, queryTokens map[string]struct{}) float64 {
	score := 0.0

	overlap := 0
	for w := range wordSet(sentence) {
		if _, ok := queryTokens[w]; ok {
			overlap++
		}
	}
	score += 3 * float64(overlap)

	numbers := len(numberRe.FindAllString(sentence, -1))
	if numbers > 2 {
		numbers = 2
	}
	score += 0.5 * float64(numbers)

	lower := strings.ToLower(sentence)
	for _, sig := range signalWords {
		if strings.Contains(lower, sig) {
			score += 1
			break
		}
	}

	if len(sentence) >= 60 && len(sentence) <= 300 {
		score += 0.5
	}
	return score
}

var capitalizedSeqRe = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]*(?:\s+[A-Z][a-zA-Z0-9]*)*\b`)

// entityStopwords filters sequences that merely start a sentence
var entityStopwords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "These": {}, "Those": {}, "A": {}, "An": {},
	"It": {}, "We": {}, "You": {}, "They": {}, "He": {}, "She": {}, "I": {},
	"In": {}, "On": {}, "At": {}, "For": {}, "With": {}, "From": {}, "But": {},
	"And": {}, "Or": {}, "If": {}, "When": {}, "While": {}, "However": {},
	"January": {}, "February": {}, "March": {}, "April": {}, "May": {}, "June": {},
	"July": {}, "August": {}, "September": {}, "October": {}, "November": {}, "December": {},
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {}, "Friday": {},
	"Saturday": {}, "Sunday": {},
}

// Entities finds capitalized word sequences appearing in at least two
// distinct sources and returns the top 20 by total frequency.
func Entities(sources []string) []string {
	freq := make(map[string]int)
	sourceCount := make(map[string]map[int]struct{})

	for idx, source := range sources {
		for _, match := range capitalizedSeqRe.FindAllString(source, -1) {
			match = strings.TrimSpace(match)
			if _, stop := entityStopwords[match]; stop || len(match) < 3 {
				continue
			}
			freq[match]++
			if sourceCount[match] == nil {
				sourceCount[match] = make(map[int]struct{})
			}
			sourceCount[match][idx] = struct{}{}
		}
	}

	type entity struct {
		name  string
		count int
	}
	var candidates []entity
	for name, count := range freq {
		if len(sourceCount[name]) >= 2 {
			candidates = append(candidates, entity{name, count})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > 20 {
		candidates = candidates[:20]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

var (
	priceRe   = regexp.MustCompile(`[$€£¥]\s?\d[\d,.]*(?:\s?(?:million|billion|M|B|K))?`)
	percentRe = regexp.MustCompile(`\d[\d.]*\s?%`)
	countRe   = regexp.MustCompile(`\d[\d,.]*\s?(?:million|billion|thousand|K|M|B)\b`)

	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`Q[1-4]\s+\d{4}`),
	}
)

// Figures holds the numeric and temporal facts pulled from content
type Figures struct {
	Prices   []string `json:"prices"`
	Percents []string `json:"percents"`
	Counts   []string `json:"counts"`
	Dates    []string `json:"dates"`
}

// ExtractFigures pulls prices, percentages, magnitude counts (capped at 5
// each) and dates (deduplicated, capped at 10) from content.
func ExtractFigures(content string) *Figures {
	f := &Figures{
		Prices:   capped(priceRe.FindAllString(content, -1), 5),
		Percents: capped(percentRe.FindAllString(content, -1), 5),
		Counts:   capped(countRe.FindAllString(content, -1), 5),
	}

	seen := make(map[string]struct{})
	for _, re := range dateRes {
		for _, d := range re.FindAllString(content, -1) {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			f.Dates = append(f.Dates, d)
			if len(f.Dates) >= 10 {
				return f
			}
		}
	}
	return f
}

func capped(items []string, n int) []string {
	if items == nil {
		return []string{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
