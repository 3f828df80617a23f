// -----------------------------------------------------------------------
// Comparison Detection and Table Building
// -----------------------------------------------------------------------

package heuristics

import (
	"regexp"
	"strings"
)

var comparisonTriggers = []string{"vs", "versus", "compare", "comparison", "difference", "alternative"}

var comparisonEntityRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([\w .-]+?)\s+(?:vs\.?|versus)\s+([\w .-]+)`),
	regexp.MustCompile(`(?i)compare\s+([\w .-]+?)\s+(?:and|with|to)\s+([\w .-]+)`),
	regexp.MustCompile(`(?i)difference\s+between\s+([\w .-]+?)\s+and\s+([\w .-]+)`),
}

// comparisonColumns are filled per entity from paragraphs mentioning it
var comparisonColumns = map[string]*regexp.Regexp{
	"price":    regexp.MustCompile(`(?i)(?:price|cost|pricing|per month|/mo)[^.]*`),
	"features": regexp.MustCompile(`(?i)(?:feature|offers|includes|supports)[^.]*`),
	"pros":     regexp.MustCompile(`(?i)(?:pros|advantage|benefit|strength)[^.]*`),
	"cons":     regexp.MustCompile(`(?i)(?:cons|disadvantage|drawback|weakness|limitation)[^.]*`),
	"platform": regexp.MustCompile(`(?i)(?:platform|available on|works on|supports? (?:windows|mac|linux|ios|android))[^.]*`),
	"rating":   regexp.MustCompile(`(?i)(?:rating|rated|stars|score)[^.]*`),
}

// IsComparisonQuery reports whether a query asks for a comparison
func IsComparisonQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, trigger := range comparisonTriggers {
		if regexp.MustCompile(`\b` + trigger + `\b`).MatchString(lower) {
			return true
		}
	}
	return false
}

// ComparedEntities extracts the pair of entities a comparison query names
func ComparedEntities(query string) []string {
	for _, re := range comparisonEntityRes {
		if m := re.FindStringSubmatch(query); m != nil {
			a := strings.TrimSpace(m[1])
			b := strings.TrimSpace(m[2])
			if a != "" && b != "" {
				return []string{a, b}
			}
		}
	}
	return nil
}

// ComparisonRow is one entity's column values in a comparison table
type ComparisonRow struct {
	Entity   string `json:"entity"`
	Price    string `json:"price"`
	Features string `json:"features"`
	Pros     string `json:"pros"`
	Cons     string `json:"cons"`
	Platform string `json:"platform"`
	Rating   string `json:"rating"`
}

// BuildComparisonTable fills one row per entity from the first pattern
// match in paragraphs mentioning it, each cell truncated to 120 chars,
// N/A when no paragraph matches.
func BuildComparisonTable(content string, entities []string) []ComparisonRow {
	paragraphs := strings.Split(content, "\n\n")
	rows := make([]ComparisonRow, 0, len(entities))

	for _, entity := range entities {
		row := ComparisonRow{
			Entity: entity, Price: "N/A", Features: "N/A", Pros: "N/A",
			Cons: "N/A", Platform: "N/A", Rating: "N/A",
		}
		entityLower := strings.ToLower(entity)

		for _, para := range paragraphs {
			if !strings.Contains(strings.ToLower(para), entityLower) {
				continue
			}
			fill(&row.Price, comparisonColumns["price"], para)
			fill(&row.Features, comparisonColumns["features"], para)
			fill(&row.Pros, comparisonColumns["pros"], para)
			fill(&row.Cons, comparisonColumns["cons"], para)
			fill(&row.Platform, comparisonColumns["platform"], para)
			fill(&row.Rating, comparisonColumns["rating"], para)
		}
		rows = append(rows, row)
	}
	return rows
}

func fill(cell *string, re *regexp.Regexp, paragraph string) {
	if *cell != "N/A" {
		return
	}
	if m := re.FindString(paragraph); m != "" {
		m = strings.TrimSpace(m)
		if len(m) > 120 {
			m = m[:120]
		}
		*cell = m
	}
}
