package registry

import (
	"sort"
	"strings"
)

const maxSuggestions = 3

// suggestionsFor ranks candidates by edit distance to query and returns
// the closest few. Candidates further than half their own length away are
// dropped so unrelated ids do not surface as suggestions.
func suggestionsFor(query string, candidates []string) []string {
	query = strings.ToLower(query)

	type scored struct {
		value string
		dist  int
	}
	var ranked []scored
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		d := editDistance(query, strings.ToLower(c))
		limit := len(c)/2 + 1
		if d <= limit {
			ranked = append(ranked, scored{value: c, dist: d})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].value < ranked[j].value
	})

	n := len(ranked)
	if n > maxSuggestions {
		n = maxSuggestions
	}
	out := make([]string, 0, n)
	for _, s := range ranked[:n] {
		out = append(out, s.value)
	}
	return out
}

// editDistance computes the Levenshtein distance between two strings
// using a two-row dynamic programming table.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
