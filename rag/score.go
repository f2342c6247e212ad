package rag

import (
	"regexp"
	"sort"
	"strings"
)

var nonWord = regexp.MustCompile(`\W+`)

// Tokenize lower-cases query and splits it on non-word characters, keeping
// each distinct token once in first-seen order.
func Tokenize(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range nonWord.Split(strings.ToLower(query), -1) {
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// Score counts the tokens that occur as substrings of the entry's id and
// description.
func Score(e Entry, tokens []string) int {
	hay := strings.ToLower(e.ID + " " + e.Description)
	n := 0
	for _, tok := range tokens {
		if strings.Contains(hay, tok) {
			n++
		}
	}
	return n
}

// FindRelevant returns at most limit entries ordered by descending score.
// Entries with equal scores keep their index order, so a query without
// tokens returns the first limit entries. A non-positive limit yields
// nothing.
func (r *Repository) FindRelevant(query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	tokens := Tokenize(query)
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}
	return rank(entries, tokens, limit), nil
}

func rank(entries []Entry, tokens []string, limit int) []Entry {
	scores := make([]int, len(entries))
	order := make([]int, len(entries))
	for i, e := range entries {
		scores[i] = Score(e, tokens)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	out := make([]Entry, 0, min(limit, len(entries)))
	for _, i := range order[:min(limit, len(order))] {
		out = append(out, entries[i])
	}
	return out
}
