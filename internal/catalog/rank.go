package catalog

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"bitharbor/internal/services/internetarchive"
)

// Candidate is one catalog item eligible for ranking.
type Candidate struct {
	Identifier  string
	Title       string
	Year        int
	Description string
	Creator     string
	Downloads   int64
	AvgRating   float64
	NumReviews  int64
	Subjects    []string
	Languages   []string
}

// FromDoc converts a search document into a ranking candidate.
func FromDoc(doc internetarchive.Doc) Candidate {
	return Candidate{
		Identifier:  doc.Identifier,
		Title:       string(doc.Title),
		Year:        int(doc.Year),
		Description: string(doc.Description),
		Creator:     string(doc.Creator),
		Downloads:   int64(doc.Downloads),
		AvgRating:   float64(doc.AvgRating),
		NumReviews:  int64(doc.NumReviews),
		Subjects:    doc.Subjects,
		Languages:   doc.Languages,
	}
}

// Score computes the popularity score for a candidate: download volume
// dampened by four orders of magnitude plus double-weighted average
// rating. The formula is stable so cached matches rank consistently
// across requests.
func Score(c Candidate) float64 {
	return float64(c.Downloads)/10000 + c.AvgRating*2
}

// Match is a scored candidate.
type Match struct {
	Candidate
	Score float64
}

// Rank scores candidates, collapses duplicates that share a normalized
// title and year, and returns matches best first. Within a duplicate
// group the highest-scoring candidate survives; score ties break toward
// higher downloads, then the lexicographically smaller identifier. The
// final ordering breaks ties the same way.
func Rank(candidates []Candidate) []Match {
	best := make(map[string]Candidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Identifier == "" {
			continue
		}
		key := dedupeKey(candidate.Title, candidate.Year)
		current, seen := best[key]
		if !seen {
			best[key] = candidate
			order = append(order, key)
			continue
		}
		if outranks(candidate, current) {
			best[key] = candidate
		}
	}

	matches := make([]Match, 0, len(order))
	for _, key := range order {
		candidate := best[key]
		matches = append(matches, Match{Candidate: candidate, Score: Score(candidate)})
	}
	sort.Slice(matches, func(i, j int) bool {
		return outranks(matches[i].Candidate, matches[j].Candidate)
	})
	return matches
}

func outranks(a, b Candidate) bool {
	scoreA, scoreB := Score(a), Score(b)
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	if a.Downloads != b.Downloads {
		return a.Downloads > b.Downloads
	}
	return a.Identifier < b.Identifier
}

// dedupeKey folds a title and year into a comparison key: Unicode
// normalization, case folding, and whitespace collapse, so cosmetic
// variants of the same release land in one group.
func dedupeKey(title string, year int) string {
	folded := strings.ToLower(norm.NFKC.String(title))
	folded = strings.Join(strings.Fields(folded), " ")
	return folded + "\x00" + strconv.Itoa(year)
}
