package catalog_test

import (
	"math"
	"testing"

	"bitharbor/internal/catalog"
)

func TestScoreFormula(t *testing.T) {
	got := catalog.Score(catalog.Candidate{Downloads: 125000, AvgRating: 4.5})
	if math.Abs(got-21.5) > 1e-9 {
		t.Fatalf("score: got %v, want 21.5", got)
	}
	if catalog.Score(catalog.Candidate{}) != 0 {
		t.Fatal("empty candidate should score zero")
	}
}

func TestRankOrdersByScore(t *testing.T) {
	matches := catalog.Rank([]catalog.Candidate{
		{Identifier: "metropolis-lq", Title: "Metropolis", Year: 1927, Downloads: 500, AvgRating: 3.0},
		{Identifier: "metropolis-restored", Title: "Metropolis Restored", Year: 2010, Downloads: 125000, AvgRating: 4.5},
	})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Identifier != "metropolis-restored" {
		t.Fatalf("best match: got %s", matches[0].Identifier)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("scores not descending: %v, %v", matches[0].Score, matches[1].Score)
	}
}

func TestRankCollapsesDuplicates(t *testing.T) {
	matches := catalog.Rank([]catalog.Candidate{
		{Identifier: "metropolis-b", Title: "Metropolis", Year: 1927, Downloads: 100},
		{Identifier: "metropolis-a", Title: "  METROPOLIS ", Year: 1927, Downloads: 100},
		{Identifier: "metropolis-big", Title: "metropolis", Year: 1927, Downloads: 9000},
		{Identifier: "other", Title: "Metropolis", Year: 2001, Downloads: 50},
	})
	if len(matches) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(matches))
	}
	// Within the 1927 group, the highest score wins.
	if matches[0].Identifier != "metropolis-big" {
		t.Fatalf("group winner: got %s", matches[0].Identifier)
	}
}

func TestRankGroupWinnerByScoreNotDownloads(t *testing.T) {
	matches := catalog.Rank([]catalog.Candidate{
		{Identifier: "many-downloads", Title: "Metropolis", Year: 1927, Downloads: 30000, AvgRating: 0},
		{Identifier: "highly-rated", Title: "Metropolis", Year: 1927, Downloads: 0, AvgRating: 5.0},
	})
	if len(matches) != 1 {
		t.Fatalf("expected one survivor, got %d", len(matches))
	}
	// Score 10 beats score 3 even with zero downloads.
	if matches[0].Identifier != "highly-rated" {
		t.Fatalf("survivor: got %s (score %v), want highly-rated", matches[0].Identifier, matches[0].Score)
	}
}

func TestRankFinalOrderScoreTieBreaksOnDownloads(t *testing.T) {
	// Equal scores across groups: downloads/10000 == rating*2.
	matches := catalog.Rank([]catalog.Candidate{
		{Identifier: "rated", Title: "One", Year: 1950, Downloads: 0, AvgRating: 1.0},
		{Identifier: "downloaded", Title: "Two", Year: 1960, Downloads: 20000, AvgRating: 0},
	})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Identifier != "downloaded" {
		t.Fatalf("equal scores must order by downloads: got %s first", matches[0].Identifier)
	}
}

func TestRankDownloadTieBreaksOnIdentifier(t *testing.T) {
	matches := catalog.Rank([]catalog.Candidate{
		{Identifier: "zeta", Title: "Same", Year: 1950, Downloads: 10},
		{Identifier: "alpha", Title: "Same", Year: 1950, Downloads: 10},
	})
	if len(matches) != 1 || matches[0].Identifier != "alpha" {
		t.Fatalf("tie break: got %+v", matches)
	}
}

func TestRankSkipsMissingIdentifiers(t *testing.T) {
	matches := catalog.Rank([]catalog.Candidate{
		{Title: "No Identifier", Year: 1960, Downloads: 999},
		{Identifier: "real", Title: "Real", Year: 1960},
	})
	if len(matches) != 1 || matches[0].Identifier != "real" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}
