package media_test

import (
	"testing"

	"bitharbor/internal/media"
)

func TestMergePriorityOrder(t *testing.T) {
	caller := media.Metadata{Title: "Caller Title"}
	catalog := media.Metadata{Title: "Catalog Title", Year: 1973}
	extracted := media.Metadata{Title: "file name", Year: 2000, Overview: "from file"}

	merged := media.Merge(caller, catalog, extracted)
	if merged.Title != "Caller Title" {
		t.Fatalf("title: got %q, want caller's", merged.Title)
	}
	if merged.Year != 1973 {
		t.Fatalf("year: got %d, want catalog's 1973", merged.Year)
	}
	if merged.Overview != "from file" {
		t.Fatalf("overview: got %q, want extracted fallback", merged.Overview)
	}
}

func TestApplyEnrichmentKeepsIdentifiers(t *testing.T) {
	base := media.Metadata{Title: "Fantastic Planet", Year: 1973}
	enrichment := media.Metadata{
		Title:    "La Planète sauvage",
		Year:     1974,
		Overview: "Enriched overview",
		Genres:   []string{"Animation", "Sci-Fi"},
		Director: "René Laloux",
	}

	out := media.ApplyEnrichment(base, enrichment)
	if out.Title != "Fantastic Planet" {
		t.Fatalf("title overwritten: %q", out.Title)
	}
	if out.Year != 1973 {
		t.Fatalf("year overwritten: %d", out.Year)
	}
	if out.Overview != "Enriched overview" {
		t.Fatalf("overview not enriched: %q", out.Overview)
	}
	if out.Director != "René Laloux" {
		t.Fatalf("director not enriched: %q", out.Director)
	}
}

func TestApplyEnrichmentFillsEmptyIdentifiers(t *testing.T) {
	out := media.ApplyEnrichment(media.Metadata{}, media.Metadata{Title: "Metropolis", Year: 1927})
	if out.Title != "Metropolis" || out.Year != 1927 {
		t.Fatalf("empty identifiers not filled: %+v", out)
	}
}

func TestTextBlob(t *testing.T) {
	meta := media.Metadata{
		Title:    "Metropolis",
		Year:     1927,
		Genres:   []string{"Sci-Fi", "Drama"},
		Overview: "A futuristic city.",
	}
	blob := meta.TextBlob("fallback")
	want := "Metropolis. 1927. Sci-Fi Drama. A futuristic city."
	if blob != want {
		t.Fatalf("blob: got %q, want %q", blob, want)
	}

	if got := (media.Metadata{}).TextBlob("fallback title"); got != "fallback title" {
		t.Fatalf("fallback blob: got %q", got)
	}
}

func TestTitleFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/media/fantastic_planet_1973.mkv", "fantastic planet 1973"},
		{"clip.mp4", "clip"},
		{"____.mp4", "Untitled"},
	}
	for _, tc := range cases {
		if got := media.TitleFromPath(tc.path); got != tc.want {
			t.Fatalf("TitleFromPath(%q): got %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestParseType(t *testing.T) {
	if _, err := media.ParseType("hologram"); err == nil {
		t.Fatal("expected error for unknown type")
	}
	typ, err := media.ParseType(" Movie ")
	if err != nil {
		t.Fatalf("ParseType failed: %v", err)
	}
	if typ != media.TypeMovie {
		t.Fatalf("got %q, want movie", typ)
	}
}
