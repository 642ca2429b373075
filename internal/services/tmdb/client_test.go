package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitharbor/internal/services/tmdb"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") == "" {
			t.Error("api_key missing from request")
		}
		switch {
		case r.URL.Path == "/search/movie":
			if r.URL.Query().Get("query") == "Unknown Film" {
				w.Write([]byte(`{"results":[]}`))
				return
			}
			w.Write([]byte(`{"results":[{"id":19,"title":"Metropolis","release_date":"1927-01-10"}]}`))
		case strings.HasPrefix(r.URL.Path, "/movie/19"):
			if r.URL.Query().Get("append_to_response") != "credits" {
				t.Errorf("credits not appended: %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{
				"title":"Metropolis","original_title":"Metropolis",
				"overview":"In a futuristic city sharply divided between the working class and the city planners.",
				"release_date":"1927-01-10","runtime":153,
				"genres":[{"name":"Drama"},{"name":"Science Fiction"}],
				"spoken_languages":[{"iso_639_1":"de"}],
				"production_countries":[{"iso_3166_1":"DE"}],
				"credits":{"crew":[
					{"name":"Erich Pommer","job":"Producer"},
					{"name":"Fritz Lang","job":"Director"}
				]}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestEnrichMovie(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := tmdb.NewClient("key", tmdb.WithBaseURL(server.URL))
	meta, raw, err := client.EnrichMovie(context.Background(), "Metropolis", 1927)
	if err != nil {
		t.Fatalf("EnrichMovie failed: %v", err)
	}
	if meta.Title != "Metropolis" || meta.Year != 1927 || meta.RuntimeMin != 153 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.Director != "Fritz Lang" {
		t.Fatalf("director: got %q", meta.Director)
	}
	if len(meta.Genres) != 2 || meta.Genres[1] != "Science Fiction" {
		t.Fatalf("genres: %v", meta.Genres)
	}
	if len(meta.Languages) != 1 || meta.Languages[0] != "de" {
		t.Fatalf("languages: %v", meta.Languages)
	}
	if len(meta.Countries) != 1 || meta.Countries[0] != "DE" {
		t.Fatalf("countries: %v", meta.Countries)
	}
	if !strings.Contains(raw, `"runtime":153`) {
		t.Fatal("raw payload not preserved")
	}
}

func TestEnrichMovieNoMatch(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := tmdb.NewClient("key", tmdb.WithBaseURL(server.URL))
	_, _, err := client.EnrichMovie(context.Background(), "Unknown Film", 0)
	if !errors.Is(err, tmdb.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestEnrichMovieRequiresInput(t *testing.T) {
	client := tmdb.NewClient("key")
	if _, _, err := client.EnrichMovie(context.Background(), "  ", 0); err == nil {
		t.Fatal("expected error for empty title")
	}
	noKey := tmdb.NewClient("")
	if _, _, err := noKey.EnrichMovie(context.Background(), "Metropolis", 0); err == nil {
		t.Fatal("expected error without api key")
	}
}
