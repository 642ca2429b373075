package internetarchive_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bitharbor/internal/services/internetarchive"
)

var videoExtensions = []string{".mp4", ".mkv"}

func TestSearchBuildsAdvancedSearchQuery(t *testing.T) {
	var captured url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/advancedsearch.php" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		captured = r.URL.Query()
		w.Write([]byte(`{"response":{"numFound":2,"docs":[
			{"identifier":"metropolis-1927","title":"Metropolis","year":"1927",
			 "downloads":125000,"avg_rating":"4.5","subject":["Sci-Fi","Silent"],"language":"German"},
			{"identifier":"metropolis-clip","title":["Metropolis","Clip"],"year":1927,"downloads":"500"}
		]}}`))
	}))
	defer server.Close()

	client := internetarchive.NewClient(internetarchive.WithBaseURL(server.URL))
	docs, err := client.Search(context.Background(), internetarchive.Query{Title: "Metropolis", Year: 1927, Rows: 25})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	wantQuery := `mediatype:movies AND title:"Metropolis" AND year:1927`
	if got := captured.Get("q"); got != wantQuery {
		t.Fatalf("query: got %q, want %q", got, wantQuery)
	}
	if got := captured.Get("rows"); got != "25" {
		t.Fatalf("rows: got %q", got)
	}
	if got := captured["sort[]"]; len(got) != 1 || got[0] != "downloads desc" {
		t.Fatalf("sort: got %v", got)
	}
	if got := captured.Get("output"); got != "json" {
		t.Fatalf("output: got %q", got)
	}
	if len(captured["fl[]"]) == 0 {
		t.Fatal("field list missing")
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	// Flexible fields absorb the archive's mixed scalar/array shapes.
	first := docs[0]
	if string(first.Title) != "Metropolis" || int(first.Year) != 1927 {
		t.Fatalf("unexpected first doc: %+v", first)
	}
	if int64(first.Downloads) != 125000 || float64(first.AvgRating) != 4.5 {
		t.Fatalf("numeric fields: %+v", first)
	}
	if len(first.Subjects) != 2 || len(first.Languages) != 1 {
		t.Fatalf("list fields: %+v", first)
	}
	second := docs[1]
	if !strings.Contains(string(second.Title), "Metropolis") || int64(second.Downloads) != 500 {
		t.Fatalf("unexpected second doc: %+v", second)
	}
}

func TestSearchRequiresTitle(t *testing.T) {
	client := internetarchive.NewClient()
	if _, err := client.Search(context.Background(), internetarchive.Query{}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestFetchMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata/metropolis-1927" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"files":[
			{"name":"film.mp4","format":"MPEG4","size":"734003200","source":"original"},
			{"name":"film.gif","format":"Animated GIF","size":"1024","source":"derivative"}
		],"metadata":{"title":"Metropolis"}}`))
	}))
	defer server.Close()

	client := internetarchive.NewClient(internetarchive.WithBaseURL(server.URL))
	item, err := client.FetchMetadata(context.Background(), "metropolis-1927")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if len(item.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(item.Files))
	}
	if item.Files[0].Name != "film.mp4" || int64(item.Files[0].Size) != 734003200 {
		t.Fatalf("unexpected file: %+v", item.Files[0])
	}
}

func decodeFiles(t *testing.T, raw string) []internetarchive.ItemFile {
	t.Helper()
	var files []internetarchive.ItemFile
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		t.Fatalf("decode files: %v", err)
	}
	return files
}

func TestSelectVideoFilePrefersOriginals(t *testing.T) {
	files := decodeFiles(t, `[
		{"name":"big_derivative.mp4","size":900000,"source":"derivative"},
		{"name":"original.mkv","size":500000,"source":"original"},
		{"name":"notes.txt","size":999999999,"source":"original"}
	]`)
	picked := internetarchive.SelectVideoFile(files, videoExtensions)
	if picked.Name != "original.mkv" {
		t.Fatalf("picked %q, want original.mkv", picked.Name)
	}
}

func TestSelectVideoFileLargestWithinClass(t *testing.T) {
	files := decodeFiles(t, `[
		{"name":"small.mp4","size":100,"source":"original"},
		{"name":"large.mp4","size":200,"source":"original"}
	]`)
	if picked := internetarchive.SelectVideoFile(files, videoExtensions); picked.Name != "large.mp4" {
		t.Fatalf("picked %q, want large.mp4", picked.Name)
	}
}

func TestSelectImageFile(t *testing.T) {
	files := decodeFiles(t, `[
		{"name":"__ia_thumb.jpg","size":4000,"source":"derivative"},
		{"name":"poster.jpg","size":90000,"source":"original"},
		{"name":"film.mp4","size":500000,"source":"original"}
	]`)
	picked := internetarchive.SelectImageFile(files, []string{".jpg", ".png"})
	if picked.Name != "poster.jpg" {
		t.Fatalf("picked %q, want poster.jpg", picked.Name)
	}
}

func TestSelectVideoFileNoMatch(t *testing.T) {
	files := decodeFiles(t, `[{"name":"cover.jpg","size":100}]`)
	if picked := internetarchive.SelectVideoFile(files, videoExtensions); picked.Name != "" {
		t.Fatalf("expected no pick, got %q", picked.Name)
	}
}

func TestDownloadFile(t *testing.T) {
	const payload = "video bytes"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download/metropolis-1927/film.mp4" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(payload))
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := internetarchive.NewClient(internetarchive.WithBaseURL(server.URL))
	local, err := client.DownloadFile(context.Background(), "metropolis-1927", "film.mp4", destDir)
	if err != nil {
		t.Fatalf("DownloadFile failed: %v", err)
	}
	want := filepath.Join(destDir, "metropolis-1927", "film.mp4")
	if local != want {
		t.Fatalf("local path: got %q, want %q", local, want)
	}
	content, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(content) != payload {
		t.Fatalf("unexpected content: %q", content)
	}

	entries, err := os.ReadDir(filepath.Dir(local))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".download-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}
