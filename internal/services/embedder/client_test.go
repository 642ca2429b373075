package embedder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitharbor/internal/media"
	"bitharbor/internal/services"
	"bitharbor/internal/services/embedder"
)

func TestEmbedTextRoundTrip(t *testing.T) {
	var captured struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/embed" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"vector": []float32{1, 2, 3, 4}})
	}))
	defer server.Close()

	client := embedder.NewClient(server.URL, 4)
	vec, err := client.EmbedText(context.Background(), "a silent film about a city")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	if len(vec) != 4 || vec[0] != 1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if captured.Kind != "text" || captured.Text != "a silent film about a city" {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
}

func TestEmbedContentSendsPathAndModality(t *testing.T) {
	var captured struct {
		Kind     string `json:"kind"`
		Path     string `json:"path"`
		Modality string `json:"modality"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"vector": []float32{0.5, 0.5}})
	}))
	defer server.Close()

	client := embedder.NewClient(server.URL, 2)
	if _, err := client.EmbedContent(context.Background(), "/pool/video/aa/film.mkv", media.ModalityVideo); err != nil {
		t.Fatalf("EmbedContent failed: %v", err)
	}
	if captured.Kind != "content" || captured.Path != "/pool/video/aa/film.mkv" || captured.Modality != "video" {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
}

func TestEmbedTextImageSendsBothInputs(t *testing.T) {
	var captured struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
		Path string `json:"path"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"vector": []float32{0.1, 0.2}})
	}))
	defer server.Close()

	client := embedder.NewClient(server.URL, 2)
	if _, err := client.EmbedTextImage(context.Background(), "Metropolis. 1927.", "/downloads/metropolis/poster.jpg"); err != nil {
		t.Fatalf("EmbedTextImage failed: %v", err)
	}
	if captured.Kind != "text+image" || captured.Text != "Metropolis. 1927." || captured.Path != "/downloads/metropolis/poster.jpg" {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"vector": []float32{1, 2, 3}})
	}))
	defer server.Close()

	client := embedder.NewClient(server.URL, 8)
	_, err := client.EmbedText(context.Background(), "query")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEmbedClassifiesHTTPFailures(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusServiceUnavailable, services.ErrTransient},
		{http.StatusBadRequest, services.ErrValidation},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		client := embedder.NewClient(server.URL, 4)
		_, err := client.EmbedText(context.Background(), "query")
		if !errors.Is(err, tc.marker) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
		server.Close()
	}
}

func TestEmbedSurfacesServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "model not loaded"})
	}))
	defer server.Close()

	client := embedder.NewClient(server.URL, 4)
	if _, err := client.EmbedText(context.Background(), "query"); err == nil {
		t.Fatal("expected service error to surface")
	}
}

func TestEmbedValidatesInput(t *testing.T) {
	client := embedder.NewClient("http://localhost:0", 4)
	if _, err := client.EmbedText(context.Background(), "  "); err == nil {
		t.Fatal("expected empty text to be rejected")
	}
	if _, err := client.EmbedContent(context.Background(), "", media.ModalityVideo); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
	if _, err := client.EmbedTextImage(context.Background(), "text", ""); err == nil {
		t.Fatal("expected missing image path to be rejected")
	}
}
