package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bitharbor/internal/media"
	"bitharbor/internal/services"
)

const (
	defaultBaseURL     = "https://api.themoviedb.org/3"
	defaultLanguage    = "en-US"
	defaultHTTPTimeout = 30 * time.Second
)

// ErrNoMatch indicates the search returned no usable candidate. Callers
// treat it as a degraded outcome, not a failure.
var ErrNoMatch = errors.New("tmdb: no match found")

// Client wraps The Movie Database API for descriptive enrichment.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// Option customizes the TMDb client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithLanguage overrides the default response language.
func WithLanguage(language string) Option {
	return func(c *Client) {
		language = strings.TrimSpace(language)
		if language != "" {
			c.language = language
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a TMDb API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchResponse struct {
	Results []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
	} `json:"results"`
}

type movieDetails struct {
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	Overview      string `json:"overview"`
	ReleaseDate   string `json:"release_date"`
	Runtime       int    `json:"runtime"`
	Genres        []struct {
		Name string `json:"name"`
	} `json:"genres"`
	SpokenLanguages []struct {
		ISO6391 string `json:"iso_639_1"`
	} `json:"spoken_languages"`
	ProductionCountries []struct {
		ISO31661 string `json:"iso_3166_1"`
	} `json:"production_countries"`
	Credits struct {
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

// EnrichMovie looks a movie up by title and optional year and returns a
// descriptive metadata layer plus the raw provider payload for archival.
// ErrNoMatch means the title could not be identified.
func (c *Client) EnrichMovie(ctx context.Context, title string, year int) (media.Metadata, string, error) {
	var empty media.Metadata
	title = strings.TrimSpace(title)
	if title == "" {
		return empty, "", errors.New("tmdb enrich: title required")
	}
	if c.apiKey == "" {
		return empty, "", errors.New("tmdb enrich: api key required")
	}

	query := url.Values{}
	query.Set("query", title)
	if year > 0 {
		query.Set("year", strconv.Itoa(year))
	}
	var search searchResponse
	if err := c.get(ctx, "/search/movie", query, &search); err != nil {
		return empty, "", err
	}
	if len(search.Results) == 0 {
		return empty, "", ErrNoMatch
	}

	movieID := search.Results[0].ID
	detailQuery := url.Values{}
	detailQuery.Set("append_to_response", "credits")

	var details movieDetails
	raw, err := c.getRaw(ctx, "/movie/"+strconv.FormatInt(movieID, 10), detailQuery)
	if err != nil {
		return empty, "", err
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return empty, "", fmt.Errorf("tmdb enrich: decode details: %w", err)
	}

	return mapDetails(details), string(raw), nil
}

func mapDetails(details movieDetails) media.Metadata {
	meta := media.Metadata{
		Title:         details.Title,
		OriginalTitle: details.OriginalTitle,
		Overview:      details.Overview,
		RuntimeMin:    details.Runtime,
	}
	if len(details.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(details.ReleaseDate[:4]); err == nil {
			meta.Year = year
		}
	}
	for _, genre := range details.Genres {
		meta.Genres = append(meta.Genres, genre.Name)
	}
	for _, language := range details.SpokenLanguages {
		meta.Languages = append(meta.Languages, language.ISO6391)
	}
	for _, country := range details.ProductionCountries {
		meta.Countries = append(meta.Countries, country.ISO31661)
	}
	for _, member := range details.Credits.Crew {
		if member.Job == "Director" {
			meta.Director = member.Name
			break
		}
	}
	return meta
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	raw, err := c.getRaw(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("tmdb: decode response: %w", err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("tmdb: build url: %w", err)
	}
	query.Set("api_key", c.apiKey)
	query.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("tmdb: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "enrich", "tmdb", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tmdb: read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoMatch
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("tmdb: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
