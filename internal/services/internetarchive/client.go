package internetarchive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bitharbor/internal/services"
)

const (
	defaultBaseURL     = "https://archive.org"
	defaultHTTPTimeout = 60 * time.Second
	maxRows            = 10000
)

// searchFields is the field list requested from advancedsearch. Downloads
// and average rating feed match scoring; the rest feeds metadata.
var searchFields = []string{
	"identifier", "title", "year", "description", "creator",
	"downloads", "avg_rating", "num_reviews", "subject", "language", "mediatype",
}

// Client wraps the Internet Archive advancedsearch and metadata APIs.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the Internet Archive client.
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

// NewClient constructs an Internet Archive client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Query describes one movie catalog search.
type Query struct {
	Title string
	Year  int
	Rows  int
	Page  int
}

func (q Query) encode() string {
	terms := []string{"mediatype:movies"}
	if title := strings.TrimSpace(q.Title); title != "" {
		terms = append(terms, fmt.Sprintf("title:%q", title))
	}
	if q.Year > 0 {
		terms = append(terms, fmt.Sprintf("year:%d", q.Year))
	}
	return strings.Join(terms, " AND ")
}

// Doc is one search result document. The archive serves most fields as
// either scalars or arrays depending on the item, so the flexible types
// absorb both shapes.
type Doc struct {
	Identifier  string     `json:"identifier"`
	Title       flexString `json:"title"`
	Year        flexInt    `json:"year"`
	Description flexString `json:"description"`
	Creator     flexString `json:"creator"`
	Downloads   flexInt    `json:"downloads"`
	AvgRating   flexFloat  `json:"avg_rating"`
	NumReviews  flexInt    `json:"num_reviews"`
	Subjects    flexList   `json:"subject"`
	Languages   flexList   `json:"language"`
}

type searchResponse struct {
	Response struct {
		NumFound int   `json:"numFound"`
		Docs     []Doc `json:"docs"`
	} `json:"response"`
}

// Search runs an advancedsearch query sorted by downloads descending.
func (c *Client) Search(ctx context.Context, query Query) ([]Doc, error) {
	if strings.TrimSpace(query.Title) == "" {
		return nil, errors.New("internetarchive search: title required")
	}
	rows := query.Rows
	if rows <= 0 {
		rows = 50
	}
	if rows > maxRows {
		rows = maxRows
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	params := url.Values{}
	params.Set("q", query.encode())
	for _, field := range searchFields {
		params.Add("fl[]", field)
	}
	params.Add("sort[]", "downloads desc")
	params.Set("rows", strconv.Itoa(rows))
	params.Set("page", strconv.Itoa(page))
	params.Set("output", "json")

	endpoint := c.baseURL + "/advancedsearch.php?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("internetarchive search: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "catalog", "search", "archive.org unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("internetarchive search: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("internetarchive search: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("internetarchive search: decode response: %w", err)
	}
	return decoded.Response.Docs, nil
}

// ItemFile is one file inside an archive item.
type ItemFile struct {
	Name   string     `json:"name"`
	Format string     `json:"format"`
	Size   flexInt    `json:"size"`
	Source flexString `json:"source"`
}

// ItemMetadata is the metadata API response for one item.
type ItemMetadata struct {
	Files    []ItemFile     `json:"files"`
	Metadata map[string]any `json:"metadata"`
}

// FetchMetadata fetches the file listing and item metadata for an
// identifier.
func (c *Client) FetchMetadata(ctx context.Context, identifier string) (*ItemMetadata, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.New("internetarchive metadata: identifier required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/metadata/", identifier)
	if err != nil {
		return nil, fmt.Errorf("internetarchive metadata: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("internetarchive metadata: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "catalog", "metadata", "archive.org unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("internetarchive metadata: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("internetarchive metadata: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded ItemMetadata
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("internetarchive metadata: decode response: %w", err)
	}
	return &decoded, nil
}

// SelectVideoFile picks the largest original video file from an item's
// listing. Empty name means the item carries no recognizable video.
func SelectVideoFile(files []ItemFile, videoExtensions []string) ItemFile {
	return selectByExtension(files, videoExtensions)
}

// SelectImageFile picks the best poster or cover image from an item's
// listing, with the same original-then-largest preference.
func SelectImageFile(files []ItemFile, imageExtensions []string) ItemFile {
	return selectByExtension(files, imageExtensions)
}

func selectByExtension(files []ItemFile, extensions []string) ItemFile {
	var best ItemFile
	bestOriginal := false
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name))
		match := false
		for _, allowed := range extensions {
			if ext == allowed {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		original := string(file.Source) != "derivative"
		switch {
		case best.Name == "":
		case original && !bestOriginal:
		case original == bestOriginal && int64(file.Size) > int64(best.Size):
		default:
			continue
		}
		best = file
		bestOriginal = original
	}
	return best
}

// DownloadFile streams one item file into destDir and returns its local
// path. The download lands under a temporary name and is renamed into
// place only when complete.
func (c *Client) DownloadFile(ctx context.Context, identifier, name, destDir string) (string, error) {
	if identifier == "" || name == "" {
		return "", errors.New("internetarchive download: identifier and name required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/download/", identifier, name)
	if err != nil {
		return "", fmt.Errorf("internetarchive download: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("internetarchive download: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "catalog", "download", "archive.org unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("internetarchive download: http %d", resp.StatusCode)
	}

	targetDir := filepath.Join(destDir, identifier)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("internetarchive download: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(targetDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("internetarchive download: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("internetarchive download: copy body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("internetarchive download: close temp: %w", err)
	}

	dest := filepath.Join(targetDir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("internetarchive download: finalize: %w", err)
	}
	return dest, nil
}
