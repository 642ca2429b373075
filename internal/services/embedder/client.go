package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bitharbor/internal/media"
	"bitharbor/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Service produces raw embedding vectors for media content and free text.
// All inputs map into the same joint embedding space; the text+image form
// fuses a description with a poster frame.
type Service interface {
	EmbedContent(ctx context.Context, path string, modality media.Modality) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTextImage(ctx context.Context, text, imagePath string) ([]float32, error)
}

// Client talks to the embedding sidecar over HTTP. The sidecar hosts the
// multimodal model and reads content files from a shared filesystem.
type Client struct {
	baseURL    string
	dimension  int
	httpClient *http.Client
}

// Compile time check to ensure Client satisfies the Service interface.
var _ Service = (*Client)(nil)

// Option customizes the embedding client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
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

// NewClient constructs an embedding sidecar client. The dimension is the
// deployment-wide embedding width; responses of any other width are
// rejected here rather than downstream.
func NewClient(baseURL string, dimension int, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		dimension:  dimension,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type embedRequest struct {
	Kind     string `json:"kind"`
	Path     string `json:"path,omitempty"`
	Modality string `json:"modality,omitempty"`
	Text     string `json:"text,omitempty"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
	Error  string    `json:"error,omitempty"`
}

// EmbedContent embeds a stored media file by path.
func (c *Client) EmbedContent(ctx context.Context, path string, modality media.Modality) ([]float32, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("embed content: path required")
	}
	return c.embed(ctx, embedRequest{Kind: "content", Path: path, Modality: string(modality)})
}

// EmbedText embeds a free-text blob or search query.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embed text: text required")
	}
	return c.embed(ctx, embedRequest{Kind: "text", Text: text})
}

// EmbedTextImage embeds a description fused with a poster image.
func (c *Client) EmbedTextImage(ctx context.Context, text, imagePath string) ([]float32, error) {
	text = strings.TrimSpace(text)
	imagePath = strings.TrimSpace(imagePath)
	if text == "" || imagePath == "" {
		return nil, errors.New("embed text+image: text and image path required")
	}
	return c.embed(ctx, embedRequest{Kind: "text+image", Text: text, Path: imagePath})
}

func (c *Client) embed(ctx context.Context, request embedRequest) ([]float32, error) {
	if c.baseURL == "" {
		return nil, errors.New("embed: endpoint not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/v1/embed")
	if err != nil {
		return nil, fmt.Errorf("embed: build url: %w", err)
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("embed: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("embed: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "embed", request.Kind, "embedding service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, services.Wrap(services.ErrTransient, "embed", request.Kind,
			fmt.Sprintf("embedding service http %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, services.Wrap(services.ErrValidation, "embed", request.Kind,
			fmt.Sprintf("embedding service rejected request: http %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}

	var decoded embedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("embed: service error: %s", decoded.Error)
	}
	if len(decoded.Vector) != c.dimension {
		return nil, services.Wrap(services.ErrValidation, "embed", request.Kind,
			fmt.Sprintf("vector has %d dimensions, want %d", len(decoded.Vector), c.dimension), nil)
	}
	return decoded.Vector, nil
}
