package search

import (
	"context"
	"log/slog"
	"strings"

	"bitharbor/internal/ann"
	"bitharbor/internal/services"
	"bitharbor/internal/store"
)

// Embedder is the slice of the embedding service the search path needs.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Result is one search hit joined to its owning media entity.
type Result struct {
	store.Projection
	Score float32
}

// Service answers text queries against the library: embed the query, walk
// the index, and resolve surviving rows to media entities. Rows without a
// relational owner are dropped silently; they exist only transiently
// mid-ingestion or behind a tombstone race.
type Service struct {
	index    *ann.Service
	store    *store.Store
	embedder Embedder
	logger   *slog.Logger
}

// NewService wires the search path.
func NewService(index *ann.Service, st *store.Store, embed Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{index: index, store: st, embedder: embed, logger: logger}
}

// Query returns up to k results for a text query, best first.
func (s *Service) Query(ctx context.Context, text string, k int) ([]Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "search", "query", "query text required", nil)
	}

	raw, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, raw, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	rowIDs := make([]int64, len(hits))
	scores := make(map[int64]float32, len(hits))
	for i, hit := range hits {
		rowIDs[i] = hit.RowID
		scores[hit.RowID] = hit.Score
	}

	projections, err := s.store.ResolveRows(ctx, rowIDs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(projections))
	for _, projection := range projections {
		results = append(results, Result{Projection: projection, Score: scores[projection.RowID]})
	}
	s.logger.Debug("search complete", "hits", len(hits), "resolved", len(results))
	return results, nil
}
