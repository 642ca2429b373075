package ingest

import (
	"context"
	"errors"

	"bitharbor/internal/media"
	"bitharbor/internal/services/tmdb"
)

// TMDBEnricher adapts the TMDb client to the pipeline's enrichment
// contract. Only movies are looked up; other types report a clean miss.
type TMDBEnricher struct {
	client *tmdb.Client
}

// Compile time check to ensure TMDBEnricher satisfies the Enricher interface.
var _ Enricher = (*TMDBEnricher)(nil)

// NewTMDBEnricher wraps a TMDb client.
func NewTMDBEnricher(client *tmdb.Client) *TMDBEnricher {
	return &TMDBEnricher{client: client}
}

// Enrich looks a movie up by title and year. A provider miss is not an
// error.
func (e *TMDBEnricher) Enrich(ctx context.Context, typ media.Type, title string, year int) (media.Metadata, string, bool, error) {
	if typ != media.TypeMovie || title == "" {
		return media.Metadata{}, "", false, nil
	}
	meta, raw, err := e.client.EnrichMovie(ctx, title, year)
	if errors.Is(err, tmdb.ErrNoMatch) {
		return media.Metadata{}, "", false, nil
	}
	if err != nil {
		return media.Metadata{}, "", false, err
	}
	return meta, raw, true, nil
}
