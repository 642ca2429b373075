package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"bitharbor/internal/media"
	"bitharbor/internal/services"
	"bitharbor/internal/services/internetarchive"
)

// ScoredMatch pairs a cached match with the identifier issued for it.
type ScoredMatch struct {
	MatchID string
	Match
}

// Acquisition describes a downloaded catalog item ready for ingestion.
// PosterPath is empty when the item carries no usable cover image.
type Acquisition struct {
	Match      Match
	LocalPath  string
	PosterPath string
	Metadata   media.Metadata
}

// Service ties catalog search, match caching, and asset acquisition
// together in front of the archive client.
type Service struct {
	client    *internetarchive.Client
	cache     *MatchCache
	rows      int
	videoExts []string
	imageExts []string
	downloads string
	logger    *slog.Logger
}

// NewService constructs the catalog service. videoExts selects the primary
// asset and imageExts the poster; downloads is the staging directory
// acquisitions land in.
func NewService(client *internetarchive.Client, cache *MatchCache, rows int, videoExts, imageExts []string, downloads string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if rows <= 0 {
		rows = 50
	}
	return &Service{
		client:    client,
		cache:     cache,
		rows:      rows,
		videoExts: videoExts,
		imageExts: imageExts,
		downloads: downloads,
		logger:    logger,
	}
}

// Search queries the archive, ranks the results, and caches each match
// under a fresh identifier. Matches come back best first.
func (s *Service) Search(ctx context.Context, title string, year int) ([]ScoredMatch, error) {
	docs, err := s.client.Search(ctx, internetarchive.Query{Title: title, Year: year, Rows: s.rows})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(docs))
	for _, doc := range docs {
		candidates = append(candidates, FromDoc(doc))
	}
	matches := Rank(candidates)

	scored := make([]ScoredMatch, 0, len(matches))
	for _, match := range matches {
		scored = append(scored, ScoredMatch{MatchID: s.cache.Put(match), Match: match})
	}
	s.logger.Info("catalog search complete",
		"title", title,
		"results", len(docs),
		"matches", len(scored))
	return scored, nil
}

// Resolve looks up a previously issued match identifier.
func (s *Service) Resolve(matchID string) (Match, error) {
	match, err := s.cache.Get(matchID)
	if err != nil {
		return Match{}, services.Wrap(services.ErrNotFound, "catalog", "resolve", fmt.Sprintf("match %s", matchID), err)
	}
	return match, nil
}

// Acquire downloads the primary video asset for a cached match and
// returns the local path plus the metadata layer extracted from the
// archive item. The search-time title and year take precedence over the
// item's own metadata because they matched the user's query.
func (s *Service) Acquire(ctx context.Context, matchID string) (*Acquisition, error) {
	match, err := s.Resolve(matchID)
	if err != nil {
		return nil, err
	}

	item, err := s.client.FetchMetadata(ctx, match.Identifier)
	if err != nil {
		return nil, err
	}
	video := internetarchive.SelectVideoFile(item.Files, s.videoExts)
	if video.Name == "" {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "acquire",
			fmt.Sprintf("item %s has no video file", match.Identifier), nil)
	}

	s.logger.Info("downloading catalog asset",
		"identifier", match.Identifier,
		"file", video.Name,
		"size_bytes", int64(video.Size))
	localPath, err := s.client.DownloadFile(ctx, match.Identifier, video.Name, s.downloads)
	if err != nil {
		return nil, err
	}

	// Poster download is best effort; the text embedding works without it.
	var posterPath string
	if poster := internetarchive.SelectImageFile(item.Files, s.imageExts); poster.Name != "" {
		posterPath, err = s.client.DownloadFile(ctx, match.Identifier, poster.Name, s.downloads)
		if err != nil {
			s.logger.Warn("poster download failed",
				"identifier", match.Identifier,
				"file", poster.Name,
				"error", err)
			posterPath = ""
		}
	}

	meta := media.Metadata{
		Title:     match.Title,
		Year:      match.Year,
		Overview:  match.Description,
		Genres:    match.Subjects,
		Languages: match.Languages,
		Director:  match.Creator,
	}
	return &Acquisition{Match: match, LocalPath: localPath, PosterPath: posterPath, Metadata: meta}, nil
}
