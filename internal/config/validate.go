package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports configuration problems that would prevent the library
// substrates from operating.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.PoolDir) == "" {
		problems = append(problems, "paths.pool_dir is required")
	}
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		problems = append(problems, "paths.index_dir is required")
	}
	if c.Embedding.Dimension <= 0 {
		problems = append(problems, "embedding.dimension must be positive")
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		problems = append(problems, "embedding.timeout_seconds must be positive")
	}
	if c.ANN.M < 2 {
		problems = append(problems, "ann.m must be at least 2")
	}
	if c.ANN.EFConstruction <= 0 {
		problems = append(problems, "ann.ef_construction must be positive")
	}
	if c.ANN.EFSearch <= 0 {
		problems = append(problems, "ann.ef_search must be positive")
	}
	if c.ANN.RefineCandidates <= 0 {
		problems = append(problems, "ann.refine_candidates must be positive")
	}
	if len(c.Ingest.VideoExtensions)+len(c.Ingest.AudioExtensions)+len(c.Ingest.ImageExtensions) == 0 {
		problems = append(problems, "ingest must accept at least one extension")
	}
	if c.Catalog.SearchRows <= 0 {
		problems = append(problems, "catalog.search_rows must be positive")
	}
	if c.Catalog.MatchTTLSeconds <= 0 {
		problems = append(problems, "catalog.match_ttl_seconds must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
