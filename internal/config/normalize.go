package config

import "strings"

func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.PoolDir,
		&c.Paths.IndexDir,
		&c.Paths.LogDir,
		&c.Paths.StagingDir,
		&c.Catalog.DownloadDir,
	}
	for _, field := range paths {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Embedding.Endpoint = strings.TrimRight(strings.TrimSpace(c.Embedding.Endpoint), "/")
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	c.Ingest.VideoExtensions = normalizeExtensions(c.Ingest.VideoExtensions)
	c.Ingest.AudioExtensions = normalizeExtensions(c.Ingest.AudioExtensions)
	c.Ingest.ImageExtensions = normalizeExtensions(c.Ingest.ImageExtensions)

	return nil
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
