package config

// Default returns the baseline configuration used before a config file is
// applied.
func Default() Config {
	return Config{
		Paths: Paths{
			PoolDir:    "~/.local/share/bitharbor/pool",
			IndexDir:   "~/.local/share/bitharbor/index",
			LogDir:     "~/.local/share/bitharbor/logs",
			StagingDir: "~/.local/share/bitharbor/staging",
		},
		Embedding: Embedding{
			Endpoint:       "http://127.0.0.1:8093",
			Dimension:      1024,
			TimeoutSeconds: 120,
		},
		ANN: ANN{
			M:                16,
			EFConstruction:   200,
			EFSearch:         96,
			RefineCandidates: 64,
		},
		Ingest: Ingest{
			VideoExtensions: []string{".mp4", ".mkv", ".webm", ".avi", ".mov"},
			AudioExtensions: []string{".mp3", ".flac", ".ogg", ".m4a", ".wav"},
			ImageExtensions: []string{".jpg", ".jpeg", ".png", ".webp"},
		},
		TMDB: TMDB{
			BaseURL:        "https://api.themoviedb.org/3",
			Language:       "en-US",
			TimeoutSeconds: 10,
		},
		Catalog: Catalog{
			BaseURL:         "https://archive.org",
			SearchRows:      50,
			MatchTTLSeconds: 1800,
			DownloadDir:     "~/.cache/bitharbor/downloads",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
