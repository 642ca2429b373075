package store

import (
	"time"

	"bitharbor/internal/media"
)

// FileRecord represents one physically stored file in the content pool.
// At most one record exists per content hash; the pool owns the stored
// path's lifecycle.
type FileRecord struct {
	ContentHash string
	Modality    media.Modality
	StoredPath  string
	SizeBytes   int64
	CreatedAt   time.Time
}

// VectorRecord maps a canonical vector digest to its dense ANN row.
// The row is assigned exactly once per digest.
type VectorRecord struct {
	VectorDigest string
	RowID        int64
	Dims         int
	CreatedAt    time.Time
}

// MediaEntity is the central registry row tying content, vector, and
// detail metadata together.
type MediaEntity struct {
	MediaID         string
	Type            media.Type
	ContentHash     string
	VectorDigest    string
	SourceType      media.SourceType
	EmbeddingSource media.EmbeddingSource
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Intent is a reconciliation-log entry written before the ANN index is
// mutated. An intent without a committed media entity marks an orphaned
// index row.
type Intent struct {
	ID           int64
	MediaID      string
	ContentHash  string
	VectorDigest string
	RowID        *int64
	CreatedAt    time.Time
}

// Projection is the joined view returned when resolving ANN rows for
// search results.
type Projection struct {
	RowID        int64
	VectorDigest string
	MediaID      string
	Type         media.Type
	Title        string
	Year         int
	ContentHash  string
	StoredPath   string
}
