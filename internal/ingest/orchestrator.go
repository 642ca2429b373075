package ingest

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"bitharbor/internal/ann"
	"bitharbor/internal/cas"
	"bitharbor/internal/config"
	"bitharbor/internal/hashing"
	"bitharbor/internal/media"
	"bitharbor/internal/services"
	"bitharbor/internal/store"
	"bitharbor/internal/vector"
)

// Embedder produces raw embedding vectors. Content and text inputs map
// into the same joint space; the text+image form is used for catalog
// media that carries a poster.
type Embedder interface {
	EmbedContent(ctx context.Context, path string, modality media.Modality) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTextImage(ctx context.Context, text, imagePath string) ([]float32, error)
}

// Enricher looks descriptive metadata up from an external provider.
// found=false reports a clean miss; errors report provider trouble. Either
// way the pipeline continues without enrichment.
type Enricher interface {
	Enrich(ctx context.Context, typ media.Type, title string, year int) (meta media.Metadata, raw string, found bool, err error)
}

// Request describes one ingestion. PosterPath, when set on catalog media,
// folds the cover image into the embedding.
type Request struct {
	Path            string
	Type            media.Type
	SourceType      media.SourceType
	Metadata        media.Metadata
	CatalogMetadata media.Metadata
	PosterPath      string
}

// Outcome reports a committed ingestion.
type Outcome struct {
	MediaID      string
	ContentHash  string
	VectorDigest string
	RowID        int64
	StoredPath   string
	Duplicate    bool
	Enriched     bool
}

// Orchestrator sequences the ingestion pipeline across the content pool,
// the relational store, and the ANN index, writing a reconciliation intent
// before every index mutation so a crash between substrates is repairable.
type Orchestrator struct {
	cfg      *config.Config
	store    *store.Store
	pool     *cas.Store
	canon    *vector.Canonicalizer
	index    *ann.Service
	embedder Embedder
	enricher Enricher
	logger   *slog.Logger
}

// NewOrchestrator wires the pipeline. enricher may be nil when no
// enrichment provider is configured.
func NewOrchestrator(cfg *config.Config, st *store.Store, pool *cas.Store, canon *vector.Canonicalizer, index *ann.Service, embed Embedder, enrich Enricher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		pool:     pool,
		canon:    canon,
		index:    index,
		embedder: embed,
		enricher: enrich,
		logger:   logger,
	}
}

// Ingest runs one file through the pipeline. Duplicate content short
// circuits to the existing entity; an embedding failure aborts with no
// entity or index row; an enrichment failure degrades to basic metadata.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (*Outcome, error) {
	modality, err := o.validate(req)
	if err != nil {
		return nil, err
	}
	log := o.logger.With("path", req.Path, "type", req.Type)

	contentHash, sizeBytes, err := hashSource(req.Path)
	if err != nil {
		return nil, err
	}
	log = log.With("content_hash", shortHash(contentHash))

	existingFile, err := o.store.GetFileRecord(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	existingEntity, err := o.store.GetMediaByContentHash(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	if existingFile != nil && existingEntity != nil {
		log.Info("duplicate content, reusing entity", "media_id", existingEntity.MediaID)
		record, err := o.store.GetVectorRecord(ctx, existingEntity.VectorDigest)
		if err != nil {
			return nil, err
		}
		outcome := &Outcome{
			MediaID:      existingEntity.MediaID,
			ContentHash:  contentHash,
			VectorDigest: existingEntity.VectorDigest,
			StoredPath:   existingFile.StoredPath,
			Duplicate:    true,
		}
		if record != nil {
			outcome.RowID = record.RowID
		}
		return outcome, nil
	}

	var storedPath string
	if existingFile != nil {
		storedPath = existingFile.StoredPath
	} else {
		storedPath, err = o.pool.Store(req.Path, modality, contentHash)
		if err != nil {
			return nil, err
		}
		if err := o.store.InsertFileRecord(ctx, store.FileRecord{
			ContentHash: contentHash,
			Modality:    modality,
			StoredPath:  storedPath,
			SizeBytes:   sizeBytes,
		}); err != nil {
			return nil, err
		}
		log.Info("pooled content", "stored_path", storedPath, "size_bytes", sizeBytes)
	}

	extracted := media.Metadata{Title: media.TitleFromPath(req.Path)}
	merged := media.Merge(req.Metadata, req.CatalogMetadata, extracted)

	merged, enrichedJSON := o.enrich(ctx, req.Type, merged, log)

	raw, embedSource, err := o.embed(ctx, req, modality, merged, storedPath)
	if err != nil {
		return nil, err
	}

	canonical, err := o.canon.Canonicalize(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "canonicalize", "embedding has wrong shape", err)
	}

	mediaID := newMediaID()
	if existingEntity != nil {
		mediaID = existingEntity.MediaID
	}

	intentID, err := o.store.AddIntent(ctx, store.Intent{
		MediaID:      mediaID,
		ContentHash:  contentHash,
		VectorDigest: canonical.Digest,
	})
	if err != nil {
		return nil, err
	}

	rowID, fresh, err := o.index.Add(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if err := o.store.SetIntentRow(ctx, intentID, rowID); err != nil {
		return nil, err
	}
	if fresh {
		log.Info("indexed vector", "row_id", rowID, "vector_digest", shortHash(canonical.Digest))
	}

	entity := store.MediaEntity{
		MediaID:         mediaID,
		Type:            req.Type,
		ContentHash:     contentHash,
		VectorDigest:    canonical.Digest,
		SourceType:      req.SourceType,
		EmbeddingSource: embedSource,
	}
	if err := o.store.CommitMedia(ctx, entity, merged, enrichedJSON); err != nil {
		return nil, err
	}

	// The row now has a relational owner. A retried ingestion can reuse a
	// row the reconciler tombstoned after an earlier crash; clearing the
	// tombstone makes the committed media searchable again.
	if err := o.store.RemoveTombstone(ctx, rowID); err != nil {
		return nil, err
	}

	if existingEntity != nil && existingEntity.VectorDigest != canonical.Digest {
		o.retireVector(ctx, existingEntity.VectorDigest, log)
	}

	if err := o.store.DeleteIntent(ctx, intentID); err != nil {
		return nil, err
	}

	log.Info("ingestion committed", "media_id", mediaID, "row_id", rowID)
	return &Outcome{
		MediaID:      mediaID,
		ContentHash:  contentHash,
		VectorDigest: canonical.Digest,
		RowID:        rowID,
		StoredPath:   storedPath,
		Enriched:     enrichedJSON != nil,
	}, nil
}

func (o *Orchestrator) validate(req Request) (media.Modality, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "ingest", "validate", "source file unreadable", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "ingest", "validate", "source path is a directory", nil)
	}
	if _, err := media.ParseType(string(req.Type)); err != nil {
		return "", services.Wrap(services.ErrValidation, "ingest", "validate", "unknown media type", err)
	}
	modality := o.detectModality(req.Path)
	if !modality.Valid() {
		return "", services.Wrap(services.ErrValidation, "ingest", "validate",
			fmt.Sprintf("unsupported extension %q", filepath.Ext(req.Path)), nil)
	}
	return modality, nil
}

func (o *Orchestrator) detectModality(path string) media.Modality {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range o.cfg.Ingest.VideoExtensions {
		if ext == allowed {
			return media.ModalityVideo
		}
	}
	for _, allowed := range o.cfg.Ingest.AudioExtensions {
		if ext == allowed {
			return media.ModalityAudio
		}
	}
	for _, allowed := range o.cfg.Ingest.ImageExtensions {
		if ext == allowed {
			return media.ModalityImage
		}
	}
	return ""
}

func (o *Orchestrator) enrich(ctx context.Context, typ media.Type, merged media.Metadata, log *slog.Logger) (media.Metadata, *string) {
	if o.enricher == nil {
		return merged, nil
	}
	enrichment, raw, found, err := o.enricher.Enrich(ctx, typ, merged.Title, merged.Year)
	if err != nil {
		log.Warn("enrichment failed, continuing with basic metadata", "error", err)
		return merged, nil
	}
	if !found {
		log.Info("no enrichment match", "title", merged.Title)
		return merged, nil
	}
	return media.ApplyEnrichment(merged, enrichment), &raw
}

// embed picks the embedding payload: catalog media embeds its descriptive
// text, fused with the poster when one was acquired; home media embeds the
// pooled content itself.
func (o *Orchestrator) embed(ctx context.Context, req Request, modality media.Modality, merged media.Metadata, storedPath string) ([]float32, media.EmbeddingSource, error) {
	if req.SourceType == media.SourceCatalog {
		blob := merged.TextBlob(media.TitleFromPath(req.Path))
		if req.PosterPath != "" {
			raw, err := o.embedder.EmbedTextImage(ctx, blob, req.PosterPath)
			if err != nil {
				return nil, "", err
			}
			return raw, media.EmbedFromTextImage, nil
		}
		raw, err := o.embedder.EmbedText(ctx, blob)
		if err != nil {
			return nil, "", err
		}
		return raw, media.EmbedFromText, nil
	}
	raw, err := o.embedder.EmbedContent(ctx, storedPath, modality)
	if err != nil {
		return nil, "", err
	}
	return raw, media.EmbedFromContent, nil
}

// retireVector tombstones the index row behind a superseded embedding once
// no entity references it anymore. Best-effort: a failure here leaves a
// reachable but unowned row that resolve filters out.
func (o *Orchestrator) retireVector(ctx context.Context, vectorDigest string, log *slog.Logger) {
	owners, err := o.store.CountMediaByVectorDigest(ctx, vectorDigest)
	if err != nil || owners > 0 {
		return
	}
	record, err := o.store.GetVectorRecord(ctx, vectorDigest)
	if err != nil || record == nil {
		return
	}
	if err := o.store.AddTombstone(ctx, record.RowID, "superseded embedding"); err != nil {
		log.Warn("could not tombstone superseded vector", "row_id", record.RowID, "error", err)
		return
	}
	log.Info("tombstoned superseded vector", "row_id", record.RowID)
}

func hashSource(path string) (string, int64, error) {
	digest, size, err := hashing.HashFile(path)
	if err != nil {
		return "", 0, services.Wrap(services.ErrValidation, "ingest", "hash", "source file unreadable", err)
	}
	return digest, size, nil
}

func newMediaID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func shortHash(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
