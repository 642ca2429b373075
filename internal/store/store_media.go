package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitharbor/internal/media"
)

// CommitMedia upserts the media entity and its type-specific detail row in
// one transaction. No partial entity/detail pair is ever visible to other
// readers. When an entity already exists for the media id it is updated in
// place.
func (s *Store) CommitMedia(ctx context.Context, entity MediaEntity, meta media.Metadata, enrichedJSON *string) error {
	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin media tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO media_entities (
            media_id, type, content_hash, vector_digest, source_type, embedding_source, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(media_id) DO UPDATE SET
            type = excluded.type,
            content_hash = excluded.content_hash,
            vector_digest = excluded.vector_digest,
            source_type = excluded.source_type,
            embedding_source = excluded.embedding_source,
            updated_at = excluded.updated_at`,
		entity.MediaID,
		string(entity.Type),
		entity.ContentHash,
		entity.VectorDigest,
		string(entity.SourceType),
		string(entity.EmbeddingSource),
		timestamp(now),
		timestamp(now),
	)
	if err != nil {
		return fmt.Errorf("upsert media entity: %w", err)
	}

	if err := upsertDetail(ctx, tx, entity, meta, enrichedJSON); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit media tx: %w", err)
	}
	return nil
}

func upsertDetail(ctx context.Context, tx *sql.Tx, entity MediaEntity, meta media.Metadata, enrichedJSON *string) error {
	var enriched any
	if enrichedJSON != nil {
		enriched = *enrichedJSON
	}
	title := meta.Title
	if title == "" {
		title = "Untitled"
	}

	var err error
	switch entity.Type {
	case media.TypeMovie:
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO movies (media_id, title, original_title, overview, year, genres, languages, countries, director, runtime_min, metadata_enriched)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(media_id) DO UPDATE SET
                 title = excluded.title, original_title = excluded.original_title,
                 overview = excluded.overview, year = excluded.year,
                 genres = excluded.genres, languages = excluded.languages,
                 countries = excluded.countries, director = excluded.director,
                 runtime_min = excluded.runtime_min, metadata_enriched = excluded.metadata_enriched`,
			entity.MediaID, title, nullableString(meta.OriginalTitle), nullableString(meta.Overview),
			nullableInt(meta.Year), pipeJoin(meta.Genres), pipeJoin(meta.Languages), pipeJoin(meta.Countries),
			nullableString(meta.Director), nullableInt(meta.RuntimeMin), enriched,
		)
	case media.TypeTV:
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO tv_episodes (media_id, series, title, season, episode, year, overview, metadata_enriched)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(media_id) DO UPDATE SET
                 series = excluded.series, title = excluded.title,
                 season = excluded.season, episode = excluded.episode,
                 year = excluded.year, overview = excluded.overview,
                 metadata_enriched = excluded.metadata_enriched`,
			entity.MediaID, nullableString(meta.Series), title, nullableInt(meta.Season),
			nullableInt(meta.Episode), nullableInt(meta.Year), nullableString(meta.Overview), enriched,
		)
	case media.TypeMusic:
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO music_tracks (media_id, title, artist, album, track, year, genres, metadata_enriched)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(media_id) DO UPDATE SET
                 title = excluded.title, artist = excluded.artist, album = excluded.album,
                 track = excluded.track, year = excluded.year, genres = excluded.genres,
                 metadata_enriched = excluded.metadata_enriched`,
			entity.MediaID, title, nullableString(meta.Artist), nullableString(meta.Album),
			nullableInt(meta.Track), nullableInt(meta.Year), pipeJoin(meta.Genres), enriched,
		)
	case media.TypePodcast:
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO podcast_episodes (media_id, show, title, episode, year, overview, metadata_enriched)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(media_id) DO UPDATE SET
                 show = excluded.show, title = excluded.title, episode = excluded.episode,
                 year = excluded.year, overview = excluded.overview,
                 metadata_enriched = excluded.metadata_enriched`,
			entity.MediaID, nullableString(meta.Show), title, nullableInt(meta.Episode),
			nullableInt(meta.Year), nullableString(meta.Overview), enriched,
		)
	case media.TypeVideo:
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO videos (media_id, title, year, overview, metadata_enriched)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(media_id) DO UPDATE SET
                 title = excluded.title, year = excluded.year, overview = excluded.overview,
                 metadata_enriched = excluded.metadata_enriched`,
			entity.MediaID, title, nullableInt(meta.Year), nullableString(meta.Overview), enriched,
		)
	case media.TypePersonal:
		var personsJSON any
		if len(meta.Persons) > 0 {
			data, marshalErr := json.Marshal(meta.Persons)
			if marshalErr != nil {
				return fmt.Errorf("marshal persons: %w", marshalErr)
			}
			personsJSON = string(data)
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO personal_media (media_id, title, device_make, device_model, album_name, persons_json)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(media_id) DO UPDATE SET
                 title = excluded.title, device_make = excluded.device_make,
                 device_model = excluded.device_model, album_name = excluded.album_name,
                 persons_json = excluded.persons_json`,
			entity.MediaID, nullableString(meta.Title), nullableString(meta.DeviceMake),
			nullableString(meta.DeviceModel), nullableString(meta.AlbumName), personsJSON,
		)
	default:
		return fmt.Errorf("unknown media type %q", entity.Type)
	}
	if err != nil {
		return fmt.Errorf("upsert %s detail: %w", entity.Type, err)
	}
	return nil
}

// GetMediaByContentHash returns the entity owning a content hash; nil when
// the content has never been registered.
func (s *Store) GetMediaByContentHash(ctx context.Context, contentHash string) (*MediaEntity, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+mediaColumns+` FROM media_entities WHERE content_hash = ? ORDER BY created_at LIMIT 1`,
		contentHash,
	)
	entity, err := scanMediaEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media by content hash: %w", err)
	}
	return entity, nil
}

// GetMediaByID fetches a media entity by identifier; nil when absent.
func (s *Store) GetMediaByID(ctx context.Context, mediaID string) (*MediaEntity, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+mediaColumns+` FROM media_entities WHERE media_id = ?`,
		mediaID,
	)
	entity, err := scanMediaEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media by id: %w", err)
	}
	return entity, nil
}

// CountMediaByVectorDigest reports how many entities reference a vector
// digest. Zero means the underlying index row has no relational owner.
func (s *Store) CountMediaByVectorDigest(ctx context.Context, vectorDigest string) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM media_entities WHERE vector_digest = ?`,
		vectorDigest,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count media by vector digest: %w", err)
	}
	return count, nil
}

// ResolveRows joins dense row identifiers to their owning media entities.
// Rows without a relational owner are filtered out, never reported as an
// error; result order follows the input order.
func (s *Store) ResolveRows(ctx context.Context, rowIDs []int64) ([]Projection, error) {
	if len(rowIDs) == 0 {
		return nil, nil
	}

	placeholders := makePlaceholders(len(rowIDs))
	args := make([]any, len(rowIDs))
	for i, id := range rowIDs {
		args[i] = id
	}

	query := `SELECT vr.row_id, vr.vector_digest, me.media_id, me.type, me.content_hash, fr.stored_path,
            COALESCE(mo.title, tv.title, mt.title, pe.title, vi.title, pm.title, ''),
            COALESCE(mo.year, tv.year, mt.year, pe.year, vi.year, 0)
        FROM vector_records vr
        JOIN media_entities me ON me.vector_digest = vr.vector_digest
        JOIN file_records fr ON fr.content_hash = me.content_hash
        LEFT JOIN movies mo ON mo.media_id = me.media_id
        LEFT JOIN tv_episodes tv ON tv.media_id = me.media_id
        LEFT JOIN music_tracks mt ON mt.media_id = me.media_id
        LEFT JOIN podcast_episodes pe ON pe.media_id = me.media_id
        LEFT JOIN videos vi ON vi.media_id = me.media_id
        LEFT JOIN personal_media pm ON pm.media_id = me.media_id
        WHERE vr.row_id IN (` + placeholders + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve rows: %w", err)
	}
	defer rows.Close()

	byRow := make(map[int64]Projection, len(rowIDs))
	for rows.Next() {
		var (
			p        Projection
			mediaTyp string
			year     sql.NullInt64
		)
		if err := rows.Scan(&p.RowID, &p.VectorDigest, &p.MediaID, &mediaTyp, &p.ContentHash, &p.StoredPath, &p.Title, &year); err != nil {
			return nil, err
		}
		p.Type = media.Type(mediaTyp)
		if year.Valid {
			p.Year = int(year.Int64)
		}
		byRow[p.RowID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Projection, 0, len(byRow))
	for _, id := range rowIDs {
		if p, ok := byRow[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

const mediaColumns = "media_id, type, content_hash, vector_digest, source_type, embedding_source, created_at, updated_at"

func scanMediaEntity(scanner interface{ Scan(dest ...any) error }) (*MediaEntity, error) {
	var (
		entity     MediaEntity
		mediaTyp   string
		sourceTyp  string
		embedSrc   string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&entity.MediaID,
		&mediaTyp,
		&entity.ContentHash,
		&entity.VectorDigest,
		&sourceTyp,
		&embedSrc,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entity.Type = media.Type(mediaTyp)
	entity.SourceType = media.SourceType(sourceTyp)
	entity.EmbeddingSource = media.EmbeddingSource(embedSrc)
	if created, err := parseTimeString(createdRaw); err == nil {
		entity.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entity.UpdatedAt = updated
	}
	return &entity, nil
}

func pipeJoin(values []string) any {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, "|")
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}
