package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bitharbor/internal/media"
)

// InsertFileRecord records a newly pooled file. The content hash is the
// primary key; inserting an existing hash is rejected by the schema, so
// callers check GetFileRecord first.
func (s *Store) InsertFileRecord(ctx context.Context, rec FileRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO file_records (content_hash, modality, stored_path, size_bytes, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		rec.ContentHash,
		string(rec.Modality),
		rec.StoredPath,
		rec.SizeBytes,
		timestamp(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// GetFileRecord fetches a file record by content hash; nil when absent.
func (s *Store) GetFileRecord(ctx context.Context, contentHash string) (*FileRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT content_hash, modality, stored_path, size_bytes, created_at
         FROM file_records WHERE content_hash = ?`,
		contentHash,
	)
	rec, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file record: %w", err)
	}
	return rec, nil
}

// CountFileRecords returns the number of pooled files.
func (s *Store) CountFileRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM file_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count file records: %w", err)
	}
	return count, nil
}

func scanFileRecord(scanner interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		contentHash string
		modality    string
		storedPath  string
		sizeBytes   int64
		createdRaw  string
	)
	if err := scanner.Scan(&contentHash, &modality, &storedPath, &sizeBytes, &createdRaw); err != nil {
		return nil, err
	}
	rec := &FileRecord{
		ContentHash: contentHash,
		Modality:    media.Modality(modality),
		StoredPath:  storedPath,
		SizeBytes:   sizeBytes,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return rec, nil
}
