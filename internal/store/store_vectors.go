package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertVectorRecord persists the row/digest mapping assigned by the index
// service. A digest maps to exactly one row for the graph's lifetime.
func (s *Store) InsertVectorRecord(ctx context.Context, rec VectorRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO vector_records (vector_digest, row_id, dims, created_at)
         VALUES (?, ?, ?, ?)`,
		rec.VectorDigest,
		rec.RowID,
		rec.Dims,
		timestamp(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert vector record: %w", err)
	}
	return nil
}

// GetVectorRecord fetches the mapping for a canonical digest; nil when the
// digest has never been indexed.
func (s *Store) GetVectorRecord(ctx context.Context, vectorDigest string) (*VectorRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT vector_digest, row_id, dims, created_at FROM vector_records WHERE vector_digest = ?`,
		vectorDigest,
	)
	rec, err := scanVectorRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vector record: %w", err)
	}
	return rec, nil
}

// GetVectorRecordByRow fetches the mapping for a dense row identifier.
func (s *Store) GetVectorRecordByRow(ctx context.Context, rowID int64) (*VectorRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT vector_digest, row_id, dims, created_at FROM vector_records WHERE row_id = ?`,
		rowID,
	)
	rec, err := scanVectorRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vector record by row: %w", err)
	}
	return rec, nil
}

// CountVectorRecords returns the number of mapped rows.
func (s *Store) CountVectorRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM vector_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count vector records: %w", err)
	}
	return count, nil
}

// AddIntent writes a reconciliation-log entry before the ANN index is
// mutated and returns its identifier.
func (s *Store) AddIntent(ctx context.Context, intent Intent) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ingest_intents (media_id, content_hash, vector_digest, row_id, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		intent.MediaID,
		intent.ContentHash,
		intent.VectorDigest,
		intent.RowID,
		timestamp(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert intent: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// SetIntentRow records the row assigned to an in-flight intent so recovery
// can tombstone it if the relational commit never lands.
func (s *Store) SetIntentRow(ctx context.Context, intentID, rowID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE ingest_intents SET row_id = ? WHERE id = ?`, rowID, intentID)
	if err != nil {
		return fmt.Errorf("set intent row: %w", err)
	}
	return nil
}

// DeleteIntent removes a completed reconciliation-log entry.
func (s *Store) DeleteIntent(ctx context.Context, intentID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ingest_intents WHERE id = ?`, intentID)
	if err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return nil
}

// ListIntents returns all outstanding reconciliation-log entries, oldest
// first.
func (s *Store) ListIntents(ctx context.Context) ([]Intent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, media_id, content_hash, vector_digest, row_id, created_at
         FROM ingest_intents ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}
	defer rows.Close()

	var intents []Intent
	for rows.Next() {
		var (
			intent     Intent
			rowID      sql.NullInt64
			createdRaw string
		)
		if err := rows.Scan(&intent.ID, &intent.MediaID, &intent.ContentHash, &intent.VectorDigest, &rowID, &createdRaw); err != nil {
			return nil, err
		}
		if rowID.Valid {
			value := rowID.Int64
			intent.RowID = &value
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			intent.CreatedAt = created
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

// AddTombstone marks an ANN row as unresolvable so search never surfaces it.
func (s *Store) AddTombstone(ctx context.Context, rowID int64, reason string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO ann_tombstones (row_id, reason, created_at) VALUES (?, ?, ?)`,
		rowID,
		reason,
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert tombstone: %w", err)
	}
	return nil
}

// RemoveTombstone clears a tombstone once the row regains a relational
// owner, making it searchable again. Removing an absent tombstone is a
// no-op.
func (s *Store) RemoveTombstone(ctx context.Context, rowID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ann_tombstones WHERE row_id = ?`, rowID)
	if err != nil {
		return fmt.Errorf("remove tombstone: %w", err)
	}
	return nil
}

// ListTombstones returns the set of pruned row identifiers.
func (s *Store) ListTombstones(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT row_id FROM ann_tombstones`)
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	defer rows.Close()

	tombstones := make(map[int64]struct{})
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			return nil, err
		}
		tombstones[rowID] = struct{}{}
	}
	return tombstones, rows.Err()
}

func scanVectorRecord(scanner interface{ Scan(dest ...any) error }) (*VectorRecord, error) {
	var (
		digest     string
		rowID      int64
		dims       int
		createdRaw string
	)
	if err := scanner.Scan(&digest, &rowID, &dims, &createdRaw); err != nil {
		return nil, err
	}
	rec := &VectorRecord{VectorDigest: digest, RowID: rowID, Dims: dims}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return rec, nil
}
