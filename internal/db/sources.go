package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WasSourceProcessed reports whether a source already appears in the dedup
// ledger for a vertical within the lookback window. Sources older than the
// window are eligible for reprocessing.
func (db *DB) WasSourceProcessed(ctx context.Context, vertical, sourceType, externalID string, lookback time.Duration) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM source_records
		   WHERE vertical = $1 AND source_type = $2 AND external_id = $3
		     AND created_at > NOW() - $4::interval
		 )`,
		vertical, sourceType, externalID, lookback.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check source ledger: %w", err)
	}
	return exists, nil
}

// RecordSource writes one source into the ledger. Re-recording the same
// source updates its status and run linkage rather than duplicating the row,
// so replayed runs stay idempotent.
func (db *DB) RecordSource(ctx context.Context, rec *SourceRecord) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO source_records
		   (run_id, vertical, source_type, external_id, url, title, channel,
		    view_count, published_at, transcript_len, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (vertical, source_type, external_id) DO UPDATE
		   SET run_id = $1, status = $11, transcript_len = $10, created_at = NOW()
		 RETURNING id`,
		rec.RunID, rec.Vertical, rec.SourceType, rec.ExternalID,
		TruncateURL(rec.URL), TruncateTitle(rec.Title), rec.Channel,
		rec.ViewCount, rec.PublishedAt, rec.TranscriptLen, rec.Status,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to record source: %w", err)
	}
	return nil
}

// ListRunSources returns the sources recorded for a run and vertical.
func (db *DB) ListRunSources(ctx context.Context, runID uuid.UUID, vertical string) ([]SourceRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, vertical, source_type, external_id, url, title, channel,
		        view_count, published_at, transcript_len, status, created_at
		 FROM source_records
		 WHERE run_id = $1 AND vertical = $2
		 ORDER BY created_at ASC`,
		runID, vertical,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run sources: %w", err)
	}
	defer rows.Close()

	var records []SourceRecord
	for rows.Next() {
		var rec SourceRecord
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Vertical, &rec.SourceType,
			&rec.ExternalID, &rec.URL, &rec.Title, &rec.Channel,
			&rec.ViewCount, &rec.PublishedAt, &rec.TranscriptLen, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
