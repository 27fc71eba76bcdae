package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertGap records one unmatched sighting. Conflicts key on
// (normalized_name, vertical): an existing gap gains one occurrence and a
// recomputed priority instead of a duplicate row, so occurrence_count equals
// the number of runs that observed the gap. gap.Priority carries the
// per-sighting weight; the stored priority is that weight times the
// cumulative count. Resolved gaps stay resolved; re-observing them still
// bumps the counter for audit purposes.
func (db *DB) UpsertGap(ctx context.Context, gap *LibraryGap) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO library_gaps
		   (normalized_name, display_name, brand_guess, vertical,
		    occurrence_count, priority, first_seen_run_id, last_seen_at)
		 VALUES ($1, $2, $3, $4, 1, $5, $6, NOW())
		 ON CONFLICT (normalized_name, vertical) DO UPDATE
		   SET occurrence_count = library_gaps.occurrence_count + 1,
		       priority = $5 * (library_gaps.occurrence_count + 1),
		       last_seen_at = NOW()
		 RETURNING id, occurrence_count, priority`,
		gap.NormalizedName, TruncateTitle(gap.DisplayName), gap.BrandGuess, gap.Vertical,
		gap.Priority, gap.FirstSeenRunID,
	).Scan(&gap.ID, &gap.OccurrenceCount, &gap.Priority)
	if err != nil {
		return fmt.Errorf("failed to upsert gap: %w", err)
	}
	return nil
}

// GapFilters holds optional filters for listing gaps.
type GapFilters struct {
	Vertical        string
	IncludeResolved bool
	Limit           int
}

// ListGaps returns gaps ordered by priority descending.
func (db *DB) ListGaps(ctx context.Context, filters GapFilters) ([]LibraryGap, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, normalized_name, display_name, COALESCE(brand_guess, ''), vertical,
		occurrence_count, priority, first_seen_run_id, last_seen_at,
		resolved, resolved_at, resolved_product_id
		FROM library_gaps WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Vertical != "" {
		query += fmt.Sprintf(" AND vertical = $%d", argNum)
		args = append(args, filters.Vertical)
		argNum++
	}
	if !filters.IncludeResolved {
		query += " AND resolved = FALSE"
	}

	query += fmt.Sprintf(" ORDER BY priority DESC, occurrence_count DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list gaps: %w", err)
	}
	defer rows.Close()

	var gaps []LibraryGap
	for rows.Next() {
		var gap LibraryGap
		if err := rows.Scan(&gap.ID, &gap.NormalizedName, &gap.DisplayName, &gap.BrandGuess,
			&gap.Vertical, &gap.OccurrenceCount, &gap.Priority, &gap.FirstSeenRunID,
			&gap.LastSeenAt, &gap.Resolved, &gap.ResolvedAt, &gap.ResolvedProductID); err != nil {
			return nil, fmt.Errorf("failed to scan gap: %w", err)
		}
		gaps = append(gaps, gap)
	}
	return gaps, nil
}

// CountGapsByVertical returns unresolved gap counts per vertical.
func (db *DB) CountGapsByVertical(ctx context.Context) (map[string]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT vertical, COUNT(*) FROM library_gaps WHERE resolved = FALSE GROUP BY vertical`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count gaps: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var vertical string
		var count int
		if err := rows.Scan(&vertical, &count); err != nil {
			return nil, fmt.Errorf("failed to scan gap count: %w", err)
		}
		counts[vertical] = count
	}
	return counts, nil
}

// CountGapsSince returns the number of gaps first observed after the cutoff,
// the "new this run" figure on gap reports.
func (db *DB) CountGapsSince(ctx context.Context, vertical string, since time.Time) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM library_gaps
		 WHERE vertical = $1 AND resolved = FALSE AND last_seen_at >= $2 AND occurrence_count > 0`,
		vertical, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count new gaps: %w", err)
	}
	return count, nil
}

// ResolveGap marks a gap satisfied by a library product.
func (db *DB) ResolveGap(ctx context.Context, gapID, productID uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE library_gaps
		 SET resolved = TRUE, resolved_at = NOW(), resolved_product_id = $1
		 WHERE id = $2 AND resolved = FALSE`,
		productID, gapID,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve gap: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("gap not found or already resolved: %s", gapID)
	}
	return nil
}
