package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRun creates a new discovery run record and returns its ID.
func (db *DB) CreateRun(ctx context.Context, verticals []string, dryRun bool, config any) (uuid.UUID, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal run config: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO discovery_runs (status, current_phase, dry_run, verticals, config)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		RunStatusRunning, PhaseResearch, dryRun, verticals, configJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// SetRunPhase records the phase a run has advanced to.
func (db *DB) SetRunPhase(ctx context.Context, runID uuid.UUID, phase string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE discovery_runs SET current_phase = $1 WHERE id = $2`,
		phase, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to set run phase: %w", err)
	}
	return nil
}

// CompleteRun marks a run finished and stores the run report.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, report any) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE discovery_runs
		 SET status = $1, report = $2, current_phase = NULL, completed_at = NOW()
		 WHERE id = $3`,
		status, reportJSON, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// FailRun marks a run failed with an error description.
func (db *DB) FailRun(ctx context.Context, runID uuid.UUID, errText string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE discovery_runs
		 SET status = $1, error = $2, current_phase = NULL, completed_at = NOW()
		 WHERE id = $3`,
		RunStatusFailed, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// GetRun retrieves a discovery run by ID. Returns nil when not found.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*DiscoveryRun, error) {
	var run DiscoveryRun
	var phase, errText *string
	err := db.pool.QueryRow(ctx,
		`SELECT id, status, current_phase, dry_run, verticals, config, report, error, started_at, completed_at
		 FROM discovery_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Status, &phase, &run.DryRun, &run.Verticals,
		&run.Config, &run.Report, &errText, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if phase != nil {
		run.CurrentPhase = *phase
	}
	if errText != nil {
		run.ErrorText = *errText
	}
	return &run, nil
}

// RunFilters holds optional filters for listing runs.
type RunFilters struct {
	Vertical string
	Status   string
	Limit    int
}

// ListRuns retrieves recent runs with optional filters, newest first.
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]DiscoveryRun, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, status, current_phase, dry_run, verticals, config, report, error, started_at, completed_at
		FROM discovery_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Vertical != "" {
		query += fmt.Sprintf(" AND $%d = ANY(verticals)", argNum)
		args = append(args, filters.Vertical)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []DiscoveryRun
	for rows.Next() {
		var run DiscoveryRun
		var phase, errText *string
		if err := rows.Scan(&run.ID, &run.Status, &phase, &run.DryRun, &run.Verticals,
			&run.Config, &run.Report, &errText, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if phase != nil {
			run.CurrentPhase = *phase
		}
		if errText != nil {
			run.ErrorText = *errText
		}
		runs = append(runs, run)
	}
	return runs, nil
}
