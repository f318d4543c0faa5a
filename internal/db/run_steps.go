package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordStep creates or updates the status row of a stage. started_at is set
// when the stage enters in_progress; completed_at and duration when it
// finishes.
func (db *DB) RecordStep(ctx context.Context, runID uuid.UUID, input *RunStepInput) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_steps (id, run_id, step, category, status, started_at, completed_at, duration_ms, error_message, updated_at)
		 VALUES ($1, $2, $3, $4, $5,
		         CASE WHEN $5 = 'in_progress' THEN NOW() END,
		         CASE WHEN $6 THEN NOW() END,
		         $7, $8, NOW())
		 ON CONFLICT (run_id, step) DO UPDATE SET
		     status = EXCLUDED.status,
		     category = COALESCE(NULLIF(EXCLUDED.category, ''), run_steps.category),
		     started_at = COALESCE(run_steps.started_at, EXCLUDED.started_at),
		     completed_at = EXCLUDED.completed_at,
		     duration_ms = EXCLUDED.duration_ms,
		     error_message = EXCLUDED.error_message,
		     updated_at = NOW()`,
		uuid.New(), runID, input.Step, input.Category, input.Status,
		input.finished(), durationMs(input.Duration), nullIfEmpty(input.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record run step %s: %w", input.Step, err)
	}
	return nil
}

// GetRunStep retrieves a run step by run_id and step name
func (db *DB) GetRunStep(ctx context.Context, runID uuid.UUID, stepName string) (*RunStep, error) {
	var step RunStep
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, step, category, status, started_at, completed_at,
		        duration_ms, error_message, updated_at
		 FROM run_steps
		 WHERE run_id = $1 AND step = $2`,
		runID, stepName,
	).Scan(&step.ID, &step.RunID, &step.Step, &step.Category, &step.Status,
		&step.StartedAt, &step.CompletedAt, &step.DurationMs, &step.ErrorMessage, &step.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run step: %w", err)
	}
	return &step, nil
}

// ListRunSteps retrieves all steps for a run in the order they started
func (db *DB) ListRunSteps(ctx context.Context, runID uuid.UUID) ([]RunStep, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, step, category, status, started_at, completed_at,
		        duration_ms, error_message, updated_at
		 FROM run_steps
		 WHERE run_id = $1
		 ORDER BY started_at NULLS LAST, step`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}
	defer rows.Close()

	var steps []RunStep
	for rows.Next() {
		var step RunStep
		if err := rows.Scan(&step.ID, &step.RunID, &step.Step, &step.Category, &step.Status,
			&step.StartedAt, &step.CompletedAt, &step.DurationMs, &step.ErrorMessage, &step.UpdatedAt); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}
