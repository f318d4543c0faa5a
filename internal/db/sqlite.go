package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLite is a local single-file archive with the same surface as DB.
type SQLite struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the archive at path and migrates it.
// The special path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve sqlite path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", abs)
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps an in-memory database alive.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLite{db: conn, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) migrate(ctx context.Context) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i, stmt := range sqliteSchema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("execute schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqliteRun struct {
	ID          string        `db:"id"`
	Company     string        `db:"company"`
	RoleTitle   string        `db:"role_title"`
	Source      string        `db:"source"`
	Status      string        `db:"status"`
	CreatedAt   int64         `db:"created_at"`
	CompletedAt sql.NullInt64 `db:"completed_at"`
}

func (r sqliteRun) toRun() (Run, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return Run{}, fmt.Errorf("invalid run id %q: %w", r.ID, err)
	}
	return Run{
		ID:          id,
		Company:     r.Company,
		RoleTitle:   r.RoleTitle,
		Source:      r.Source,
		Status:      r.Status,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
		CompletedAt: fromMillis(r.CompletedAt),
	}, nil
}

type sqliteStep struct {
	ID           string         `db:"id"`
	RunID        string         `db:"run_id"`
	Step         string         `db:"step"`
	Category     string         `db:"category"`
	Status       string         `db:"status"`
	StartedAt    sql.NullInt64  `db:"started_at"`
	CompletedAt  sql.NullInt64  `db:"completed_at"`
	DurationMs   sql.NullInt64  `db:"duration_ms"`
	ErrorMessage sql.NullString `db:"error_message"`
	UpdatedAt    int64          `db:"updated_at"`
}

func (r sqliteStep) toStep() (RunStep, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return RunStep{}, fmt.Errorf("invalid step id %q: %w", r.ID, err)
	}
	runID, err := uuid.Parse(r.RunID)
	if err != nil {
		return RunStep{}, fmt.Errorf("invalid run id %q: %w", r.RunID, err)
	}
	step := RunStep{
		ID:          id,
		RunID:       runID,
		Step:        r.Step,
		Category:    r.Category,
		Status:      r.Status,
		StartedAt:   fromMillis(r.StartedAt),
		CompletedAt: fromMillis(r.CompletedAt),
		UpdatedAt:   time.UnixMilli(r.UpdatedAt).UTC(),
	}
	if r.DurationMs.Valid {
		ms := int(r.DurationMs.Int64)
		step.DurationMs = &ms
	}
	if r.ErrorMessage.Valid {
		msg := r.ErrorMessage.String
		step.ErrorMessage = &msg
	}
	return step, nil
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

// CreateRun creates a new pipeline run record and returns its ID
func (s *SQLite) CreateRun(ctx context.Context, company, roleTitle, source string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, company, role_title, source, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), company, roleTitle, source, RunStatusRunning, s.now().UnixMilli(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun sets the final status of a pipeline run
func (s *SQLite) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, completed_at = ? WHERE id = ?`,
		status, s.now().UnixMilli(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to complete run: run %s not found", runID)
	}
	return nil
}

// GetRun retrieves a pipeline run by ID
func (s *SQLite) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var row sqliteRun
	err := s.db.GetContext(ctx, &row,
		`SELECT id, company, role_title, source, status, created_at, completed_at
		 FROM pipeline_runs WHERE id = ?`, runID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run, err := row.toRun()
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves recent pipeline runs
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var rows []sqliteRun
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, company, role_title, source, status, created_at, completed_at
		 FROM pipeline_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// RecordStep creates or updates the status row of a stage.
func (s *SQLite) RecordStep(ctx context.Context, runID uuid.UUID, input *RunStepInput) error {
	now := s.now().UnixMilli()
	var started, completed sql.NullInt64
	if input.Status == StepStatusInProgress {
		started = sql.NullInt64{Int64: now, Valid: true}
	}
	if input.finished() {
		completed = sql.NullInt64{Int64: now, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_steps (id, run_id, step, category, status, started_at, completed_at, duration_ms, error_message, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, step) DO UPDATE SET
		     status = excluded.status,
		     category = COALESCE(NULLIF(excluded.category, ''), run_steps.category),
		     started_at = COALESCE(run_steps.started_at, excluded.started_at),
		     completed_at = excluded.completed_at,
		     duration_ms = excluded.duration_ms,
		     error_message = excluded.error_message,
		     updated_at = excluded.updated_at`,
		uuid.New().String(), runID.String(), input.Step, input.Category, input.Status,
		started, completed, durationMs(input.Duration), nullIfEmpty(input.Error), now,
	)
	if err != nil {
		return fmt.Errorf("failed to record run step %s: %w", input.Step, err)
	}
	return nil
}

// GetRunStep retrieves a run step by run_id and step name
func (s *SQLite) GetRunStep(ctx context.Context, runID uuid.UUID, stepName string) (*RunStep, error) {
	var row sqliteStep
	err := s.db.GetContext(ctx, &row,
		`SELECT id, run_id, step, category, status, started_at, completed_at, duration_ms, error_message, updated_at
		 FROM run_steps WHERE run_id = ? AND step = ?`, runID.String(), stepName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run step: %w", err)
	}
	step, err := row.toStep()
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// ListRunSteps retrieves all steps for a run in the order they started
func (s *SQLite) ListRunSteps(ctx context.Context, runID uuid.UUID) ([]RunStep, error) {
	var rows []sqliteStep
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, run_id, step, category, status, started_at, completed_at, duration_ms, error_message, updated_at
		 FROM run_steps WHERE run_id = ?
		 ORDER BY started_at IS NULL, started_at, rowid`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}
	steps := make([]RunStep, 0, len(rows))
	for _, r := range rows {
		step, err := r.toStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// SaveArtifact stores a JSON artifact for a pipeline run
func (s *SQLite) SaveArtifact(ctx context.Context, runID uuid.UUID, key, category string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, key, category, content, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, key) DO UPDATE SET category = excluded.category, content = excluded.content, created_at = excluded.created_at`,
		runID.String(), key, category, jsonBytes, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", key, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and session key
func (s *SQLite) GetArtifact(ctx context.Context, runID uuid.UUID, key string) ([]byte, error) {
	var content []byte
	err := s.db.GetContext(ctx, &content,
		`SELECT content FROM artifacts WHERE run_id = ? AND key = ?`, runID.String(), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", key, err)
	}
	return content, nil
}

// ListArtifacts returns the artifacts of a run ordered by key.
func (s *SQLite) ListArtifacts(ctx context.Context, runID uuid.UUID) ([]Artifact, error) {
	var rows []struct {
		Key       string `db:"key"`
		Category  string `db:"category"`
		Content   []byte `db:"content"`
		CreatedAt int64  `db:"created_at"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT key, category, content, created_at FROM artifacts WHERE run_id = ? ORDER BY key`,
		runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	out := make([]Artifact, 0, len(rows))
	for _, r := range rows {
		out = append(out, Artifact{
			RunID:     runID,
			Key:       r.Key,
			Category:  r.Category,
			Content:   r.Content,
			CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		})
	}
	return out, nil
}

// GetFreshPage returns the cached page for url if it was fetched within ttl.
func (s *SQLite) GetFreshPage(ctx context.Context, url string, ttl time.Duration) (*Page, error) {
	var row struct {
		URL        string `db:"url"`
		HTML       string `db:"html"`
		Text       string `db:"text"`
		StatusCode int    `db:"status_code"`
		FetchedAt  int64  `db:"fetched_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT url, html, text, status_code, fetched_at FROM pages WHERE url = ? AND fetched_at > ?`,
		url, s.now().Add(-ttl).UnixMilli())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &Page{
		URL:        row.URL,
		HTML:       row.HTML,
		Text:       row.Text,
		StatusCode: row.StatusCode,
		FetchedAt:  time.UnixMilli(row.FetchedAt).UTC(),
	}, nil
}

// UpsertPage stores a fetched page.
func (s *SQLite) UpsertPage(ctx context.Context, p *Page) error {
	if p.FetchedAt.IsZero() {
		p.FetchedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (url, html, text, status_code, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET html = excluded.html, text = excluded.text,
		     status_code = excluded.status_code, fetched_at = excluded.fetched_at`,
		p.URL, p.HTML, p.Text, p.StatusCode, p.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}
