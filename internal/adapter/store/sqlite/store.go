// Package sqlite persists review runs and their findings. The recorded
// findings feed the offline evaluation harness.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dfarrell/patchreview/internal/domain"
	"github.com/dfarrell/patchreview/internal/usecase/review"
)

// Store implements the review.Store port using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at the given path. Use
// ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		title TEXT NOT NULL,
		base_branch TEXT,
		head_branch TEXT,
		model TEXT NOT NULL,
		cost_usd REAL DEFAULT 0.0,
		duration_ms INTEGER DEFAULT 0,
		turn_count INTEGER DEFAULT 0,
		num_findings INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS findings (
		finding_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		end_line INTEGER,
		severity TEXT NOT NULL,
		confidence TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		suggested_fix TEXT,
		related_locations TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun records a pipeline execution and returns its id.
func (s *Store) CreateRun(ctx context.Context, run review.StoreRun) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, title, base_branch, head_branch, model, cost_usd, duration_ms, turn_count, num_findings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Unix(),
		run.Title,
		run.BaseBranch,
		run.HeadBranch,
		run.Model,
		run.CostUSD,
		run.DurationMS,
		run.TurnCount,
		run.NumFindings,
	)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return res.LastInsertId()
}

// SaveFindings records the findings of one run in a single transaction.
func (s *Store) SaveFindings(ctx context.Context, runID int64, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (run_id, file, line, end_line, severity, confidence, category, description, suggested_fix, related_locations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range findings {
		related, err := encodeRelated(f.RelatedLocations)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			runID, f.File, f.Line, f.EndLine, f.Severity, f.Confidence,
			f.Category, f.Description, f.SuggestedFix, related,
		); err != nil {
			return fmt.Errorf("insert finding %s:%d: %w", f.File, f.Line, err)
		}
	}

	return tx.Commit()
}

// Run is one recorded pipeline execution as read back from the store.
type Run struct {
	ID          int64
	StartedAt   time.Time
	Title       string
	BaseBranch  string
	HeadBranch  string
	Model       string
	CostUSD     float64
	DurationMS  int64
	TurnCount   int
	NumFindings int
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, title, base_branch, head_branch, model, cost_usd, duration_ms, turn_count, num_findings
		FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt int64
		if err := rows.Scan(&r.ID, &startedAt, &r.Title, &r.BaseBranch, &r.HeadBranch,
			&r.Model, &r.CostUSD, &r.DurationMS, &r.TurnCount, &r.NumFindings); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetFindings returns the recorded findings of a run, in insertion order.
func (s *Store) GetFindings(ctx context.Context, runID int64) ([]domain.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file, line, end_line, severity, confidence, category, description, suggested_fix, related_locations
		FROM findings WHERE run_id = ? ORDER BY finding_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("get findings: %w", err)
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		var f domain.Finding
		var suggestedFix, related sql.NullString
		if err := rows.Scan(&f.File, &f.Line, &f.EndLine, &f.Severity, &f.Confidence,
			&f.Category, &f.Description, &suggestedFix, &related); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.SuggestedFix = suggestedFix.String
		if related.String != "" {
			if err := json.Unmarshal([]byte(related.String), &f.RelatedLocations); err != nil {
				return nil, fmt.Errorf("decode related locations: %w", err)
			}
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeRelated(locations []domain.RelatedLocation) (string, error) {
	if len(locations) == 0 {
		return "", nil
	}
	data, err := json.Marshal(locations)
	if err != nil {
		return "", fmt.Errorf("encode related locations: %w", err)
	}
	return string(data), nil
}
