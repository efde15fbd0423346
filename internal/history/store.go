package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a missing job row.
var ErrNotFound = errors.New("job not found")

const jobColumns = "id, run_id, source_path, output_path, ledger_path, engine, chunk_seconds, chunk_count, processed_chunks, skipped_chunks, caption_count, total_seconds, status, error_message, started_at, finished_at"

// Store records job runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("history: database path required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Start inserts a running job and returns its row ID.
func (s *Store) Start(ctx context.Context, job Job) (int64, error) {
	started := job.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            run_id, source_path, output_path, ledger_path, engine,
            chunk_seconds, chunk_count, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.RunID,
		job.Source,
		job.Output,
		job.Ledger,
		job.Engine,
		job.ChunkSeconds,
		job.ChunkCount,
		StatusRunning,
		formatTime(started),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Finish records the outcome of a job started with Start.
func (s *Store) Finish(ctx context.Context, id int64, outcome Outcome) error {
	if !outcome.Status.IsTerminal() {
		return fmt.Errorf("finish job %d: status %q is not terminal", id, outcome.Status)
	}
	var message any
	if outcome.Err != nil {
		message = outcome.Err.Error()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET
            status = ?, chunk_count = CASE WHEN ? > 0 THEN ? ELSE chunk_count END,
            processed_chunks = ?, skipped_chunks = ?, caption_count = ?,
            total_seconds = ?, error_message = ?, finished_at = ?
        WHERE id = ?`,
		outcome.Status,
		outcome.ChunkCount, outcome.ChunkCount,
		outcome.Processed,
		outcome.Skipped,
		outcome.Captions,
		outcome.TotalSeconds,
		message,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish job %d: %w", id, ErrNotFound)
	}
	return nil
}

// Get fetches one job by row ID.
func (s *Store) Get(ctx context.Context, id int64) (Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return job, err
}

// List returns the most recent jobs first. A limit <= 0 returns all jobs.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs ORDER BY started_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// MarkAbandoned flips jobs left running by a crashed process to failed.
// Callers hold the ledger lock, so only rows for that ledger are touched.
func (s *Store) MarkAbandoned(ctx context.Context, ledgerPath string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?
        WHERE status = ? AND ledger_path = ?`,
		StatusFailed,
		"process exited before the job finished",
		formatTime(time.Now()),
		StatusRunning,
		ledgerPath,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (Job, error) {
	var (
		job         Job
		status      string
		errMessage  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.RunID,
		&job.Source,
		&job.Output,
		&job.Ledger,
		&job.Engine,
		&job.ChunkSeconds,
		&job.ChunkCount,
		&job.Processed,
		&job.Skipped,
		&job.Captions,
		&job.TotalSeconds,
		&status,
		&errMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	job.ErrorMessage = errMessage.String
	job.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		job.FinishedAt = parseTime(finishedRaw.String)
	}
	return job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
