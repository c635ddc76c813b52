package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/you-humble/sttqueue/core/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	input_path   TEXT NOT NULL,
	date_dir     TEXT NOT NULL,
	filename     TEXT NOT NULL,
	result       TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	attempts     INTEGER NOT NULL DEFAULT 0,
	submitted_at INTEGER NOT NULL,
	started_at   INTEGER NOT NULL DEFAULT 0,
	finished_at  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_jobs_submitted ON jobs(submitted_at);
`

// sqliteJobStore keeps job records in a single SQLite file. It serves
// single-host deployments where API and workers share a disk.
type sqliteJobStore struct {
	db *sql.DB
}

func NewSQLiteJobStore(path string) (*sqliteJobStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &sqliteJobStore{db: db}, nil
}

func (s *sqliteJobStore) Close() error {
	return s.db.Close()
}

func (s *sqliteJobStore) Create(ctx context.Context, j domain.Job) error {
	if j.ID == "" {
		return fmt.Errorf("create job: empty id")
	}
	if j.Status == "" {
		j.Status = domain.StatusPending
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (id, status, input_path, date_dir, filename, result, error, attempts, submitted_at, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Status), j.InputPath, j.Partition, j.Filename, j.Result, j.Error, j.Attempts,
		unixNano(j.SubmittedAt), unixNano(j.StartedAt), unixNano(j.FinishedAt))
	if err != nil {
		return fmt.Errorf("sqlite insert job: %w", err)
	}
	return nil
}

func (s *sqliteJobStore) Job(ctx context.Context, id string) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, status, input_path, date_dir, filename, result, error, attempts, submitted_at, started_at, finished_at
FROM jobs WHERE id = ?`, id)

	var (
		j                            domain.Job
		status                       string
		submitted, started, finished int64
	)
	err := row.Scan(&j.ID, &status, &j.InputPath, &j.Partition, &j.Filename, &j.Result, &j.Error,
		&j.Attempts, &submitted, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("sqlite select job: %w", err)
	}

	j.Status = domain.JobStatus(status)
	j.SubmittedAt = fromUnixNano(submitted)
	j.StartedAt = fromUnixNano(started)
	j.FinishedAt = fromUnixNano(finished)

	return j, nil
}

func (s *sqliteJobStore) MarkRunning(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE jobs SET status = ?, started_at = ?, attempts = attempts + 1
WHERE id = ? AND status NOT IN (?, ?)`,
		string(domain.StatusRunning), unixNano(at), id,
		string(domain.StatusSucceeded), string(domain.StatusFailed))
	if err != nil {
		return false, fmt.Errorf("sqlite MarkRunning: %w", err)
	}
	return s.affected(ctx, res, id)
}

func (s *sqliteJobStore) Complete(ctx context.Context, id, result string, at time.Time) (bool, error) {
	return s.finish(ctx, id, domain.StatusSucceeded, result, "", at)
}

func (s *sqliteJobStore) Fail(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	return s.finish(ctx, id, domain.StatusFailed, "", reason, at)
}

func (s *sqliteJobStore) finish(
	ctx context.Context,
	id string,
	status domain.JobStatus,
	result, reason string,
	at time.Time,
) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE jobs SET status = ?, result = ?, error = ?, finished_at = ?
WHERE id = ? AND status NOT IN (?, ?)`,
		string(status), result, reason, unixNano(at), id,
		string(domain.StatusSucceeded), string(domain.StatusFailed))
	if err != nil {
		return false, fmt.Errorf("sqlite finish %s: %w", status, err)
	}
	return s.affected(ctx, res, id)
}

// affected turns a conditional UPDATE result into (applied, err), telling a
// terminal job apart from a missing one.
func (s *sqliteJobStore) affected(ctx context.Context, res sql.Result, id string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrJobNotFound
	}
	if err != nil {
		return false, fmt.Errorf("sqlite select job: %w", err)
	}
	return false, nil
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
