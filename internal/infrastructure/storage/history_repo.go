// Package storage provides SQLite-backed implementations of the application
// layer persistence ports.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/job"
)

// HistoryRepository implements ports.JobHistory using SQLite.
type HistoryRepository struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) the job history database at
// dbPath and applies migrations. The special path ":memory:" yields an
// in-memory database.
func OpenHistory(dbPath string) (*HistoryRepository, error) {
	if dbPath == "" {
		return nil, errors.New("history database path is required")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("could not create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open history database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not ping history database: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	return &HistoryRepository{db: db}, nil
}

// NewHistoryRepository wraps an already opened database. The caller is
// responsible for schema setup when using this constructor.
func NewHistoryRepository(db *sql.DB) ports.JobHistory {
	return &HistoryRepository{db: db}
}

// SaveSubmission persists a freshly submitted job.
func (r *HistoryRepository) SaveSubmission(ctx context.Context, rec job.Record) error {
	if rec.ID == "" {
		return errors.New("job record id is required")
	}

	query := `
		INSERT INTO job_records (id, target_url, status, error, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.TargetURL,
		string(rec.Status),
		rec.Error,
		rec.SubmittedAt.UTC().Format(time.RFC3339),
		formatNullableTime(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}

	return nil
}

// UpdateOutcome records the terminal status of a previously saved job.
func (r *HistoryRepository) UpdateOutcome(ctx context.Context, rec job.Record) error {
	if rec.ID == "" {
		return errors.New("job record id is required")
	}

	query := `
		UPDATE job_records
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query,
		string(rec.Status),
		rec.Error,
		formatNullableTime(rec.CompletedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job record %s not found", rec.ID)
	}

	return nil
}

// Get retrieves a single job record by id. Returns nil when no record
// exists.
func (r *HistoryRepository) Get(ctx context.Context, id string) (*job.Record, error) {
	query := `
		SELECT id, target_url, status, error, submitted_at, completed_at
		FROM job_records
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}

	return rec, nil
}

// List returns the most recently submitted job records, newest first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]job.Record, error) {
	query := `
		SELECT id, target_url, status, error, submitted_at, completed_at
		FROM job_records
		ORDER BY submitted_at DESC
	`
	args := make([]any, 0, 1)

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}
	defer rows.Close()

	var records []job.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job records: %w", err)
	}

	return records, nil
}

// Close closes the underlying database.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

// scanRecord reads one job record row via the given scan function.
func scanRecord(scan func(dest ...any) error) (*job.Record, error) {
	var (
		rec         job.Record
		status      string
		submittedAt string
		completedAt sql.NullString
	)

	if err := scan(&rec.ID, &rec.TargetURL, &status, &rec.Error, &submittedAt, &completedAt); err != nil {
		return nil, err
	}

	rec.Status = job.Status(status)

	parsed, err := time.Parse(time.RFC3339, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid submitted_at %q: %w", submittedAt, err)
	}
	rec.SubmittedAt = parsed

	if completedAt.Valid && completedAt.String != "" {
		parsed, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		rec.CompletedAt = parsed
	}

	return &rec, nil
}

// formatNullableTime maps the zero time onto NULL.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
