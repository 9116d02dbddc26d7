// Package store provides SQLite-backed persistence for retrieval
// progress. One row per export job, upserted after every completed
// index.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("store initialized", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// LoadState retrieves the persisted state for a job. Returns (nil, nil)
// when the job has no recorded progress yet.
func (s *Store) LoadState(jobID string) (*State, error) {
	const query = `
		SELECT job_id, last_completed_index, max_index, output_dir, delay_seconds, updated_at
		FROM retrieval_state WHERE job_id = ?
	`

	st := &State{}
	err := s.db.QueryRow(query, jobID).Scan(
		&st.JobID, &st.LastCompletedIndex, &st.MaxIndex,
		&st.OutputDir, &st.DelaySeconds, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state for job %s: %w", jobID, err)
	}
	return st, nil
}

// SaveState upserts the state row for st.JobID. The write commits
// before SaveState returns; the engine relies on that ordering to make
// the last-completed marker trustworthy across crashes.
func (s *Store) SaveState(st *State) error {
	const query = `
		INSERT INTO retrieval_state (job_id, last_completed_index, max_index, output_dir, delay_seconds, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			last_completed_index = excluded.last_completed_index,
			max_index = excluded.max_index,
			output_dir = excluded.output_dir,
			delay_seconds = excluded.delay_seconds,
			updated_at = excluded.updated_at
	`

	st.UpdatedAt = time.Now().UTC()
	if _, err := s.db.Exec(
		query,
		st.JobID, st.LastCompletedIndex, st.MaxIndex,
		st.OutputDir, st.DelaySeconds, st.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to save state for job %s: %w", st.JobID, err)
	}
	return nil
}

// DeleteState removes the persisted progress for a job.
func (s *Store) DeleteState(jobID string) error {
	if _, err := s.db.Exec(`DELETE FROM retrieval_state WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete state for job %s: %w", jobID, err)
	}
	return nil
}
