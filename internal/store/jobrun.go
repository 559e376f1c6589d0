package store

import (
	"database/sql"
	"fmt"
)

// JobRunStore persists each periodic job's last run marker, so the
// scheduler state survives restarts instead of living in a process
// singleton.
type JobRunStore struct {
	q Querier
}

func NewJobRunStore(q Querier) *JobRunStore {
	return &JobRunStore{q: q}
}

func (s *JobRunStore) LastRun(job string) (string, error) {
	var last string
	err := s.q.QueryRow(`SELECT last_run FROM job_runs WHERE job = ?`, job).Scan(&last)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get last run: %w", err)
	}
	return last, nil
}

func (s *JobRunStore) SetLastRun(job, marker string) error {
	_, err := s.q.Exec(
		`INSERT INTO job_runs (job, last_run, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (job) DO UPDATE SET last_run = excluded.last_run, updated_at = CURRENT_TIMESTAMP`,
		job, marker,
	)
	if err != nil {
		return fmt.Errorf("set last run: %w", err)
	}
	return nil
}
