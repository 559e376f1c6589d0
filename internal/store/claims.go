package store

import (
	"database/sql"
	"fmt"
)

// ClaimCountStore tracks per-member daily claim counters for the claim
// limit.
type ClaimCountStore struct {
	q Querier
}

func NewClaimCountStore(q Querier) *ClaimCountStore {
	return &ClaimCountStore{q: q}
}

func (s *ClaimCountStore) Get(memberID int64, date string) (int, error) {
	var n int
	err := s.q.QueryRow(
		`SELECT count FROM claim_counts WHERE member_id = ? AND claim_date = ?`,
		memberID, date,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get claim count: %w", err)
	}
	return n, nil
}

func (s *ClaimCountStore) Increment(memberID int64, date string) error {
	_, err := s.q.Exec(
		`INSERT INTO claim_counts (member_id, claim_date, count) VALUES (?, ?, 1)
		 ON CONFLICT (member_id, claim_date) DO UPDATE SET count = count + 1`,
		memberID, date,
	)
	if err != nil {
		return fmt.Errorf("increment claim count: %w", err)
	}
	return nil
}

func (s *ClaimCountStore) Decrement(memberID int64, date string) error {
	_, err := s.q.Exec(
		`UPDATE claim_counts SET count = MAX(count - 1, 0) WHERE member_id = ? AND claim_date = ?`,
		memberID, date,
	)
	if err != nil {
		return fmt.Errorf("decrement claim count: %w", err)
	}
	return nil
}
