package store

import (
	"database/sql"
	"fmt"
	"time"

	"choreboard/internal/model"
)

type CompletionStore struct {
	q Querier
}

func NewCompletionStore(q Querier) *CompletionStore {
	return &CompletionStore{q: q}
}

const completionCols = `id, occurrence_id, completed_by, completed_at, late, prev_status, prev_assigned_to, prev_reason, undone, undone_at`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var prevAssigned sql.NullInt64
	var undoneAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.OccurrenceID, &c.CompletedBy, &c.CompletedAt, &c.Late,
		&c.PrevStatus, &prevAssigned, &c.PrevReason, &c.Undone, &undoneAt,
	)
	if err != nil {
		return nil, err
	}

	if prevAssigned.Valid {
		c.PrevAssignedTo = &prevAssigned.Int64
	}
	if undoneAt.Valid {
		t := undoneAt.Time
		c.UndoneAt = &t
	}
	return &c, nil
}

type CreateCompletionParams struct {
	OccurrenceID   int64
	CompletedBy    int64
	CompletedAt    time.Time
	Late           bool
	PrevStatus     model.OccurrenceStatus
	PrevAssignedTo *int64
	PrevReason     model.AssignReason
}

func (s *CompletionStore) Create(p CreateCompletionParams) (*model.Completion, error) {
	var prevAssigned sql.NullInt64
	if p.PrevAssignedTo != nil {
		prevAssigned = sql.NullInt64{Int64: *p.PrevAssignedTo, Valid: true}
	}

	result, err := s.q.Exec(
		`INSERT INTO completions (occurrence_id, completed_by, completed_at, late, prev_status, prev_assigned_to, prev_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.OccurrenceID, p.CompletedBy, p.CompletedAt.UTC(), p.Late,
		p.PrevStatus, prevAssigned, p.PrevReason,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CompletionStore) GetByID(id int64) (*model.Completion, error) {
	row := s.q.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// ActiveForOccurrence returns the occurrence's live (not undone)
// completion, or nil.
func (s *CompletionStore) ActiveForOccurrence(occurrenceID int64) (*model.Completion, error) {
	row := s.q.QueryRow(
		`SELECT `+completionCols+` FROM completions WHERE occurrence_id = ? AND undone = 0 ORDER BY completed_at DESC LIMIT 1`,
		occurrenceID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active completion: %w", err)
	}
	return c, nil
}

// ListActive returns all live completions, oldest first. The resolver uses
// it to re-spawn dependency children a crashed run may have missed.
func (s *CompletionStore) ListActive() ([]model.Completion, error) {
	rows, err := s.q.Query(
		`SELECT ` + completionCols + ` FROM completions WHERE undone = 0 ORDER BY completed_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active completions: %w", err)
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// MarkUndone soft-invalidates the completion; its shares stay on record but
// no longer count.
func (s *CompletionStore) MarkUndone(id int64, at time.Time) error {
	_, err := s.q.Exec(
		`UPDATE completions SET undone = 1, undone_at = ? WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark completion undone: %w", err)
	}
	return nil
}

func (s *CompletionStore) CreateShare(completionID, memberID int64, points float64) (*model.CompletionShare, error) {
	result, err := s.q.Exec(
		`INSERT INTO completion_shares (completion_id, member_id, points) VALUES (?, ?, ?)`,
		completionID, memberID, points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert share: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.CompletionShare{ID: id, CompletionID: completionID, MemberID: memberID, Points: points}, nil
}

func (s *CompletionStore) ListShares(completionID int64) ([]model.CompletionShare, error) {
	rows, err := s.q.Query(
		`SELECT id, completion_id, member_id, points FROM completion_shares WHERE completion_id = ? ORDER BY id ASC`,
		completionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []model.CompletionShare
	for rows.Next() {
		var sh model.CompletionShare
		if err := rows.Scan(&sh.ID, &sh.CompletionID, &sh.MemberID, &sh.Points); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}
