package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"choreboard/internal/model"
)

// ErrDuplicate is returned when an occurrence already exists for the same
// (template, date) or (template, parent completion). Callers treat it as an
// idempotent no-op, not a failure.
var ErrDuplicate = errors.New("duplicate occurrence")

type OccurrenceStore struct {
	q Querier
}

func NewOccurrenceStore(q Querier) *OccurrenceStore {
	return &OccurrenceStore{q: q}
}

const occurrenceCols = `id, template_id, occ_date, status, assigned_to, assign_reason, due_at, distributed_at, points, completed_at, late, spawned_from, skip_reason, archived, created_at, updated_at`

func scanOccurrence(scanner interface{ Scan(...any) error }) (*model.Occurrence, error) {
	var o model.Occurrence
	var assignedTo, spawnedFrom sql.NullInt64
	var distributedAt, completedAt sql.NullTime

	err := scanner.Scan(
		&o.ID, &o.TemplateID, &o.Date, &o.Status, &assignedTo,
		&o.AssignReason, &o.DueAt, &distributedAt, &o.Points,
		&completedAt, &o.Late, &spawnedFrom, &o.SkipReason,
		&o.Archived, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		o.AssignedTo = &assignedTo.Int64
	}
	if spawnedFrom.Valid {
		o.SpawnedFrom = &spawnedFrom.Int64
	}
	if distributedAt.Valid {
		t := distributedAt.Time
		o.DistributedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	return &o, nil
}

// CreateOccurrenceParams is the factory's materialization output.
type CreateOccurrenceParams struct {
	TemplateID  int64
	Date        string
	Status      model.OccurrenceStatus
	AssignedTo  *int64
	Reason      model.AssignReason
	DueAt       time.Time
	Points      float64
	SpawnedFrom *int64
}

func (s *OccurrenceStore) Create(p CreateOccurrenceParams) (*model.Occurrence, error) {
	var assignedTo sql.NullInt64
	if p.AssignedTo != nil {
		assignedTo = sql.NullInt64{Int64: *p.AssignedTo, Valid: true}
	}
	var spawnedFrom sql.NullInt64
	if p.SpawnedFrom != nil {
		spawnedFrom = sql.NullInt64{Int64: *p.SpawnedFrom, Valid: true}
	}

	result, err := s.q.Exec(
		`INSERT INTO occurrences (template_id, occ_date, status, assigned_to, assign_reason, due_at, points, spawned_from)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TemplateID, p.Date, p.Status, assignedTo, p.Reason,
		p.DueAt.UTC(), p.Points, spawnedFrom,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert occurrence: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *OccurrenceStore) GetByID(id int64) (*model.Occurrence, error) {
	row := s.q.QueryRow(`SELECT `+occurrenceCols+` FROM occurrences WHERE id = ?`, id)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence: %w", err)
	}
	return o, nil
}

func (s *OccurrenceStore) GetByTemplateAndDate(templateID int64, date string) (*model.Occurrence, error) {
	row := s.q.QueryRow(
		`SELECT `+occurrenceCols+` FROM occurrences WHERE template_id = ? AND occ_date = ? AND spawned_from IS NULL`,
		templateID, date,
	)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence by date: %w", err)
	}
	return o, nil
}

// ExistsForTemplate reports whether any occurrence has ever been created
// for the template. Used for the one-occurrence-ever rule of one-time
// tasks.
func (s *OccurrenceStore) ExistsForTemplate(templateID int64) (bool, error) {
	var n int
	err := s.q.QueryRow(`SELECT COUNT(*) FROM occurrences WHERE template_id = ?`, templateID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count occurrences: %w", err)
	}
	return n > 0, nil
}

func (s *OccurrenceStore) GetBySpawn(templateID, completionID int64) (*model.Occurrence, error) {
	row := s.q.QueryRow(
		`SELECT `+occurrenceCols+` FROM occurrences WHERE template_id = ? AND spawned_from = ?`,
		templateID, completionID,
	)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get spawned occurrence: %w", err)
	}
	return o, nil
}

func (s *OccurrenceStore) ListForDate(date string) ([]model.Occurrence, error) {
	rows, err := s.q.Query(
		`SELECT `+occurrenceCols+` FROM occurrences WHERE occ_date = ? AND archived = 0 ORDER BY id ASC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences for date: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

// ListPoolRotation returns unarchived pool occurrences whose template uses
// rotation mode and is still active; the distribution sweep's input.
// Blocked occurrences stay in the result so a later sweep can assign them
// once the eligible set recovers.
func (s *OccurrenceStore) ListPoolRotation() ([]model.Occurrence, error) {
	rows, err := s.q.Query(
		`SELECT ` + occurrenceCols + ` FROM occurrences
		 WHERE status = 'pool' AND archived = 0
		   AND template_id IN (SELECT id FROM templates WHERE mode = 'rotation' AND active = 1)
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pool rotation occurrences: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

// ListOneTimeCompletedBefore returns completed one-time occurrences whose
// undo window elapsed before cutoff and that are not yet archived.
func (s *OccurrenceStore) ListOneTimeCompletedBefore(cutoff time.Time) ([]model.Occurrence, error) {
	rows, err := s.q.Query(
		`SELECT `+occurrenceCols+` FROM occurrences
		 WHERE status = 'completed' AND archived = 0 AND completed_at < ?
		   AND template_id IN (SELECT id FROM templates WHERE kind = 'one_time')
		 ORDER BY id ASC`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list one-time completed: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

// ListOverdueUnnotified returns open occurrences past due whose overdue
// event has not been emitted yet.
func (s *OccurrenceStore) ListOverdueUnnotified(now time.Time) ([]model.Occurrence, error) {
	rows, err := s.q.Query(
		`SELECT `+occurrenceCols+` FROM occurrences
		 WHERE status IN ('pool', 'assigned') AND archived = 0
		   AND overdue_notified = 0 AND due_at < ?
		 ORDER BY id ASC`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue occurrences: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

func (s *OccurrenceStore) MarkOverdueNotified(id int64) error {
	_, err := s.q.Exec(`UPDATE occurrences SET overdue_notified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark overdue notified: %w", err)
	}
	return nil
}

func collectOccurrences(rows *sql.Rows) ([]model.Occurrence, error) {
	var occs []model.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occs = append(occs, *o)
	}
	return occs, rows.Err()
}

// --- Guarded transitions ---
//
// Each transition is a single UPDATE whose WHERE clause encodes the valid
// source state. Zero rows affected means a concurrent caller won the race
// (or the occurrence was not in a valid state); the engine maps that to a
// Conflict. The update itself is the row lock.

func (s *OccurrenceStore) TransitionClaim(id, memberID int64) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE occurrences SET status = 'assigned', assigned_to = ?, assign_reason = 'claimed', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pool' AND archived = 0`,
		memberID, id,
	)
	if err != nil {
		return false, fmt.Errorf("claim occurrence: %w", err)
	}
	return oneRow(result)
}

func (s *OccurrenceStore) TransitionUnclaim(id, memberID int64) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE occurrences SET status = 'pool', assigned_to = NULL, assign_reason = '', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'assigned' AND assign_reason = 'claimed' AND assigned_to = ? AND archived = 0`,
		id, memberID,
	)
	if err != nil {
		return false, fmt.Errorf("unclaim occurrence: %w", err)
	}
	return oneRow(result)
}

func (s *OccurrenceStore) TransitionAssign(id, memberID int64, reason model.AssignReason, distributedAt time.Time) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE occurrences SET status = 'assigned', assigned_to = ?, assign_reason = ?, distributed_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pool' AND archived = 0`,
		memberID, reason, distributedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("assign occurrence: %w", err)
	}
	return oneRow(result)
}

// MarkBlocked records that no eligible assignee exists. Already-blocked
// rows are left alone so repeated sweeps do not re-announce the same state.
func (s *OccurrenceStore) MarkBlocked(id int64) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE occurrences SET assign_reason = 'blocked', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pool' AND archived = 0 AND assign_reason != 'blocked'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark blocked: %w", err)
	}
	return oneRow(result)
}

func (s *OccurrenceStore) TransitionComplete(id int64, completedAt time.Time, late bool) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE occurrences SET status = 'completed', completed_at = ?, late = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN ('pool', 'assigned') AND archived = 0`,
		completedAt.UTC(), late, id,
	)
	if err != nil {
		return false, fmt.Errorf("complete occurrence: %w", err)
	}
	return oneRow(result)
}

// TransitionRestore reverts a completed occurrence to its pre-completion
// state (undo path).
func (s *OccurrenceStore) TransitionRestore(id int64, status model.OccurrenceStatus, assignedTo *int64, reason model.AssignReason) (bool, error) {
	var assignee sql.NullInt64
	if assignedTo != nil {
		assignee = sql.NullInt64{Int64: *assignedTo, Valid: true}
	}
	result, err := s.q.Exec(
		`UPDATE occurrences SET status = ?, assigned_to = ?, assign_reason = ?, completed_at = NULL, late = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'completed' AND archived = 0`,
		status, assignee, reason, id,
	)
	if err != nil {
		return false, fmt.Errorf("restore occurrence: %w", err)
	}
	return oneRow(result)
}

func (s *OccurrenceStore) TransitionSkip(id int64, reason string, actorID int64) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE occurrences SET status = 'skipped', skip_reason = ?, skipped_by = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN ('pool', 'assigned') AND archived = 0`,
		reason, actorID, id,
	)
	if err != nil {
		return false, fmt.Errorf("skip occurrence: %w", err)
	}
	return oneRow(result)
}

func (s *OccurrenceStore) Archive(id int64) error {
	_, err := s.q.Exec(
		`UPDATE occurrences SET archived = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("archive occurrence: %w", err)
	}
	return nil
}

// HasOverdueInWindow reports whether any occurrence assigned to the member
// was overdue at any point during [start, end): it completed late, or its
// due time passed inside the window while it stayed open.
func (s *OccurrenceStore) HasOverdueInWindow(memberID int64, start, end, now time.Time) (bool, error) {
	var n int
	err := s.q.QueryRow(
		`SELECT COUNT(*) FROM occurrences
		 WHERE assigned_to = ? AND archived = 0
		   AND due_at >= ? AND due_at < ?
		   AND (
		     (status = 'completed' AND late = 1)
		     OR (status IN ('pool', 'assigned') AND due_at < ?)
		   )`,
		memberID, start.UTC(), end.UTC(), now.UTC(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check overdue in window: %w", err)
	}
	return n > 0, nil
}

func oneRow(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
