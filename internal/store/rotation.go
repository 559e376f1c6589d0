package store

import (
	"database/sql"
	"fmt"

	"choreboard/internal/model"
)

type RotationStore struct {
	q Querier
}

func NewRotationStore(q Querier) *RotationStore {
	return &RotationStore{q: q}
}

func (s *RotationStore) Get(templateID int64) (*model.RotationState, error) {
	var r model.RotationState
	var last sql.NullInt64
	err := s.q.QueryRow(
		`SELECT template_id, last_assigned_to, updated_at FROM rotation_state WHERE template_id = ?`,
		templateID,
	).Scan(&r.TemplateID, &last, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rotation state: %w", err)
	}
	if last.Valid {
		r.LastAssignedTo = &last.Int64
	}
	return &r, nil
}

// Set records the last auto-assigned member for the template. Only the
// distribution sweep calls this; claims and manual assignments leave the
// pointer alone so nobody dodges their next turn.
func (s *RotationStore) Set(templateID, memberID int64) error {
	_, err := s.q.Exec(
		`INSERT INTO rotation_state (template_id, last_assigned_to, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (template_id) DO UPDATE SET last_assigned_to = excluded.last_assigned_to, updated_at = CURRENT_TIMESTAMP`,
		templateID, memberID,
	)
	if err != nil {
		return fmt.Errorf("set rotation state: %w", err)
	}
	return nil
}
