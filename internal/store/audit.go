package store

import (
	"database/sql"
	"fmt"

	"choreboard/internal/model"
)

type AuditStore struct {
	q Querier
}

func NewAuditStore(q Querier) *AuditStore {
	return &AuditStore{q: q}
}

func (s *AuditStore) Append(ref, action string, occurrenceID, actorID *int64, detail string) error {
	var occ, actor sql.NullInt64
	if occurrenceID != nil {
		occ = sql.NullInt64{Int64: *occurrenceID, Valid: true}
	}
	if actorID != nil {
		actor = sql.NullInt64{Int64: *actorID, Valid: true}
	}
	_, err := s.q.Exec(
		`INSERT INTO audit_log (ref, action, occurrence_id, actor_id, detail) VALUES (?, ?, ?, ?, ?)`,
		ref, action, occ, actor, detail,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *AuditStore) ListRecent(limit int) ([]model.AuditRecord, error) {
	rows, err := s.q.Query(
		`SELECT id, ref, action, occurrence_id, actor_id, detail, created_at FROM audit_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var r model.AuditRecord
		var occ, actor sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Ref, &r.Action, &occ, &actor, &r.Detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if occ.Valid {
			r.OccurrenceID = &occ.Int64
		}
		if actor.Valid {
			r.ActorID = &actor.Int64
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
