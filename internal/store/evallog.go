package store

import (
	"database/sql"
	"fmt"

	"choreboard/internal/model"
)

type EvalLogStore struct {
	q Querier
}

func NewEvalLogStore(q Querier) *EvalLogStore {
	return &EvalLogStore{q: q}
}

func (s *EvalLogStore) Append(runDate string, templateID *int64, outcome model.EvalOutcome, detail string) error {
	var tid sql.NullInt64
	if templateID != nil {
		tid = sql.NullInt64{Int64: *templateID, Valid: true}
	}
	_, err := s.q.Exec(
		`INSERT INTO evaluation_log (run_date, template_id, outcome, detail) VALUES (?, ?, ?, ?)`,
		runDate, tid, outcome, detail,
	)
	if err != nil {
		return fmt.Errorf("append evaluation log: %w", err)
	}
	return nil
}

func (s *EvalLogStore) ListByDate(runDate string) ([]model.EvaluationLog, error) {
	rows, err := s.q.Query(
		`SELECT id, run_date, template_id, outcome, detail, created_at FROM evaluation_log WHERE run_date = ? ORDER BY id ASC`,
		runDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list evaluation log: %w", err)
	}
	defer rows.Close()

	var logs []model.EvaluationLog
	for rows.Next() {
		var l model.EvaluationLog
		var tid sql.NullInt64
		if err := rows.Scan(&l.ID, &l.RunDate, &tid, &l.Outcome, &l.Detail, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation log: %w", err)
		}
		if tid.Valid {
			l.TemplateID = &tid.Int64
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
