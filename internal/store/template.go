package store

import (
	"database/sql"
	"fmt"
	"time"

	"choreboard/internal/model"
)

type TemplateStore struct {
	q Querier
}

func NewTemplateStore(q Querier) *TemplateStore {
	return &TemplateStore{q: q}
}

const templateCols = `id, name, description, points, difficulty, kind, rule, anchor_date, mode, assigned_to, undesirable, active, due_at, created_at, updated_at`

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.Template, error) {
	var t model.Template
	var assignedTo sql.NullInt64
	var dueAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.Points, &t.Difficulty,
		&t.Kind, &t.Rule, &t.AnchorDate, &t.Mode, &assignedTo,
		&t.Undesirable, &t.Active, &dueAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.Int64
	}
	if dueAt.Valid {
		due := dueAt.Time
		t.DueAt = &due
	}
	return &t, nil
}

// CreateParams carries the admin-owned template configuration.
type CreateParams struct {
	Name        string
	Description string
	Points      float64
	Difficulty  int
	Kind        model.ScheduleKind
	Rule        string
	AnchorDate  time.Time
	Mode        model.AssignMode
	AssignedTo  *int64
	Undesirable bool
	DueAt       *time.Time
}

func (s *TemplateStore) Create(p CreateParams) (*model.Template, error) {
	var assignedTo sql.NullInt64
	if p.AssignedTo != nil {
		assignedTo = sql.NullInt64{Int64: *p.AssignedTo, Valid: true}
	}
	var dueAt sql.NullTime
	if p.DueAt != nil {
		dueAt = sql.NullTime{Time: *p.DueAt, Valid: true}
	}

	result, err := s.q.Exec(
		`INSERT INTO templates (name, description, points, difficulty, kind, rule, anchor_date, mode, assigned_to, undesirable, due_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Points, p.Difficulty, p.Kind, p.Rule,
		p.AnchorDate.UTC(), p.Mode, assignedTo, p.Undesirable, dueAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) GetByID(id int64) (*model.Template, error) {
	row := s.q.QueryRow(`SELECT `+templateCols+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) List() ([]model.Template, error) {
	rows, err := s.q.Query(`SELECT ` + templateCols + ` FROM templates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func (s *TemplateStore) ListActive() ([]model.Template, error) {
	rows, err := s.q.Query(`SELECT ` + templateCols + ` FROM templates WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func collectTemplates(rows *sql.Rows) ([]model.Template, error) {
	var templates []model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *TemplateStore) Update(id int64, p CreateParams) (*model.Template, error) {
	var assignedTo sql.NullInt64
	if p.AssignedTo != nil {
		assignedTo = sql.NullInt64{Int64: *p.AssignedTo, Valid: true}
	}
	var dueAt sql.NullTime
	if p.DueAt != nil {
		dueAt = sql.NullTime{Time: *p.DueAt, Valid: true}
	}

	_, err := s.q.Exec(
		`UPDATE templates SET name = ?, description = ?, points = ?, difficulty = ?, kind = ?, rule = ?, anchor_date = ?, mode = ?, assigned_to = ?, undesirable = ?, due_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Description, p.Points, p.Difficulty, p.Kind, p.Rule,
		p.AnchorDate.UTC(), p.Mode, assignedTo, p.Undesirable, dueAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) SetActive(id int64, active bool) error {
	_, err := s.q.Exec(
		`UPDATE templates SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	return nil
}
