package store

import (
	"database/sql"
	"fmt"

	"choreboard/internal/model"
)

type MemberStore struct {
	q Querier
}

func NewMemberStore(q Querier) *MemberStore {
	return &MemberStore{q: q}
}

const memberCols = `id, name, admin, active, assignable, auto_assign_exempt, weekly_points, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(
		&m.ID, &m.Name, &m.Admin, &m.Active, &m.Assignable,
		&m.AutoAssignExempt, &m.WeeklyPoints, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberStore) Create(name string, admin bool) (*model.Member, error) {
	result, err := s.q.Exec(
		`INSERT INTO members (name, admin) VALUES (?, ?)`,
		name, admin,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.q.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) List() ([]model.Member, error) {
	rows, err := s.q.Query(`SELECT ` + memberCols + ` FROM members ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListActive returns active members ordered by id (the rotation order).
func (s *MemberStore) ListActive() ([]model.Member, error) {
	rows, err := s.q.Query(`SELECT ` + memberCols + ` FROM members WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) Update(id int64, name string, admin, active, assignable, autoAssignExempt bool) (*model.Member, error) {
	_, err := s.q.Exec(
		`UPDATE members SET name = ?, admin = ?, active = ?, assignable = ?, auto_assign_exempt = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, admin, active, assignable, autoAssignExempt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(id)
}

// AddWeeklyPoints adjusts the live weekly counter; delta may be negative.
func (s *MemberStore) AddWeeklyPoints(id int64, delta float64) error {
	_, err := s.q.Exec(
		`UPDATE members SET weekly_points = weekly_points + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("add weekly points: %w", err)
	}
	return nil
}
