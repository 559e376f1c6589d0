package store

import (
	"fmt"

	"choreboard/internal/model"
)

type DependencyStore struct {
	q Querier
}

func NewDependencyStore(q Querier) *DependencyStore {
	return &DependencyStore{q: q}
}

const dependencyCols = `id, parent_id, child_id, offset_hours, created_at`

func scanDependency(scanner interface{ Scan(...any) error }) (*model.Dependency, error) {
	var d model.Dependency
	err := scanner.Scan(&d.ID, &d.ParentID, &d.ChildID, &d.OffsetHours, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DependencyStore) Create(parentID, childID int64, offsetHours int) (*model.Dependency, error) {
	result, err := s.q.Exec(
		`INSERT INTO dependencies (parent_id, child_id, offset_hours) VALUES (?, ?, ?)`,
		parentID, childID, offsetHours,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dependency: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.q.QueryRow(`SELECT `+dependencyCols+` FROM dependencies WHERE id = ?`, id)
	return scanDependency(row)
}

func (s *DependencyStore) List() ([]model.Dependency, error) {
	rows, err := s.q.Query(`SELECT ` + dependencyCols + ` FROM dependencies ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []model.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, *d)
	}
	return deps, rows.Err()
}

func (s *DependencyStore) ListByParent(parentID int64) ([]model.Dependency, error) {
	rows, err := s.q.Query(
		`SELECT `+dependencyCols+` FROM dependencies WHERE parent_id = ? ORDER BY id ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dependencies by parent: %w", err)
	}
	defer rows.Close()

	var deps []model.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, *d)
	}
	return deps, rows.Err()
}

// ChildTemplateIDs returns the set of templates that are dependency
// children. The factory never materializes these by date; only the
// resolver creates their occurrences.
func (s *DependencyStore) ChildTemplateIDs() (map[int64]bool, error) {
	rows, err := s.q.Query(`SELECT DISTINCT child_id FROM dependencies`)
	if err != nil {
		return nil, fmt.Errorf("list child template ids: %w", err)
	}
	defer rows.Close()

	ids := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (s *DependencyStore) Delete(id int64) error {
	_, err := s.q.Exec(`DELETE FROM dependencies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dependency: %w", err)
	}
	return nil
}
