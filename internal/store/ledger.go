package store

import (
	"database/sql"
	"fmt"

	"choreboard/internal/model"
)

// LedgerStore appends to and reads the points ledger. There is no update or
// delete path: reversals are offsetting entries.
type LedgerStore struct {
	q Querier
}

func NewLedgerStore(q Querier) *LedgerStore {
	return &LedgerStore{q: q}
}

const ledgerCols = `id, member_id, points, kind, ref_id, note, created_at`

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var refID sql.NullInt64
	err := scanner.Scan(&e.ID, &e.MemberID, &e.Points, &e.Kind, &refID, &e.Note, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if refID.Valid {
		e.RefID = &refID.Int64
	}
	return &e, nil
}

func (s *LedgerStore) Append(memberID int64, points float64, kind model.LedgerKind, refID *int64, note string) (*model.LedgerEntry, error) {
	var ref sql.NullInt64
	if refID != nil {
		ref = sql.NullInt64{Int64: *refID, Valid: true}
	}

	result, err := s.q.Exec(
		`INSERT INTO points_ledger (member_id, points, kind, ref_id, note) VALUES (?, ?, ?, ?, ?)`,
		memberID, points, kind, ref, note,
	)
	if err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.q.QueryRow(`SELECT `+ledgerCols+` FROM points_ledger WHERE id = ?`, id)
	return scanLedgerEntry(row)
}

func (s *LedgerStore) ListByMember(memberID int64) ([]model.LedgerEntry, error) {
	rows, err := s.q.Query(
		`SELECT `+ledgerCols+` FROM points_ledger WHERE member_id = ? ORDER BY id ASC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ListByRef returns the entries written against a completion or snapshot,
// the input for offsetting reversals.
func (s *LedgerStore) ListByRef(kind model.LedgerKind, refID int64) ([]model.LedgerEntry, error) {
	rows, err := s.q.Query(
		`SELECT `+ledgerCols+` FROM points_ledger WHERE kind = ? AND ref_id = ? ORDER BY id ASC`,
		kind, refID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries by ref: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Total recomputes a member's running balance from the ledger. The ledger
// is the authority; any cached counter is derived.
func (s *LedgerStore) Total(memberID int64) (float64, error) {
	var total sql.NullFloat64
	err := s.q.QueryRow(
		`SELECT SUM(points) FROM points_ledger WHERE member_id = ?`, memberID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ledger total: %w", err)
	}
	return total.Float64, nil
}

// Balances returns every member's ledger total.
func (s *LedgerStore) Balances() ([]model.PointBalance, error) {
	rows, err := s.q.Query(
		`SELECT m.id, m.name, COALESCE(SUM(l.points), 0)
		 FROM members m LEFT JOIN points_ledger l ON l.member_id = m.id
		 GROUP BY m.id, m.name ORDER BY m.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger balances: %w", err)
	}
	defer rows.Close()

	var balances []model.PointBalance
	for rows.Next() {
		var b model.PointBalance
		if err := rows.Scan(&b.MemberID, &b.MemberName, &b.Total); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
