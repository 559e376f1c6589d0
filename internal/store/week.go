package store

import (
	"database/sql"
	"fmt"
	"time"

	"choreboard/internal/model"
)

type WeekStore struct {
	q Querier
}

func NewWeekStore(q Querier) *WeekStore {
	return &WeekStore{q: q}
}

const snapshotCols = `id, member_id, week_ending, points, perfect, streak, conversion, converted_at, created_at`

func scanSnapshot(scanner interface{ Scan(...any) error }) (*model.WeeklySnapshot, error) {
	var w model.WeeklySnapshot
	var convertedAt sql.NullTime
	err := scanner.Scan(
		&w.ID, &w.MemberID, &w.WeekEnding, &w.Points, &w.Perfect,
		&w.Streak, &w.Conversion, &convertedAt, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if convertedAt.Valid {
		t := convertedAt.Time
		w.ConvertedAt = &t
	}
	return &w, nil
}

func (s *WeekStore) Create(memberID int64, weekEnding string, points float64, perfect bool, streak int) (*model.WeeklySnapshot, error) {
	result, err := s.q.Exec(
		`INSERT INTO weekly_snapshots (member_id, week_ending, points, perfect, streak) VALUES (?, ?, ?, ?, ?)`,
		memberID, weekEnding, points, perfect, streak,
	)
	if err != nil {
		return nil, fmt.Errorf("insert weekly snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WeekStore) GetByID(id int64) (*model.WeeklySnapshot, error) {
	row := s.q.QueryRow(`SELECT `+snapshotCols+` FROM weekly_snapshots WHERE id = ?`, id)
	w, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly snapshot: %w", err)
	}
	return w, nil
}

func (s *WeekStore) GetByMemberAndWeek(memberID int64, weekEnding string) (*model.WeeklySnapshot, error) {
	row := s.q.QueryRow(
		`SELECT `+snapshotCols+` FROM weekly_snapshots WHERE member_id = ? AND week_ending = ?`,
		memberID, weekEnding,
	)
	w, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly snapshot by week: %w", err)
	}
	return w, nil
}

// Latest returns the member's most recent snapshot strictly before
// weekEnding, used to carry the streak forward.
func (s *WeekStore) Latest(memberID int64, beforeWeekEnding string) (*model.WeeklySnapshot, error) {
	row := s.q.QueryRow(
		`SELECT `+snapshotCols+` FROM weekly_snapshots
		 WHERE member_id = ? AND week_ending < ?
		 ORDER BY week_ending DESC LIMIT 1`,
		memberID, beforeWeekEnding,
	)
	w, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest weekly snapshot: %w", err)
	}
	return w, nil
}

func (s *WeekStore) ListByWeek(weekEnding string) ([]model.WeeklySnapshot, error) {
	rows, err := s.q.Query(
		`SELECT `+snapshotCols+` FROM weekly_snapshots WHERE week_ending = ? ORDER BY member_id ASC`,
		weekEnding,
	)
	if err != nil {
		return nil, fmt.Errorf("list weekly snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.WeeklySnapshot
	for rows.Next() {
		w, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weekly snapshot: %w", err)
		}
		snaps = append(snaps, *w)
	}
	return snaps, rows.Err()
}

// SetConversion moves the snapshot between conversion states. The WHERE
// clause guards the valid source state so concurrent convert/undo calls
// cannot both win.
func (s *WeekStore) SetConversion(id int64, from, to model.ConversionState, at time.Time) (bool, error) {
	var convertedAt any
	if to == model.ConversionApplied {
		convertedAt = at.UTC()
	}
	result, err := s.q.Exec(
		`UPDATE weekly_snapshots SET conversion = ?, converted_at = COALESCE(?, converted_at) WHERE id = ? AND conversion = ?`,
		to, convertedAt, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("set conversion state: %w", err)
	}
	return oneRow(result)
}
