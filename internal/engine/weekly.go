package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"choreboard/internal/model"
	"choreboard/internal/notify"
	"choreboard/internal/store"
)

const jobWeekly = "weekly"

// WeeklyResult summarizes one aggregation run.
type WeeklyResult struct {
	WeekEnding string
	Snapshots  int
	Skipped    int
}

// RunWeeklyAggregation snapshots every active member's weekly points for
// the week ending at weekEnd (exclusive). A member with an existing
// snapshot for that week is skipped, so re-running is harmless. A week is
// perfect when none of the member's assignments in the window went
// overdue; perfect weeks extend the streak, anything else resets it.
func (e *Engine) RunWeeklyAggregation(ctx context.Context, weekEnd time.Time) (*WeeklyResult, error) {
	weekEnd = startOfDay(weekEnd)
	weekStart := weekEnd.AddDate(0, 0, -7)
	weekEnding := dayString(weekEnd)
	now := e.now()

	res := &WeeklyResult{WeekEnding: weekEnding}
	var events []notify.Event

	err := e.inTx(func(tx *sql.Tx) error {
		members, err := store.NewMemberStore(tx).ListActive()
		if err != nil {
			return err
		}
		weeks := store.NewWeekStore(tx)
		occs := store.NewOccurrenceStore(tx)

		for _, m := range members {
			existing, err := weeks.GetByMemberAndWeek(m.ID, weekEnding)
			if err != nil {
				return err
			}
			if existing != nil {
				res.Skipped++
				continue
			}

			overdue, err := occs.HasOverdueInWindow(m.ID, weekStart, weekEnd, now)
			if err != nil {
				return err
			}
			perfect := !overdue

			streak := 0
			if perfect {
				prev, err := weeks.Latest(m.ID, weekEnding)
				if err != nil {
					return err
				}
				if prev != nil {
					streak = prev.Streak
				}
				streak++
			}

			snap, err := weeks.Create(m.ID, weekEnding, m.WeeklyPoints, perfect, streak)
			if err != nil {
				return err
			}
			res.Snapshots++
			events = append(events, notify.NewEvent(notify.EventWeeklyReady, nil, &m.ID, map[string]any{
				"week_ending": weekEnding,
				"points":      snap.Points,
				"perfect":     perfect,
			}))
		}

		return store.NewJobRunStore(tx).SetLastRun(jobWeekly, weekEnding)
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		e.emit(ev)
	}
	e.logger.Info("weekly aggregation finished",
		"week_ending", weekEnding,
		"snapshots", res.Snapshots,
		"skipped", res.Skipped)
	return res, nil
}

// ConvertSnapshot converts a pending weekly snapshot into a payout: the
// snapshot amount is debited from the ledger and subtracted from the live
// weekly counter, leaving anything accrued since the snapshot intact.
// The pending-to-applied transition is guarded, so double conversion of
// the same snapshot fails with ErrConflict.
func (e *Engine) ConvertSnapshot(snapshotID, actorID int64) (*model.WeeklySnapshot, error) {
	now := e.now()

	err := e.inTx(func(tx *sql.Tx) error {
		if _, err := requireAdmin(tx, actorID); err != nil {
			return err
		}

		weeks := store.NewWeekStore(tx)
		snap, err := weeks.GetByID(snapshotID)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("snapshot %d: %w", snapshotID, ErrNotFound)
		}

		ok, err := weeks.SetConversion(snapshotID, model.ConversionPending, model.ConversionApplied, now)
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("snapshot %d is not pending: %w", snapshotID, ErrConflict)
		}

		if _, err := store.NewLedgerStore(tx).Append(snap.MemberID, -snap.Points, model.LedgerConversion, &snapshotID, "weekly conversion"); err != nil {
			return err
		}
		if err := store.NewMemberStore(tx).AddWeeklyPoints(snap.MemberID, -snap.Points); err != nil {
			return err
		}
		return audit(tx, "convert", nil, &actorID, fmt.Sprintf("snapshot=%d", snapshotID))
	})
	if err != nil {
		return nil, err
	}
	return store.NewWeekStore(e.db).GetByID(snapshotID)
}

// UndoConversion reverses an applied conversion within its window,
// crediting the amount back via an offsetting ledger entry.
func (e *Engine) UndoConversion(snapshotID, actorID int64) (*model.WeeklySnapshot, error) {
	now := e.now()

	err := e.inTx(func(tx *sql.Tx) error {
		if _, err := requireAdmin(tx, actorID); err != nil {
			return err
		}

		weeks := store.NewWeekStore(tx)
		snap, err := weeks.GetByID(snapshotID)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("snapshot %d: %w", snapshotID, ErrNotFound)
		}
		if snap.ConvertedAt != nil && now.Sub(*snap.ConvertedAt) > e.cfg.ConversionUndoWindow {
			return fmt.Errorf("converted %s ago: %w", now.Sub(*snap.ConvertedAt), ErrWindowExpired)
		}

		ok, err := weeks.SetConversion(snapshotID, model.ConversionApplied, model.ConversionUndone, now)
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("snapshot %d is not applied: %w", snapshotID, ErrConflict)
		}

		if _, err := store.NewLedgerStore(tx).Append(snap.MemberID, snap.Points, model.LedgerConversionUndo, &snapshotID, "conversion undone"); err != nil {
			return err
		}
		if err := store.NewMemberStore(tx).AddWeeklyPoints(snap.MemberID, snap.Points); err != nil {
			return err
		}
		return audit(tx, "convert_undo", nil, &actorID, fmt.Sprintf("snapshot=%d", snapshotID))
	})
	if err != nil {
		return nil, err
	}
	return store.NewWeekStore(e.db).GetByID(snapshotID)
}
