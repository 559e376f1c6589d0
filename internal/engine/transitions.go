package engine

import (
	"database/sql"
	"fmt"
	"math"

	"choreboard/internal/model"
	"choreboard/internal/notify"
	"choreboard/internal/store"
)

// Claim moves a pool occurrence to the acting member. Exactly one of two
// racing claims succeeds; the loser gets ErrConflict. The daily claim limit
// is enforced inside the same transaction as the transition.
func (e *Engine) Claim(occurrenceID, memberID int64) (*model.Occurrence, error) {
	now := e.now()
	day := dayString(now)

	err := e.inTx(func(tx *sql.Tx) error {
		if _, err := requireMember(tx, memberID); err != nil {
			return err
		}

		claims := store.NewClaimCountStore(tx)
		n, err := claims.Get(memberID, day)
		if err != nil {
			return err
		}
		if e.cfg.ClaimLimit > 0 && n >= e.cfg.ClaimLimit {
			return fmt.Errorf("daily claim limit reached: %w", ErrConflict)
		}

		ok, err := store.NewOccurrenceStore(tx).TransitionClaim(occurrenceID, memberID)
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("occurrence %d is not claimable: %w", occurrenceID, ErrConflict)
		}

		if err := claims.Increment(memberID, day); err != nil {
			return err
		}
		return audit(tx, "claim", &occurrenceID, &memberID, "")
	})
	if err != nil {
		return nil, err
	}

	occ, err := store.NewOccurrenceStore(e.db).GetByID(occurrenceID)
	if err != nil {
		return nil, err
	}
	e.emit(notify.NewEvent(notify.EventClaimed, &occurrenceID, &memberID, nil))
	return occ, nil
}

// Unclaim returns a claimed occurrence to the pool. Only the claimant may
// do it, and only while the assignment reason is still "claimed".
func (e *Engine) Unclaim(occurrenceID, memberID int64) (*model.Occurrence, error) {
	day := dayString(e.now())

	err := e.inTx(func(tx *sql.Tx) error {
		ok, err := store.NewOccurrenceStore(tx).TransitionUnclaim(occurrenceID, memberID)
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("occurrence %d is not unclaimed by member %d: %w", occurrenceID, memberID, ErrConflict)
		}
		if err := store.NewClaimCountStore(tx).Decrement(memberID, day); err != nil {
			return err
		}
		return audit(tx, "unclaim", &occurrenceID, &memberID, "")
	})
	if err != nil {
		return nil, err
	}
	return store.NewOccurrenceStore(e.db).GetByID(occurrenceID)
}

// Assign is a forced (manual) assignment by an admin. It never updates
// RotationState.
func (e *Engine) Assign(occurrenceID, actorID, memberID int64) (*model.Occurrence, error) {
	err := e.inTx(func(tx *sql.Tx) error {
		if _, err := requireAdmin(tx, actorID); err != nil {
			return err
		}
		if _, err := requireMember(tx, memberID); err != nil {
			return err
		}

		ok, err := store.NewOccurrenceStore(tx).TransitionAssign(occurrenceID, memberID, model.ReasonManual, e.now())
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("occurrence %d is not assignable: %w", occurrenceID, ErrConflict)
		}
		return audit(tx, "assign", &occurrenceID, &actorID, fmt.Sprintf("member=%d", memberID))
	})
	if err != nil {
		return nil, err
	}

	occ, err := store.NewOccurrenceStore(e.db).GetByID(occurrenceID)
	if err != nil {
		return nil, err
	}
	e.emit(notify.NewEvent(notify.EventAssigned, &occurrenceID, &memberID, map[string]any{"manual": true}))
	return occ, nil
}

// Complete finishes an occurrence from the pool or an assignment, no
// claim is required. Points split evenly across the completer and helpers,
// each share floored to whole cents; the remainder is absorbed, never
// redistributed. Ledger entries, completion shares, the transition, and
// dependency spawning commit as one unit.
func (e *Engine) Complete(occurrenceID, completerID int64, helperIDs []int64) (*model.Occurrence, error) {
	now := e.now()

	participants := []int64{completerID}
	seen := map[int64]bool{completerID: true}
	for _, id := range helperIDs {
		if !seen[id] {
			seen[id] = true
			participants = append(participants, id)
		}
	}

	err := e.inTx(func(tx *sql.Tx) error {
		for _, id := range participants {
			if _, err := requireMember(tx, id); err != nil {
				return err
			}
		}

		occs := store.NewOccurrenceStore(tx)
		occ, err := occs.GetByID(occurrenceID)
		if err != nil {
			return err
		}
		if occ == nil {
			return fmt.Errorf("occurrence %d: %w", occurrenceID, ErrNotFound)
		}

		late := now.After(occ.DueAt)
		ok, err := occs.TransitionComplete(occurrenceID, now, late)
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("occurrence %d is not completable: %w", occurrenceID, ErrConflict)
		}

		completions := store.NewCompletionStore(tx)
		completion, err := completions.Create(store.CreateCompletionParams{
			OccurrenceID:   occurrenceID,
			CompletedBy:    completerID,
			CompletedAt:    now,
			Late:           late,
			PrevStatus:     occ.Status,
			PrevAssignedTo: occ.AssignedTo,
			PrevReason:     occ.AssignReason,
		})
		if err != nil {
			return err
		}

		share := splitShare(occ.Points, len(participants))
		ledger := store.NewLedgerStore(tx)
		members := store.NewMemberStore(tx)
		for _, id := range participants {
			if _, err := completions.CreateShare(completion.ID, id, share); err != nil {
				return err
			}
			if _, err := ledger.Append(id, share, model.LedgerAward, &completion.ID, ""); err != nil {
				return err
			}
			if err := members.AddWeeklyPoints(id, share); err != nil {
				return err
			}
		}

		if _, err := spawnChildren(tx, completion, occ.TemplateID); err != nil {
			return err
		}
		return audit(tx, "complete", &occurrenceID, &completerID, fmt.Sprintf("helpers=%d", len(participants)-1))
	})
	if err != nil {
		return nil, err
	}

	occ, err := store.NewOccurrenceStore(e.db).GetByID(occurrenceID)
	if err != nil {
		return nil, err
	}
	e.emit(notify.NewEvent(notify.EventCompleted, &occurrenceID, &completerID, map[string]any{
		"helpers": len(participants) - 1,
	}))
	return occ, nil
}

// splitShare divides points evenly among n participants, floored to whole
// cents per head. The few cents of rounding loss are accepted, not
// redistributed.
func splitShare(points float64, n int) float64 {
	totalCents := int64(math.Round(points * 100))
	return float64(totalCents/int64(n)) / 100
}

// Undo reverses a completion within its window: offsetting ledger entries
// (the ledger stays append-only), soft-invalidated completion and shares,
// and the occurrence restored to its exact pre-completion state.
func (e *Engine) Undo(occurrenceID, actorID int64) (*model.Occurrence, error) {
	now := e.now()

	err := e.inTx(func(tx *sql.Tx) error {
		if _, err := requireMember(tx, actorID); err != nil {
			return err
		}

		completions := store.NewCompletionStore(tx)
		completion, err := completions.ActiveForOccurrence(occurrenceID)
		if err != nil {
			return err
		}
		if completion == nil {
			return fmt.Errorf("occurrence %d has no completion: %w", occurrenceID, ErrConflict)
		}
		if now.Sub(completion.CompletedAt) > e.cfg.UndoWindow {
			return fmt.Errorf("completed %s ago: %w", now.Sub(completion.CompletedAt), ErrWindowExpired)
		}

		entries, err := store.NewLedgerStore(tx).ListByRef(model.LedgerAward, completion.ID)
		if err != nil {
			return err
		}
		ledger := store.NewLedgerStore(tx)
		members := store.NewMemberStore(tx)
		for _, entry := range entries {
			if _, err := ledger.Append(entry.MemberID, -entry.Points, model.LedgerUndo, &completion.ID, "completion undone"); err != nil {
				return err
			}
			if err := members.AddWeeklyPoints(entry.MemberID, -entry.Points); err != nil {
				return err
			}
		}

		if err := completions.MarkUndone(completion.ID, now); err != nil {
			return err
		}

		occs := store.NewOccurrenceStore(tx)
		ok, err := occs.TransitionRestore(occurrenceID, completion.PrevStatus, completion.PrevAssignedTo, completion.PrevReason)
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("occurrence %d is not completed: %w", occurrenceID, ErrConflict)
		}
		return audit(tx, "undo", &occurrenceID, &actorID, "")
	})
	if err != nil {
		return nil, err
	}

	occ, err := store.NewOccurrenceStore(e.db).GetByID(occurrenceID)
	if err != nil {
		return nil, err
	}
	e.emit(notify.NewEvent(notify.EventUndone, &occurrenceID, &actorID, nil))
	return occ, nil
}

// Skip terminally retires an occurrence without completing it. Admin-only.
// A skip is not a failed assignment: RotationState is untouched, so the
// same member is eligible again at the next sweep, and the next scheduled
// occurrence still fires.
func (e *Engine) Skip(occurrenceID, actorID int64, reason string) (*model.Occurrence, error) {
	err := e.inTx(func(tx *sql.Tx) error {
		if _, err := requireAdmin(tx, actorID); err != nil {
			return err
		}

		ok, err := store.NewOccurrenceStore(tx).TransitionSkip(occurrenceID, reason, actorID)
		if err != nil {
			return asConflict(err)
		}
		if !ok {
			return fmt.Errorf("occurrence %d is not skippable: %w", occurrenceID, ErrConflict)
		}
		return audit(tx, "skip", &occurrenceID, &actorID, reason)
	})
	if err != nil {
		return nil, err
	}
	return store.NewOccurrenceStore(e.db).GetByID(occurrenceID)
}
