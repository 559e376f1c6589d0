package engine

import (
	"context"
	"database/sql"
	"sort"

	"choreboard/internal/model"
	"choreboard/internal/notify"
	"choreboard/internal/store"
)

// DistributeResult is the structured outcome of one distribution sweep.
type DistributeResult struct {
	Assigned int `json:"assigned"`
	Blocked  int `json:"blocked"`
	Skipped  int `json:"skipped"`
}

const jobDistribution = "distribution"

// RunDistribution sweeps pool occurrences of rotation-mode templates and
// picks an assignee for each. Idempotent: assigned occurrences leave the
// pool, and blocked ones stay in the sweep's input so they recover on a
// later run once an eligible member exists again.
func (e *Engine) RunDistribution(ctx context.Context) (*DistributeResult, error) {
	logger := e.logger.With("job", jobDistribution)
	res := &DistributeResult{}

	members, err := store.NewMemberStore(e.db).ListActive()
	if err != nil {
		return nil, err
	}

	pool, err := store.NewOccurrenceStore(e.db).ListPoolRotation()
	if err != nil {
		return nil, err
	}

	var events []notify.Event
	for _, occ := range pool {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ev, outcome, err := e.distributeOne(occ, members)
		if err != nil {
			logger.Error("distribute occurrence", "occurrence_id", occ.ID, "error", err)
			res.Skipped++
			continue
		}
		switch outcome {
		case distAssigned:
			res.Assigned++
		case distBlocked:
			res.Blocked++
		default:
			res.Skipped++
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}

	if err := store.NewJobRunStore(e.db).SetLastRun(jobDistribution, dayString(e.now())); err != nil {
		logger.Error("record last run", "error", err)
	}

	// Events go out only after their transactions committed.
	for _, ev := range events {
		e.emit(ev)
	}

	logger.Info("distribution finished",
		"assigned", res.Assigned, "blocked", res.Blocked, "skipped", res.Skipped)
	return res, nil
}

type distOutcome int

const (
	distSkipped distOutcome = iota
	distBlocked
	distAssigned
)

// distributeOne handles a single pool occurrence in its own transaction.
// The outcome is reported back to the caller, which only counts it once
// the transaction committed, so a rollback never inflates the result.
func (e *Engine) distributeOne(occ model.Occurrence, members []model.Member) (*notify.Event, distOutcome, error) {
	var event *notify.Event
	outcome := distSkipped
	err := e.inTx(func(tx *sql.Tx) error {
		templates := store.NewTemplateStore(tx)
		tpl, err := templates.GetByID(occ.TemplateID)
		if err != nil {
			return err
		}
		if tpl == nil || !tpl.Active || tpl.Mode != model.ModeRotation {
			return nil
		}

		rotation := store.NewRotationStore(tx)
		state, err := rotation.Get(tpl.ID)
		if err != nil {
			return err
		}
		var last *int64
		if state != nil {
			last = state.LastAssignedTo
		}

		eligible := eligibleMembers(members, tpl, last)
		if len(eligible) == 0 {
			ok, err := store.NewOccurrenceStore(tx).MarkBlocked(occ.ID)
			if err != nil {
				return err
			}
			if ok {
				outcome = distBlocked
				ev := notify.NewEvent(notify.EventBlocked, &occ.ID, nil, map[string]any{
					"template": tpl.Name,
				})
				event = &ev
			}
			return nil
		}

		pick := nextInRotation(eligible, last)
		ok, err := store.NewOccurrenceStore(tx).TransitionAssign(occ.ID, pick.ID, model.ReasonAuto, e.now())
		if err != nil {
			return err
		}
		if !ok {
			// Someone claimed it between the sweep's read and now.
			return nil
		}
		if err := rotation.Set(tpl.ID, pick.ID); err != nil {
			return err
		}
		outcome = distAssigned
		ev := notify.NewEvent(notify.EventAssigned, &occ.ID, &pick.ID, map[string]any{
			"template": tpl.Name,
			"member":   pick.Name,
		})
		event = &ev
		return nil
	})
	if err != nil {
		return nil, distSkipped, err
	}
	return event, outcome, nil
}

// eligibleMembers filters to members the sweep may assign: active,
// assignable, not exempted from auto-assignment, and, for undesirable
// templates, not the previous occupant unless they are the only candidate
// left.
func eligibleMembers(members []model.Member, tpl *model.Template, last *int64) []model.Member {
	var eligible []model.Member
	for _, m := range members {
		if !m.Active || !m.Assignable || m.AutoAssignExempt {
			continue
		}
		eligible = append(eligible, m)
	}

	if tpl.Undesirable && last != nil && len(eligible) > 1 {
		var filtered []model.Member
		for _, m := range eligible {
			if m.ID != *last {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) > 0 {
			eligible = filtered
		}
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible
}

// nextInRotation picks the first member whose id follows the rotation
// pointer, wrapping to the lowest id. Deterministic for a given pointer and
// eligible set.
func nextInRotation(eligible []model.Member, last *int64) model.Member {
	if last == nil {
		return eligible[0]
	}
	for _, m := range eligible {
		if m.ID > *last {
			return m
		}
	}
	return eligible[0]
}
