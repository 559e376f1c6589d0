package engine

import (
	"context"
	"errors"
	"time"

	"choreboard/internal/model"
	"choreboard/internal/schedule"
	"choreboard/internal/store"
)

// EvalResult is the structured outcome of one daily evaluation run.
type EvalResult struct {
	Date       string `json:"date"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
	Errors     int    `json:"errors"`
	Spawned    int    `json:"spawned"`
	Archived   int    `json:"archived"`
}

const jobDailyEvaluation = "daily_evaluation"

// RunDailyEvaluation turns recurrence rules into concrete occurrences for
// the given date. Safe to re-invoke for the same date: duplicates are
// suppressed, dependency spawns replay as no-ops, and a template whose rule
// fails to parse is logged and skipped without aborting the rest.
func (e *Engine) RunDailyEvaluation(ctx context.Context, date time.Time) (*EvalResult, error) {
	day := dayString(date)
	logger := e.logger.With("job", jobDailyEvaluation, "date", day)
	res := &EvalResult{Date: day}

	templates := store.NewTemplateStore(e.db)
	evalLog := store.NewEvalLogStore(e.db)

	childIDs, err := store.NewDependencyStore(e.db).ChildTemplateIDs()
	if err != nil {
		return nil, err
	}

	active, err := templates.ListActive()
	if err != nil {
		return nil, err
	}

	for i := range active {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tpl := active[i]

		// One-time occurrences are born at template activation.
		if tpl.Kind == model.KindOneTime || childIDs[tpl.ID] {
			continue
		}

		rule, err := schedule.Parse(tpl.Kind, tpl.Rule)
		if err != nil {
			res.Errors++
			logger.Error("rule parse failed", "template_id", tpl.ID, "error", err)
			if lerr := evalLog.Append(day, &tpl.ID, model.EvalError, err.Error()); lerr != nil {
				logger.Error("append evaluation log", "error", lerr)
			}
			continue
		}

		if !rule.Matches(date, tpl.AnchorDate) {
			res.Skipped++
			continue
		}

		occ, err := materialize(e.db, tpl, date, childIDs)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			res.Duplicates++
			logger.Debug("occurrence already exists", "template_id", tpl.ID)
			if lerr := evalLog.Append(day, &tpl.ID, model.EvalDuplicate, ""); lerr != nil {
				logger.Error("append evaluation log", "error", lerr)
			}
		case err != nil:
			res.Errors++
			logger.Error("materialize failed", "template_id", tpl.ID, "error", err)
			if lerr := evalLog.Append(day, &tpl.ID, model.EvalError, err.Error()); lerr != nil {
				logger.Error("append evaluation log", "error", lerr)
			}
		case occ == nil:
			res.Skipped++
		default:
			res.Created++
			if lerr := evalLog.Append(day, &tpl.ID, model.EvalCreated, ""); lerr != nil {
				logger.Error("append evaluation log", "error", lerr)
			}
		}
	}

	// Catch up dependency children for parents completed before a crash
	// or restart.
	spawned, err := spawnPending(e.db)
	if err != nil {
		logger.Error("spawn pending children", "error", err)
		res.Errors++
	}
	res.Spawned = spawned

	archived, err := e.archiveOneTime()
	if err != nil {
		logger.Error("archive one-time tasks", "error", err)
		res.Errors++
	}
	res.Archived = archived

	if err := store.NewJobRunStore(e.db).SetLastRun(jobDailyEvaluation, day); err != nil {
		logger.Error("record last run", "error", err)
	}

	logger.Info("daily evaluation finished",
		"created", res.Created, "skipped", res.Skipped,
		"duplicates", res.Duplicates, "errors", res.Errors,
		"spawned", res.Spawned, "archived", res.Archived)
	return res, nil
}

// archiveOneTime retires completed one-time tasks once their undo window
// has elapsed: the occurrence is archived and the template deactivated.
// Deliberately separate from regular completion semantics.
func (e *Engine) archiveOneTime() (int, error) {
	cutoff := e.now().Add(-e.cfg.OneTimeArchiveWindow)
	occs := store.NewOccurrenceStore(e.db)
	templates := store.NewTemplateStore(e.db)

	done, err := occs.ListOneTimeCompletedBefore(cutoff)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, occ := range done {
		if err := occs.Archive(occ.ID); err != nil {
			return archived, err
		}
		if err := templates.SetActive(occ.TemplateID, false); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}
