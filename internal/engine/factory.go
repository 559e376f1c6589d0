package engine

import (
	"database/sql"
	"fmt"
	"time"

	"choreboard/internal/model"
	"choreboard/internal/store"
)

// materialize creates the occurrence for (template, date) if one is owed.
// Returns nil when the template is inactive, the occurrence already exists,
// a one-time template already produced its single occurrence, or the
// template is a dependency child (those are created only by the resolver).
//
// The occurrence snapshots the template's current point value; later edits
// to the template never touch it.
func materialize(q store.Querier, tpl model.Template, date time.Time, childIDs map[int64]bool) (*model.Occurrence, error) {
	if !tpl.Active || childIDs[tpl.ID] {
		return nil, nil
	}

	occs := store.NewOccurrenceStore(q)

	if tpl.Kind == model.KindOneTime {
		exists, err := occs.ExistsForTemplate(tpl.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}
		due := model.FarFuture
		if tpl.DueAt != nil {
			due = tpl.DueAt.UTC()
		}
		return occs.Create(occurrenceParams(tpl, date, due, nil))
	}

	// Due at the start of the following day.
	due := startOfDay(date).AddDate(0, 0, 1)
	return occs.Create(occurrenceParams(tpl, date, due, nil))
}

// occurrenceParams applies the assignment-mode-driven initial state: fixed
// templates are assigned immediately, everything else starts in the pool
// (rotation waits for the distribution sweep).
func occurrenceParams(tpl model.Template, date time.Time, due time.Time, spawnedFrom *int64) store.CreateOccurrenceParams {
	p := store.CreateOccurrenceParams{
		TemplateID:  tpl.ID,
		Date:        dayString(date),
		Status:      model.StatusPool,
		Reason:      model.ReasonNone,
		DueAt:       due,
		Points:      tpl.Points,
		SpawnedFrom: spawnedFrom,
	}
	if tpl.Mode == model.ModeFixed && tpl.AssignedTo != nil {
		p.Status = model.StatusAssigned
		p.AssignedTo = tpl.AssignedTo
		p.Reason = model.ReasonAuto
	}
	return p
}

// ActivateTemplate marks a template active. For one-time templates this is
// the moment their single occurrence is born; they are never picked up by
// date-driven evaluation.
func (e *Engine) ActivateTemplate(templateID int64) (*model.Occurrence, error) {
	var created *model.Occurrence
	err := e.inTx(func(tx *sql.Tx) error {
		templates := store.NewTemplateStore(tx)
		tpl, err := templates.GetByID(templateID)
		if err != nil {
			return err
		}
		if tpl == nil {
			return fmt.Errorf("template %d: %w", templateID, ErrNotFound)
		}
		if err := templates.SetActive(templateID, true); err != nil {
			return err
		}
		if tpl.Kind != model.KindOneTime {
			return nil
		}
		// Dependency children are born by parent completion, never by
		// activation.
		childIDs, err := store.NewDependencyStore(tx).ChildTemplateIDs()
		if err != nil {
			return err
		}
		tpl.Active = true
		occ, err := materialize(tx, *tpl, e.now(), childIDs)
		if err == store.ErrDuplicate {
			return nil
		}
		if err != nil {
			return err
		}
		created = occ
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
