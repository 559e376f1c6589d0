package engine

import (
	"fmt"
	"time"

	"choreboard/internal/model"
	"choreboard/internal/store"
)

// AddDependency creates a parent -> child edge after validating that it
// would not close a cycle. Validation happens here, at configuration time;
// the spawn path assumes an acyclic graph.
func (e *Engine) AddDependency(parentID, childID int64, offsetHours int) (*model.Dependency, error) {
	if parentID == childID {
		return nil, fmt.Errorf("template %d depends on itself: %w", parentID, ErrCycle)
	}
	if offsetHours < 0 {
		return nil, fmt.Errorf("offset hours must be >= 0")
	}

	deps := store.NewDependencyStore(e.db)
	templates := store.NewTemplateStore(e.db)
	for _, id := range []int64{parentID, childID} {
		t, err := templates.GetByID(id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, fmt.Errorf("template %d: %w", id, ErrNotFound)
		}
	}

	existing, err := deps.List()
	if err != nil {
		return nil, err
	}
	if err := checkAcyclic(existing, parentID, childID); err != nil {
		return nil, err
	}

	return deps.Create(parentID, childID, offsetHours)
}

// checkAcyclic runs a depth-first search from the proposed child: if the
// parent is reachable, the new edge would close a cycle.
func checkAcyclic(edges []model.Dependency, parentID, childID int64) error {
	children := map[int64][]int64{}
	for _, d := range edges {
		children[d.ParentID] = append(children[d.ParentID], d.ChildID)
	}

	visited := map[int64]bool{}
	var visit func(id int64) bool
	visit = func(id int64) bool {
		if id == parentID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		for _, next := range children[id] {
			if visit(next) {
				return true
			}
		}
		return false
	}

	if visit(childID) {
		return fmt.Errorf("edge %d -> %d: %w", parentID, childID, ErrCycle)
	}
	return nil
}

// spawnChildren creates one child occurrence per dependency edge of the
// completed occurrence's template. Idempotent under retry: the unique
// (template, completion) index turns replays into no-ops.
func spawnChildren(q store.Querier, completion *model.Completion, parentTemplateID int64) (int, error) {
	deps, err := store.NewDependencyStore(q).ListByParent(parentTemplateID)
	if err != nil {
		return 0, err
	}
	if len(deps) == 0 {
		return 0, nil
	}

	templates := store.NewTemplateStore(q)
	occs := store.NewOccurrenceStore(q)
	spawned := 0

	for _, dep := range deps {
		child, err := templates.GetByID(dep.ChildID)
		if err != nil {
			return spawned, err
		}
		if child == nil || !child.Active {
			continue
		}

		due := completion.CompletedAt.Add(time.Duration(dep.OffsetHours) * time.Hour)
		p := occurrenceParams(*child, completion.CompletedAt, due, &completion.ID)
		if _, err := occs.Create(p); err != nil {
			if err == store.ErrDuplicate {
				continue
			}
			return spawned, err
		}
		spawned++
	}
	return spawned, nil
}

// spawnPending re-runs dependency spawning for every live completion whose
// children are missing: the crash-recovery path the daily evaluation
// invokes for already-completed parents.
func spawnPending(q store.Querier) (int, error) {
	completions, err := store.NewCompletionStore(q).ListActive()
	if err != nil {
		return 0, err
	}

	occs := store.NewOccurrenceStore(q)
	total := 0
	for i := range completions {
		c := completions[i]
		occ, err := occs.GetByID(c.OccurrenceID)
		if err != nil {
			return total, err
		}
		if occ == nil {
			continue
		}
		n, err := spawnChildren(q, &c, occ.TemplateID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
