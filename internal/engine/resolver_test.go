package engine

import (
	"context"
	"errors"
	"testing"

	"choreboard/internal/model"
	"choreboard/internal/store"
)

func TestAddDependencyRejectsSelfEdge(t *testing.T) {
	e, db := setupEngine(t)
	tpl := dailyTemplate(t, db, "Dishes", 2.0, model.ModePool)

	if _, err := e.AddDependency(tpl.ID, tpl.ID, 0); !errors.Is(err, ErrCycle) {
		t.Fatalf("self edge err = %v, want ErrCycle", err)
	}
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	e, db := setupEngine(t)
	a := dailyTemplate(t, db, "A", 1, model.ModePool)
	b := dailyTemplate(t, db, "B", 1, model.ModePool)
	c := dailyTemplate(t, db, "C", 1, model.ModePool)

	if _, err := e.AddDependency(a.ID, b.ID, 0); err != nil {
		t.Fatalf("a->b: %v", err)
	}
	if _, err := e.AddDependency(b.ID, c.ID, 0); err != nil {
		t.Fatalf("b->c: %v", err)
	}
	if _, err := e.AddDependency(c.ID, a.ID, 0); !errors.Is(err, ErrCycle) {
		t.Fatalf("c->a err = %v, want ErrCycle", err)
	}

	// The rejected edge left no row behind.
	deps, err := store.NewDependencyStore(db).List()
	if err != nil {
		t.Fatalf("list deps: %v", err)
	}
	if len(deps) != 2 {
		t.Errorf("dependencies = %d, want 2", len(deps))
	}
}

func TestAddDependencyRejectsNegativeOffset(t *testing.T) {
	e, db := setupEngine(t)
	a := dailyTemplate(t, db, "A", 1, model.ModePool)
	b := dailyTemplate(t, db, "B", 1, model.ModePool)

	if _, err := e.AddDependency(a.ID, b.ID, -1); err == nil {
		t.Fatal("expected negative offset to be rejected")
	}
}

func TestSpawnSkipsInactiveChild(t *testing.T) {
	e, db := setupEngine(t)
	alice := addMember(t, db, "Alice", false)
	parent := dailyTemplate(t, db, "Cook", 2, model.ModePool)
	child := dailyTemplate(t, db, "Dishes", 2, model.ModePool)

	if _, err := e.AddDependency(parent.ID, child.ID, 0); err != nil {
		t.Fatalf("add dependency: %v", err)
	}
	if err := store.NewTemplateStore(db).SetActive(child.ID, false); err != nil {
		t.Fatalf("deactivate child: %v", err)
	}

	occ := poolOccurrence(t, e, parent.ID)
	if _, err := e.Complete(occ.ID, alice.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	completion, err := store.NewCompletionStore(db).ActiveForOccurrence(occ.ID)
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	got, err := store.NewOccurrenceStore(db).GetBySpawn(child.ID, completion.ID)
	if err != nil {
		t.Fatalf("get spawn: %v", err)
	}
	if got != nil {
		t.Error("inactive child was spawned")
	}
}

func TestSpawnPendingIsIdempotent(t *testing.T) {
	e, db := setupEngine(t)
	alice := addMember(t, db, "Alice", false)
	parent := dailyTemplate(t, db, "Cook", 2, model.ModePool)
	child := dailyTemplate(t, db, "Dishes", 2, model.ModePool)

	if _, err := e.AddDependency(parent.ID, child.ID, 1); err != nil {
		t.Fatalf("add dependency: %v", err)
	}

	occ := poolOccurrence(t, e, parent.ID)
	if _, err := e.Complete(occ.ID, alice.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Re-running evaluation replays spawnPending; the unique spawn key
	// keeps it a no-op.
	res, err := e.RunDailyEvaluation(context.Background(), testNow)
	if err != nil {
		t.Fatalf("second evaluation: %v", err)
	}
	if res.Spawned != 0 {
		t.Errorf("spawned = %d, want 0 on replay", res.Spawned)
	}

	completion, err := store.NewCompletionStore(db).ActiveForOccurrence(occ.ID)
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	rows, err := db.Query(`SELECT COUNT(*) FROM occurrences WHERE template_id = ? AND spawned_from = ?`, child.ID, completion.ID)
	if err != nil {
		t.Fatalf("count spawns: %v", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}
	if n != 1 {
		t.Errorf("spawned children = %d, want exactly 1", n)
	}
}
