package engine

import (
	"context"
	"testing"
	"time"

	"choreboard/internal/model"
	"choreboard/internal/store"
)

func TestDailyEvaluationCreatesOccurrence(t *testing.T) {
	e, db := setupEngine(t)
	tpl := dailyTemplate(t, db, "Dishes", 2.0, model.ModePool)

	res, err := e.RunDailyEvaluation(context.Background(), testNow)
	if err != nil {
		t.Fatalf("run evaluation: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}

	occ := occurrenceFor(t, db, tpl.ID, "2025-06-02")
	if occ.Status != model.StatusPool {
		t.Errorf("status = %q, want pool", occ.Status)
	}
	if occ.Points != 2.0 {
		t.Errorf("points = %v, want 2.0", occ.Points)
	}
	wantDue := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	if !occ.DueAt.Equal(wantDue) {
		t.Errorf("due_at = %v, want %v", occ.DueAt, wantDue)
	}
}

func TestDailyEvaluationIdempotent(t *testing.T) {
	e, db := setupEngine(t)
	tpl := dailyTemplate(t, db, "Dishes", 2.0, model.ModePool)

	if _, err := e.RunDailyEvaluation(context.Background(), testNow); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := e.RunDailyEvaluation(context.Background(), testNow)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("created = %d, want 0", res.Created)
	}
	if res.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", res.Duplicates)
	}

	occs, err := store.NewOccurrenceStore(db).ListForDate("2025-06-02")
	if err != nil {
		t.Fatalf("list occurrences: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("occurrences = %d, want 1", len(occs))
	}
	if occs[0].TemplateID != tpl.ID {
		t.Errorf("template_id = %d, want %d", occs[0].TemplateID, tpl.ID)
	}
}

func TestDailyEvaluationSnapshotsPoints(t *testing.T) {
	e, db := setupEngine(t)
	tpl := dailyTemplate(t, db, "Dishes", 2.0, model.ModePool)

	if _, err := e.RunDailyEvaluation(context.Background(), testNow); err != nil {
		t.Fatalf("run evaluation: %v", err)
	}

	// Raising the template's value must not touch the live occurrence.
	templates := store.NewTemplateStore(db)
	if _, err := templates.Update(tpl.ID, store.CreateParams{
		Name:   tpl.Name,
		Points: 10.0,
		Kind:   tpl.Kind,
		Rule:   tpl.Rule,
		Mode:   tpl.Mode,
	}); err != nil {
		t.Fatalf("update template: %v", err)
	}

	occ := occurrenceFor(t, db, tpl.ID, "2025-06-02")
	if occ.Points != 2.0 {
		t.Errorf("points = %v, want snapshot value 2.0", occ.Points)
	}
}

func TestDailyEvaluationBadRuleDoesNotAbort(t *testing.T) {
	e, db := setupEngine(t)
	addTemplate(t, db, store.CreateParams{
		Name: "Broken", Points: 1, Kind: model.KindCron, Rule: "not a cron",
	})
	good := dailyTemplate(t, db, "Dishes", 2.0, model.ModePool)

	res, err := e.RunDailyEvaluation(context.Background(), testNow)
	if err != nil {
		t.Fatalf("run evaluation: %v", err)
	}
	if res.Errors != 1 {
		t.Errorf("errors = %d, want 1", res.Errors)
	}
	if res.Created != 1 {
		t.Errorf("created = %d, want 1", res.Created)
	}
	occurrenceFor(t, db, good.ID, "2025-06-02")

	logs, err := store.NewEvalLogStore(db).ListByDate("2025-06-02")
	if err != nil {
		t.Fatalf("list eval log: %v", err)
	}
	var sawError bool
	for _, l := range logs {
		if l.Outcome == model.EvalError {
			sawError = true
		}
	}
	if !sawError {
		t.Error("expected an error row in the evaluation log")
	}
}

func TestWeeklyTemplateSkipsOffDays(t *testing.T) {
	e, db := setupEngine(t)
	tpl := addTemplate(t, db, store.CreateParams{
		Name: "Trash", Points: 3, Kind: model.KindWeekly, Rule: "friday",
	})

	res, err := e.RunDailyEvaluation(context.Background(), testNow) // Monday
	if err != nil {
		t.Fatalf("run evaluation: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("created = %d, want 0", res.Created)
	}

	friday := time.Date(2025, time.June, 6, 10, 0, 0, 0, time.UTC)
	res, err = e.RunDailyEvaluation(context.Background(), friday)
	if err != nil {
		t.Fatalf("run friday evaluation: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}
	occurrenceFor(t, db, tpl.ID, "2025-06-06")
}

func TestOneTimeBornAtActivation(t *testing.T) {
	e, db := setupEngine(t)
	due := testNow.AddDate(0, 0, 3)
	tpl := addTemplate(t, db, store.CreateParams{
		Name: "Fix fence", Points: 5, Kind: model.KindOneTime, DueAt: &due,
	})

	occ, err := e.ActivateTemplate(tpl.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if occ == nil {
		t.Fatal("expected an occurrence at activation")
	}
	if !occ.DueAt.Equal(due) {
		t.Errorf("due_at = %v, want %v", occ.DueAt, due)
	}

	// Date-driven evaluation must not mint a second one.
	res, err := e.RunDailyEvaluation(context.Background(), testNow)
	if err != nil {
		t.Fatalf("run evaluation: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("created = %d, want 0", res.Created)
	}

	// Re-activation is a no-op too.
	again, err := e.ActivateTemplate(tpl.ID)
	if err != nil {
		t.Fatalf("re-activate: %v", err)
	}
	if again != nil {
		t.Error("expected no second occurrence on re-activation")
	}
}

func TestActivationSkipsDependencyChildren(t *testing.T) {
	e, db := setupEngine(t)
	parent := dailyTemplate(t, db, "Cook dinner", 3.0, model.ModePool)
	child := addTemplate(t, db, store.CreateParams{
		Name: "Return casserole dish", Points: 1, Kind: model.KindOneTime,
	})
	if _, err := e.AddDependency(parent.ID, child.ID, 2); err != nil {
		t.Fatalf("add dependency: %v", err)
	}

	// A child occurrence is born by parent completion, not activation.
	occ, err := e.ActivateTemplate(child.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if occ != nil {
		t.Fatalf("occurrence %d born at activation, want none", occ.ID)
	}
	exists, err := store.NewOccurrenceStore(db).ExistsForTemplate(child.ID)
	if err != nil {
		t.Fatalf("check occurrences: %v", err)
	}
	if exists {
		t.Error("child template has an occurrence before parent completion")
	}
}

func TestOneTimeWithoutDueDateNeverOverdue(t *testing.T) {
	e, db := setupEngine(t)
	tpl := addTemplate(t, db, store.CreateParams{
		Name: "Clean gutters", Points: 5, Kind: model.KindOneTime,
	})

	occ, err := e.ActivateTemplate(tpl.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if occ.Overdue(testNow.AddDate(10, 0, 0)) {
		t.Error("one-time task without a due date reads as overdue")
	}
}

func TestArchiveCompletedOneTime(t *testing.T) {
	e, db := setupEngine(t)
	m := addMember(t, db, "Alice", false)
	tpl := addTemplate(t, db, store.CreateParams{
		Name: "Fix fence", Points: 5, Kind: model.KindOneTime,
	})
	occ, err := e.ActivateTemplate(tpl.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := e.Complete(occ.ID, m.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Inside the archive window: nothing happens yet.
	res, err := e.RunDailyEvaluation(context.Background(), testNow)
	if err != nil {
		t.Fatalf("run evaluation: %v", err)
	}
	if res.Archived != 0 {
		t.Errorf("archived = %d, want 0", res.Archived)
	}

	e.now = func() time.Time { return testNow.Add(3 * time.Hour) }
	res, err = e.RunDailyEvaluation(context.Background(), testNow.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("run later evaluation: %v", err)
	}
	if res.Archived != 1 {
		t.Fatalf("archived = %d, want 1", res.Archived)
	}

	got, err := store.NewTemplateStore(db).GetByID(tpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got.Active {
		t.Error("archived one-time template still active")
	}
}
