package store

import (
	"database/sql"
	"testing"
	"time"

	"choreboard/internal/database"
	"choreboard/internal/model"
)

func setupStoreTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTemplate(t *testing.T, db *sql.DB) *model.Template {
	t.Helper()
	tpl, err := NewTemplateStore(db).Create(CreateParams{
		Name:       "Dishes",
		Points:     2.0,
		Kind:       model.KindDaily,
		AnchorDate: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		Mode:       model.ModePool,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func seedOccurrence(t *testing.T, db *sql.DB, tplID int64, date string) *model.Occurrence {
	t.Helper()
	occ, err := NewOccurrenceStore(db).Create(CreateOccurrenceParams{
		TemplateID: tplID,
		Date:       date,
		Status:     model.StatusPool,
		DueAt:      time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC),
		Points:     2.0,
	})
	if err != nil {
		t.Fatalf("create occurrence: %v", err)
	}
	return occ
}

func TestOccurrenceDuplicateDate(t *testing.T) {
	db := setupStoreTestDB(t)
	tpl := seedTemplate(t, db)
	seedOccurrence(t, db, tpl.ID, "2025-06-02")

	_, err := NewOccurrenceStore(db).Create(CreateOccurrenceParams{
		TemplateID: tpl.ID,
		Date:       "2025-06-02",
		Status:     model.StatusPool,
		DueAt:      time.Now(),
		Points:     2.0,
	})
	if err != ErrDuplicate {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	// A different date is a different occurrence.
	if _, err := NewOccurrenceStore(db).Create(CreateOccurrenceParams{
		TemplateID: tpl.ID,
		Date:       "2025-06-03",
		Status:     model.StatusPool,
		DueAt:      time.Now(),
		Points:     2.0,
	}); err != nil {
		t.Fatalf("second date: %v", err)
	}
}

func TestTransitionClaimGuard(t *testing.T) {
	db := setupStoreTestDB(t)
	tpl := seedTemplate(t, db)
	occ := seedOccurrence(t, db, tpl.ID, "2025-06-02")
	m, err := NewMemberStore(db).Create("Alice", false)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	occs := NewOccurrenceStore(db)
	ok, err := occs.TransitionClaim(occ.ID, m.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !ok {
		t.Fatal("claim from pool should succeed")
	}

	// Not pool anymore: the guard rejects without error.
	ok, err = occs.TransitionClaim(occ.ID, m.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatal("claim of an assigned occurrence should no-op")
	}
}

func TestTransitionUnclaimChecksClaimant(t *testing.T) {
	db := setupStoreTestDB(t)
	tpl := seedTemplate(t, db)
	occ := seedOccurrence(t, db, tpl.ID, "2025-06-02")
	members := NewMemberStore(db)
	alice, _ := members.Create("Alice", false)
	bob, _ := members.Create("Bob", false)

	occs := NewOccurrenceStore(db)
	if _, err := occs.TransitionClaim(occ.ID, alice.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	ok, err := occs.TransitionUnclaim(occ.ID, bob.ID)
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if ok {
		t.Fatal("unclaim by another member should no-op")
	}

	ok, err = occs.TransitionUnclaim(occ.ID, alice.ID)
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if !ok {
		t.Fatal("unclaim by claimant should succeed")
	}
}

func TestTransitionRestore(t *testing.T) {
	db := setupStoreTestDB(t)
	tpl := seedTemplate(t, db)
	occ := seedOccurrence(t, db, tpl.ID, "2025-06-02")

	occs := NewOccurrenceStore(db)
	now := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
	if ok, err := occs.TransitionComplete(occ.ID, now, false); err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}

	ok, err := occs.TransitionRestore(occ.ID, model.StatusPool, nil, model.ReasonNone)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !ok {
		t.Fatal("restore of a completed occurrence should succeed")
	}

	got, err := occs.GetByID(occ.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusPool || got.CompletedAt != nil || got.Late {
		t.Errorf("restored = %+v, want clean pool state", got)
	}
}

func TestHasOverdueInWindow(t *testing.T) {
	db := setupStoreTestDB(t)
	tpl := seedTemplate(t, db)
	occ := seedOccurrence(t, db, tpl.ID, "2025-06-02")
	alice, _ := NewMemberStore(db).Create("Alice", false)

	occs := NewOccurrenceStore(db)
	if _, err := occs.TransitionClaim(occ.ID, alice.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	// Before the due time nothing is overdue.
	overdue, err := occs.HasOverdueInWindow(alice.ID, start, end, start.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if overdue {
		t.Error("overdue before due time")
	}

	// Past due and still open counts.
	overdue, err = occs.HasOverdueInWindow(alice.ID, start, end, end)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !overdue {
		t.Error("open past due not counted as overdue")
	}

	// A late completion counts too.
	if _, err := occs.TransitionComplete(occ.ID, end, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	overdue, err = occs.HasOverdueInWindow(alice.ID, start, end, end)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !overdue {
		t.Error("late completion not counted as overdue")
	}
}
