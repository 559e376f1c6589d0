package engine

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"choreboard/internal/database"
	"choreboard/internal/model"
	"choreboard/internal/store"
)

// Monday, June 2 2025, mid-morning UTC.
var testNow = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

func setupEngine(t *testing.T) (*Engine, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(db, DefaultConfig(), nil, logger)
	e.now = func() time.Time { return testNow }
	return e, db
}

// setupFileEngine backs the fixture with a real database file. In-memory
// databases give every pool connection its own empty schema, so tests that
// run engine operations from multiple goroutines need this one.
func setupFileEngine(t *testing.T) (*Engine, *sql.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "choreboard.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(db, DefaultConfig(), nil, logger)
	e.now = func() time.Time { return testNow }
	return e, db
}

func addMember(t *testing.T, db *sql.DB, name string, admin bool) *model.Member {
	t.Helper()
	m, err := store.NewMemberStore(db).Create(name, admin)
	if err != nil {
		t.Fatalf("create member %s: %v", name, err)
	}
	return m
}

func addTemplate(t *testing.T, db *sql.DB, p store.CreateParams) *model.Template {
	t.Helper()
	if p.AnchorDate.IsZero() {
		p.AnchorDate = testNow.AddDate(0, 0, -30)
	}
	if p.Mode == "" {
		p.Mode = model.ModePool
	}
	tpl, err := store.NewTemplateStore(db).Create(p)
	if err != nil {
		t.Fatalf("create template %s: %v", p.Name, err)
	}
	return tpl
}

func dailyTemplate(t *testing.T, db *sql.DB, name string, points float64, mode model.AssignMode) *model.Template {
	t.Helper()
	return addTemplate(t, db, store.CreateParams{
		Name:   name,
		Points: points,
		Kind:   model.KindDaily,
		Mode:   mode,
	})
}

func occurrenceFor(t *testing.T, db *sql.DB, templateID int64, date string) *model.Occurrence {
	t.Helper()
	occ, err := store.NewOccurrenceStore(db).GetByTemplateAndDate(templateID, date)
	if err != nil {
		t.Fatalf("get occurrence: %v", err)
	}
	if occ == nil {
		t.Fatalf("no occurrence for template %d on %s", templateID, date)
	}
	return occ
}

func TestTxLockContentionMapsToConflict(t *testing.T) {
	e, _ := setupEngine(t)

	err := e.inTx(func(tx *sql.Tx) error {
		return errors.New("commit tx: database is locked (5) (SQLITE_BUSY)")
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	e, db := setupEngine(t)
	kid := addMember(t, db, "Kid", false)

	_, err := requireAdmin(e.db, kid.ID)
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("err = %v, want ErrNotAdmin", err)
	}
}
