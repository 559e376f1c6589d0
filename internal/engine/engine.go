package engine

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"choreboard/internal/model"
	"choreboard/internal/notify"
	"choreboard/internal/store"
)

// Config carries the durations and limits owned by the external admin
// surface. All read-only to the engine.
type Config struct {
	ClaimLimit           int
	UndoWindow           time.Duration
	OneTimeArchiveWindow time.Duration
	ConversionUndoWindow time.Duration
}

// DefaultConfig matches the documented household defaults.
func DefaultConfig() Config {
	return Config{
		ClaimLimit:           5,
		UndoWindow:           24 * time.Hour,
		OneTimeArchiveWindow: 2 * time.Hour,
		ConversionUndoWindow: 24 * time.Hour,
	}
}

// Engine is the chore scheduling and assignment core. All mutating
// operations run as single short transactions against the occurrence
// ledger; event emission happens after commit, fire-and-forget.
type Engine struct {
	db       *sql.DB
	cfg      Config
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Engine. notifier may be nil, in which case events are
// dropped.
func New(db *sql.DB, cfg Config, notifier notify.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:       db,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier installs the event sink. Intended for wiring at startup,
// before any operation runs.
func (e *Engine) SetNotifier(n notify.Notifier) {
	e.notifier = n
}

// inTx runs fn inside a transaction, rolling back on error. Lock
// contention can surface from any statement in the transaction or from the
// commit itself, not just the guarded updates, so the conflict mapping is
// applied here: the losing side of a race always sees ErrConflict.
func (e *Engine) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := e.db.Begin()
	if err != nil {
		return asConflict(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return asConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return asConflict(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// emit hands an event to the dispatcher. Delivery failure never rolls back
// anything; by the time emit runs the transaction has committed.
func (e *Engine) emit(ev notify.Event) {
	if e.notifier != nil {
		e.notifier.Emit(ev)
	}
}

// audit writes one action-log row inside the caller's transaction.
func audit(tx *sql.Tx, action string, occurrenceID, actorID *int64, detail string) error {
	return store.NewAuditStore(tx).Append(uuid.NewString(), action, occurrenceID, actorID, detail)
}

// requireMember loads an active member or fails with ErrNotFound.
func requireMember(q store.Querier, id int64) (*model.Member, error) {
	m, err := store.NewMemberStore(q).GetByID(id)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active {
		return nil, fmt.Errorf("member %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// requireAdmin loads an active admin member or fails.
func requireAdmin(q store.Querier, id int64) (*model.Member, error) {
	m, err := requireMember(q, id)
	if err != nil {
		return nil, err
	}
	if !m.Admin {
		return nil, fmt.Errorf("member %d: %w", id, ErrNotAdmin)
	}
	return m, nil
}

func dayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
