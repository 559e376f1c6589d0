package engine

import (
	"context"
	"sync"
	"time"

	"choreboard/internal/notify"
	"choreboard/internal/store"
)

// SchedulerConfig controls when the background jobs fire. Times are
// "HH:MM" in UTC.
type SchedulerConfig struct {
	Interval     time.Duration
	EvaluateAt   string
	DistributeAt string
	WeekEndDay   time.Weekday
}

// DefaultSchedulerConfig evaluates shortly after midnight, distributes an
// hour later, and closes the week on Sunday.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:     60 * time.Second,
		EvaluateAt:   "00:05",
		DistributeAt: "01:00",
		WeekEndDay:   time.Sunday,
	}
}

// Scheduler drives the daily evaluation, the distribution sweep, the
// weekly aggregation, and overdue notifications from a single ticker.
// Each job records its last run, so a restart mid-day does not re-fire
// jobs that already ran.
type Scheduler struct {
	mu     sync.RWMutex
	engine *Engine
	cfg    SchedulerConfig
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a job scheduler around the engine.
func NewScheduler(e *Engine, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	return &Scheduler{engine: e, cfg: cfg}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.engine.now()
	s.checkDailyEvaluation(ctx, now)
	s.checkDistribution(ctx, now)
	s.checkWeekly(ctx, now)
	s.sweepOverdue(now)
}

func (s *Scheduler) checkDailyEvaluation(ctx context.Context, now time.Time) {
	if !pastTimeOfDay(now, s.cfg.EvaluateAt) {
		return
	}
	if s.ranToday(jobDailyEvaluation, now) {
		return
	}
	if _, err := s.engine.RunDailyEvaluation(ctx, now); err != nil {
		s.engine.logger.Error("scheduler: daily evaluation", "error", err)
	}
}

func (s *Scheduler) checkDistribution(ctx context.Context, now time.Time) {
	if !pastTimeOfDay(now, s.cfg.DistributeAt) {
		return
	}
	if s.ranToday(jobDistribution, now) {
		return
	}
	if _, err := s.engine.RunDistribution(ctx); err != nil {
		s.engine.logger.Error("scheduler: distribution", "error", err)
	}
}

func (s *Scheduler) checkWeekly(ctx context.Context, now time.Time) {
	if now.Weekday() != s.cfg.WeekEndDay {
		return
	}
	if !pastTimeOfDay(now, s.cfg.DistributeAt) {
		return
	}

	// The week closes at the next midnight, so today counts toward it.
	weekEnd := startOfDay(now).AddDate(0, 0, 1)
	marker, err := store.NewJobRunStore(s.engine.db).LastRun(jobWeekly)
	if err != nil {
		s.engine.logger.Error("scheduler: weekly last run", "error", err)
		return
	}
	if marker == dayString(weekEnd) {
		return
	}
	if _, err := s.engine.RunWeeklyAggregation(ctx, weekEnd); err != nil {
		s.engine.logger.Error("scheduler: weekly aggregation", "error", err)
	}
}

// sweepOverdue emits one notification per newly-overdue occurrence.
func (s *Scheduler) sweepOverdue(now time.Time) {
	occs := store.NewOccurrenceStore(s.engine.db)
	overdue, err := occs.ListOverdueUnnotified(now)
	if err != nil {
		s.engine.logger.Error("scheduler: overdue sweep", "error", err)
		return
	}
	for _, occ := range overdue {
		if err := occs.MarkOverdueNotified(occ.ID); err != nil {
			s.engine.logger.Error("scheduler: mark overdue", "occurrence", occ.ID, "error", err)
			continue
		}
		s.engine.emit(notify.NewEvent(notify.EventOverdue, &occ.ID, occ.AssignedTo, map[string]any{
			"template_id": occ.TemplateID,
		}))
	}
}

func (s *Scheduler) ranToday(job string, now time.Time) bool {
	marker, err := store.NewJobRunStore(s.engine.db).LastRun(job)
	if err != nil {
		s.engine.logger.Error("scheduler: last run", "job", job, "error", err)
		return true
	}
	return marker == dayString(now)
}

func pastTimeOfDay(now time.Time, hhmm string) bool {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return false
	}
	mark := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	return !now.Before(mark)
}
