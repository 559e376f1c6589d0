package model

import "time"

// ScheduleKind selects which recurrence variant a template uses.
type ScheduleKind string

const (
	KindDaily      ScheduleKind = "daily"
	KindWeekly     ScheduleKind = "weekly"
	KindEveryNDays ScheduleKind = "every_n_days"
	KindCron       ScheduleKind = "cron"
	KindRRule      ScheduleKind = "rrule"
	KindOneTime    ScheduleKind = "one_time"
)

// AssignMode controls how a materialized occurrence gets an assignee.
type AssignMode string

const (
	ModePool     AssignMode = "pool"     // stays unclaimed until someone claims it
	ModeRotation AssignMode = "rotation" // assigned by the distribution sweep
	ModeFixed    AssignMode = "fixed"    // always assigned to one member
)

// Template is a chore definition. Occurrences snapshot its point value at
// materialization time; editing Points later never changes existing
// occurrences.
type Template struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Points      float64      `json:"points"`
	Difficulty  int          `json:"difficulty"`
	Kind        ScheduleKind `json:"kind"`
	// Rule holds the kind-specific schedule text: weekday names for
	// weekly, the interval for every_n_days, a cron expression, or an
	// RRULE JSON object. Empty for daily and one_time.
	Rule       string     `json:"rule"`
	AnchorDate time.Time  `json:"anchor_date"`
	Mode       AssignMode `json:"mode"`
	AssignedTo *int64     `json:"assigned_to"`
	Undesirable bool      `json:"undesirable"`
	Active      bool      `json:"active"`
	DueAt       *time.Time `json:"due_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Dependency is a parent -> child edge between templates. Completing a
// parent occurrence spawns a child occurrence OffsetHours later.
type Dependency struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	ChildID     int64     `json:"child_id"`
	OffsetHours int       `json:"offset_hours"`
	CreatedAt   time.Time `json:"created_at"`
}

// RotationState tracks the last auto-assigned member per rotation
// template. Only the distribution sweep writes it.
type RotationState struct {
	TemplateID     int64      `json:"template_id"`
	LastAssignedTo *int64     `json:"last_assigned_to"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
