package model

import "time"

// Member is a household member who can be assigned chores.
type Member struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Admin            bool      `json:"admin"`
	Active           bool      `json:"active"`
	Assignable       bool      `json:"assignable"`
	AutoAssignExempt bool      `json:"auto_assign_exempt"`
	WeeklyPoints     float64   `json:"weekly_points"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PointBalance is a member's running total derived from the points ledger.
type PointBalance struct {
	MemberID   int64   `json:"member_id"`
	MemberName string  `json:"member_name"`
	Total      float64 `json:"total"`
}
