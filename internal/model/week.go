package model

import "time"

// ConversionState tracks whether a weekly snapshot's points have been
// converted to allowance.
type ConversionState string

const (
	ConversionPending ConversionState = "pending"
	ConversionApplied ConversionState = "applied"
	ConversionUndone  ConversionState = "undone"
)

// WeeklySnapshot is one member's end-of-week record: point total, the
// perfect-week flag, and the running streak.
type WeeklySnapshot struct {
	ID          int64           `json:"id"`
	MemberID    int64           `json:"member_id"`
	WeekEnding  string          `json:"week_ending"` // YYYY-MM-DD
	Points      float64         `json:"points"`
	Perfect     bool            `json:"perfect"`
	Streak      int             `json:"streak"`
	Conversion  ConversionState `json:"conversion"`
	ConvertedAt *time.Time      `json:"converted_at"`
	CreatedAt   time.Time       `json:"created_at"`
}
