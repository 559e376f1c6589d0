package model

import "time"

// LedgerKind classifies a points ledger entry.
type LedgerKind string

const (
	LedgerAward          LedgerKind = "award"
	LedgerAdjust         LedgerKind = "adjust"
	LedgerUndo           LedgerKind = "undo"
	LedgerConversion     LedgerKind = "conversion"
	LedgerConversionUndo LedgerKind = "conversion_undo"
)

// LedgerEntry is one append-only point-affecting event. Entries are never
// updated or deleted; reversals are written as offsetting entries.
type LedgerEntry struct {
	ID        int64      `json:"id"`
	MemberID  int64      `json:"member_id"`
	Points    float64    `json:"points"`
	Kind      LedgerKind `json:"kind"`
	RefID     *int64     `json:"ref_id"` // completion or snapshot id
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
