package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WasherDaySummary is the incrementally maintained per-washer counter row.
// One row per (washer, date, branch).
type WasherDaySummary struct {
	WasherID    int       `json:"washer_id"`
	WasherName  string    `json:"washer_name,omitempty"`
	BranchID    int       `json:"branch_id"`
	SummaryDate time.Time `json:"summary_date"`
	TotalJobs   int       `json:"total_jobs"`
	TotalItems  int       `json:"total_items"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BranchDaySummary is the per-branch counter row. One row per (branch, date).
type BranchDaySummary struct {
	BranchID    int       `json:"branch_id"`
	SummaryDate time.Time `json:"summary_date"`
	TotalJobs   int       `json:"total_jobs"`
	TotalItems  int       `json:"total_items"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WasherDayDelta is added atomically to a WasherDaySummary row.
type WasherDayDelta struct {
	WasherID int
	BranchID int
	Day      time.Time
	Jobs     int
	Items    int
}

// BranchDayDelta is added atomically to a BranchDaySummary row.
type BranchDayDelta struct {
	BranchID int
	Day      time.Time
	Jobs     int
	Items    int
}

// LineFact is one stored line item joined with what reporting needs.
type LineFact struct {
	LineItemID      int
	JobID           int
	BranchID        int
	JobCreatedAt    time.Time
	WasherID        int
	WasherName      string
	ServiceItemID   int
	ServiceItemName string
	Price           decimal.Decimal
}

// JobPayment is the payment view of one stored job.
type JobPayment struct {
	JobID         int
	BranchID      int
	CreatedAt     time.Time
	PaymentMethod PaymentMethod
	TotalAmount   decimal.Decimal
}
