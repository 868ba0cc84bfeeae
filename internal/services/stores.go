package services

import (
	"context"
	"time"

	"carwash-backend/internal/models"
)

// The stores below are implemented by internal/repositories (Postgres) and
// internal/repositories/memstore. Lookups return apperr NotFound errors when
// nothing matches unless documented otherwise.

type BranchStore interface {
	Create(ctx context.Context, b *models.Branch) error
	Get(ctx context.Context, id int) (*models.Branch, error)
	GetByCode(ctx context.Context, code string) (*models.Branch, error)
	// List is ordered by name ascending.
	List(ctx context.Context, activeOnly bool) ([]*models.Branch, error)
	Update(ctx context.Context, b *models.Branch) error
	SetActive(ctx context.Context, id int, active bool) error
}

type WasherStore interface {
	Create(ctx context.Context, w *models.Washer) error
	Get(ctx context.Context, branchID, id int) (*models.Washer, error)
	ListByBranch(ctx context.Context, branchID int, includeInactive bool) ([]*models.Washer, error)
	Update(ctx context.Context, w *models.Washer) error
	SetActive(ctx context.Context, branchID, id int, active bool) error
}

type ServiceItemStore interface {
	Create(ctx context.Context, item *models.ServiceItem) error
	Get(ctx context.Context, id int) (*models.ServiceItem, error)
	List(ctx context.Context, includeInactive bool) ([]*models.ServiceItem, error)
	Update(ctx context.Context, item *models.ServiceItem) error
	SetActive(ctx context.Context, id int, active bool) error
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, branchID *int) ([]*models.User, error)
	SetActive(ctx context.Context, id int, active bool) error
}

// JobStore owns wash jobs. Writes only happen through WithinTx.
type JobStore interface {
	// WithinTx runs fn in one transaction, committing only if fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx JobTx) error) error
	Get(ctx context.Context, branchID, id int) (*models.WashJob, error)
	ListBetween(ctx context.Context, branchID int, from, to time.Time) ([]*models.WashJob, error)
}

// JobTx is the transactional view used by job ingestion.
type JobTx interface {
	// Name lookups are case-insensitive and skip inactive rows; unmatched
	// names are simply absent from the result.
	ActiveServiceItemsByNames(ctx context.Context, names []string) ([]*models.ServiceItem, error)
	ActiveWashersByNames(ctx context.Context, branchID int, names []string) ([]*models.Washer, error)
	// ActiveWasherByName returns nil, nil when no active washer has the name.
	ActiveWasherByName(ctx context.Context, branchID int, name string) (*models.Washer, error)
	// LockBranchDay serialises ingestion and aggregate rebuilds of one
	// branch-day until the transaction ends.
	LockBranchDay(ctx context.Context, branchID int, day time.Time) error
	CarSeenBetween(ctx context.Context, branchID int, plate string, from, to time.Time) (bool, error)
	// InsertJob writes the job, its lines and the job-washer links, filling IDs.
	InsertJob(ctx context.Context, job *models.WashJob) error
	// Increment* add the delta in place, creating the row when absent.
	IncrementWasherDay(ctx context.Context, delta models.WasherDayDelta) error
	IncrementBranchDay(ctx context.Context, delta models.BranchDayDelta) error
}

// ReportStore is the read side used by reporting and reconciliation.
type ReportStore interface {
	LineFacts(ctx context.Context, branchID int, from, to time.Time) ([]models.LineFact, error)
	JobPayments(ctx context.Context, branchID int, from, to time.Time) ([]models.JobPayment, error)
	// washerID 0 means every washer.
	WasherDays(ctx context.Context, branchID int, from, to time.Time, washerID int) ([]*models.WasherDaySummary, error)
	BranchDays(ctx context.Context, branchID int, from, to time.Time) ([]*models.BranchDaySummary, error)
	// RebuildDay overwrites the stored counters of one branch-day with what
	// build derives from the day's line facts. The facts are read and the
	// counters written under the branch-day lock, so no job commits between.
	RebuildDay(ctx context.Context, branchID int, day time.Time, build DayBuilder) error
}

// DayBuilder derives the counter rows of one branch-day from its line facts.
// A nil branch row means the day has no jobs.
type DayBuilder func(facts []models.LineFact) ([]*models.WasherDaySummary, *models.BranchDaySummary)
