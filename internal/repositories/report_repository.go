package repositories

import (
	"context"
	"fmt"
	"time"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository reads stored line items and day counters for reporting
// and reconciliation.
type ReportRepository struct {
	DB *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{DB: db}
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *ReportRepository) LineFacts(ctx context.Context, branchID int, from, to time.Time) ([]models.LineFact, error) {
	return lineFacts(ctx, r.DB, branchID, from, to)
}

func lineFacts(ctx context.Context, q querier, branchID int, from, to time.Time) ([]models.LineFact, error) {
	rows, err := q.Query(ctx,
		`SELECT li.id, j.id, j.branch_id, j.created_at, li.washer_id, w.name,
                li.service_item_id, s.name, li.price
         FROM job_line_items li
         JOIN wash_jobs j ON j.id = li.job_id
         JOIN washers w ON w.id = li.washer_id
         JOIN service_items s ON s.id = li.service_item_id
         WHERE j.branch_id=$1 AND j.created_at BETWEEN $2 AND $3
         ORDER BY j.created_at, j.id, li.id`, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []models.LineFact
	for rows.Next() {
		var f models.LineFact
		if err := rows.Scan(&f.LineItemID, &f.JobID, &f.BranchID, &f.JobCreatedAt, &f.WasherID, &f.WasherName,
			&f.ServiceItemID, &f.ServiceItemName, &f.Price); err != nil {
			return nil, err
		}
		f.JobCreatedAt = f.JobCreatedAt.In(timeutil.Location)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (r *ReportRepository) JobPayments(ctx context.Context, branchID int, from, to time.Time) ([]models.JobPayment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, branch_id, created_at, COALESCE(payment_method, ''), total_amount
         FROM wash_jobs
         WHERE branch_id=$1 AND created_at BETWEEN $2 AND $3
         ORDER BY created_at, id`, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobPayment
	for rows.Next() {
		var p models.JobPayment
		var method string
		if err := rows.Scan(&p.JobID, &p.BranchID, &p.CreatedAt, &method, &p.TotalAmount); err != nil {
			return nil, err
		}
		p.PaymentMethod = models.PaymentMethod(method)
		p.CreatedAt = p.CreatedAt.In(timeutil.Location)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ReportRepository) WasherDays(ctx context.Context, branchID int, from, to time.Time, washerID int) ([]*models.WasherDaySummary, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT d.washer_id, w.name, d.branch_id, d.summary_date, d.total_jobs, d.total_items, d.updated_at
         FROM washer_daily_summaries d
         JOIN washers w ON w.id = d.washer_id
         WHERE d.branch_id=$1 AND d.summary_date BETWEEN $2::date AND $3::date
           AND ($4 = 0 OR d.washer_id = $4)
         ORDER BY d.summary_date, lower(w.name)`,
		branchID, timeutil.FormatDate(from), timeutil.FormatDate(to), washerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.WasherDaySummary{}
	for rows.Next() {
		var s models.WasherDaySummary
		if err := rows.Scan(&s.WasherID, &s.WasherName, &s.BranchID, &s.SummaryDate,
			&s.TotalJobs, &s.TotalItems, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.SummaryDate = timeutil.DateOnly(s.SummaryDate)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *ReportRepository) BranchDays(ctx context.Context, branchID int, from, to time.Time) ([]*models.BranchDaySummary, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT branch_id, summary_date, total_jobs, total_items, updated_at
         FROM branch_daily_summaries
         WHERE branch_id=$1 AND summary_date BETWEEN $2::date AND $3::date
         ORDER BY summary_date`,
		branchID, timeutil.FormatDate(from), timeutil.FormatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.BranchDaySummary{}
	for rows.Next() {
		var s models.BranchDaySummary
		if err := rows.Scan(&s.BranchID, &s.SummaryDate, &s.TotalJobs, &s.TotalItems, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.SummaryDate = timeutil.DateOnly(s.SummaryDate)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// RebuildDay deletes and rewrites one branch-day of counters in a single
// transaction. It holds the same advisory lock as job ingestion, so the facts
// it rebuilds from cannot go stale before the rows are written.
func (r *ReportRepository) RebuildDay(ctx context.Context, branchID int, day time.Time, build services.DayBuilder) error {
	date := timeutil.FormatDate(day)
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		if err := lockBranchDay(ctx, tx, branchID, day); err != nil {
			return err
		}
		facts, err := lineFacts(ctx, tx, branchID, timeutil.StartOfDay(day), timeutil.EndOfDay(day))
		if err != nil {
			return fmt.Errorf("read line facts: %w", err)
		}
		washers, branch := build(facts)

		if _, err := tx.Exec(ctx,
			`DELETE FROM washer_daily_summaries WHERE branch_id=$1 AND summary_date=$2::date`, branchID, date); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM branch_daily_summaries WHERE branch_id=$1 AND summary_date=$2::date`, branchID, date); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, w := range washers {
			batch.Queue(
				`INSERT INTO washer_daily_summaries(washer_id, branch_id, summary_date, total_jobs, total_items)
                 VALUES($1, $2, $3::date, $4, $5)`,
				w.WasherID, branchID, date, w.TotalJobs, w.TotalItems)
		}
		if branch != nil {
			batch.Queue(
				`INSERT INTO branch_daily_summaries(branch_id, summary_date, total_jobs, total_items)
                 VALUES($1, $2::date, $3, $4)`,
				branchID, date, branch.TotalJobs, branch.TotalItems)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// activityTables are cleared by ResetActivity, children first.
var activityTables = []string{
	"wash_job_washers",
	"job_line_items",
	"wash_jobs",
	"washer_daily_summaries",
	"branch_daily_summaries",
}

// ResetActivity deletes every job and day aggregate, keeping branches, users,
// washers and the catalogue. Used to wipe test data.
func (r *ReportRepository) ResetActivity(ctx context.Context) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		for _, table := range activityTables {
			if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
				return fmt.Errorf("truncate %s: %w", table, err)
			}
		}
		for _, seq := range []string{"wash_jobs_id_seq", "job_line_items_id_seq"} {
			if _, err := tx.Exec(ctx, "ALTER SEQUENCE "+seq+" RESTART WITH 1"); err != nil {
				return fmt.Errorf("reset %s: %w", seq, err)
			}
		}
		return nil
	})
}

var _ services.ReportStore = (*ReportRepository)(nil)
