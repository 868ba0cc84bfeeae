package repositories

import (
	"context"
	"strings"
	"time"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository stores wash jobs, their line items and the washers they
// credit. All writes go through WithinTx so a job and its aggregate updates
// commit together.
type JobRepository struct {
	DB *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{DB: db}
}

func (r *JobRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx services.JobTx) error) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &jobTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const jobColumns = `id, branch_id, car_plate, car_model, car_color, customer_name, customer_phone,
       COALESCE(payment_method, ''), total_amount, COALESCE(created_by_user_id, 0), created_at`

func scanJob(row rowScanner) (*models.WashJob, error) {
	var j models.WashJob
	var method string
	err := row.Scan(&j.ID, &j.BranchID, &j.CarPlate, &j.CarModel, &j.CarColor, &j.CustomerName,
		&j.CustomerPhone, &method, &j.TotalAmount, &j.CreatedByUserID, &j.CreatedAt)
	j.PaymentMethod = models.PaymentMethod(method)
	j.CreatedAt = j.CreatedAt.In(timeutil.Location)
	return &j, err
}

func (r *JobRepository) Get(ctx context.Context, branchID, id int) (*models.WashJob, error) {
	job, err := scanJob(r.DB.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM wash_jobs WHERE id=$1 AND branch_id=$2`, id, branchID))
	if err != nil {
		return nil, classify(err, "job")
	}
	if err := r.attachDetails(ctx, []*models.WashJob{job}); err != nil {
		return nil, err
	}
	return job, nil
}

// ListBetween returns the branch's jobs in [from, to] ordered by creation time
func (r *JobRepository) ListBetween(ctx context.Context, branchID int, from, to time.Time) ([]*models.WashJob, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+jobColumns+` FROM wash_jobs
         WHERE branch_id=$1 AND created_at BETWEEN $2 AND $3
         ORDER BY created_at, id`, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*models.WashJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// attachDetails loads line items and credited washers for jobs in two queries.
func (r *JobRepository) attachDetails(ctx context.Context, jobs []*models.WashJob) error {
	if len(jobs) == 0 {
		return nil
	}
	ids := make([]int, len(jobs))
	byID := make(map[int]*models.WashJob, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
		byID[j.ID] = j
		j.Lines = []*models.LineItem{}
		j.WasherIDs = []int{}
	}

	rows, err := r.DB.Query(ctx,
		`SELECT li.id, li.job_id, li.washer_id, w.name, li.submitted_washer_name,
                li.service_item_id, s.name, li.price
         FROM job_line_items li
         JOIN washers w ON w.id = li.washer_id
         JOIN service_items s ON s.id = li.service_item_id
         WHERE li.job_id = ANY($1)
         ORDER BY li.job_id, li.id`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var l models.LineItem
		if err := rows.Scan(&l.ID, &l.JobID, &l.WasherID, &l.WasherName, &l.SubmittedWasher,
			&l.ServiceItemID, &l.ServiceItemName, &l.Price); err != nil {
			rows.Close()
			return err
		}
		byID[l.JobID].Lines = append(byID[l.JobID].Lines, &l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.DB.Query(ctx,
		`SELECT job_id, washer_id FROM wash_job_washers
         WHERE job_id = ANY($1)
         ORDER BY job_id, washer_id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var jobID, washerID int
		if err := rows.Scan(&jobID, &washerID); err != nil {
			return err
		}
		byID[jobID].WasherIDs = append(byID[jobID].WasherIDs, washerID)
	}
	return rows.Err()
}

type jobTx struct {
	tx pgx.Tx
}

func foldNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(strings.TrimSpace(n))
	}
	return out
}

func (t *jobTx) ActiveServiceItemsByNames(ctx context.Context, names []string) ([]*models.ServiceItem, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+serviceItemColumns+` FROM service_items
         WHERE is_active AND lower(name) = ANY($1)`, foldNames(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ServiceItem
	for rows.Next() {
		s, err := scanServiceItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (t *jobTx) ActiveWashersByNames(ctx context.Context, branchID int, names []string) ([]*models.Washer, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+washerColumns+` FROM washers
         WHERE branch_id=$1 AND is_active AND lower(name) = ANY($2)`, branchID, foldNames(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var washers []*models.Washer
	for rows.Next() {
		w, err := scanWasher(rows)
		if err != nil {
			return nil, err
		}
		washers = append(washers, w)
	}
	return washers, rows.Err()
}

func (t *jobTx) ActiveWasherByName(ctx context.Context, branchID int, name string) (*models.Washer, error) {
	washers, err := t.ActiveWashersByNames(ctx, branchID, []string{name})
	if err != nil || len(washers) == 0 {
		return nil, err
	}
	return washers[0], nil
}

func (t *jobTx) LockBranchDay(ctx context.Context, branchID int, day time.Time) error {
	return lockBranchDay(ctx, t.tx, branchID, day)
}

// lockBranchDay takes a transaction-scoped advisory lock keyed on the branch
// and the day number, released at commit or rollback.
func lockBranchDay(ctx context.Context, tx pgx.Tx, branchID int, day time.Time) error {
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock($1::int, ($2::date - DATE '2000-01-01')::int)`,
		branchID, timeutil.FormatDate(day))
	return err
}

func (t *jobTx) CarSeenBetween(ctx context.Context, branchID int, plate string, from, to time.Time) (bool, error) {
	var seen bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS(
             SELECT 1 FROM wash_jobs
             WHERE branch_id=$1 AND car_plate=$2 AND created_at BETWEEN $3 AND $4)`,
		branchID, plate, from, to,
	).Scan(&seen)
	return seen, err
}

func (t *jobTx) InsertJob(ctx context.Context, job *models.WashJob) error {
	var createdBy any
	if job.CreatedByUserID != 0 {
		createdBy = job.CreatedByUserID
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO wash_jobs(branch_id, car_plate, car_model, car_color, customer_name,
                               customer_phone, payment_method, total_amount, created_by_user_id, created_at)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING id`,
		job.BranchID, job.CarPlate, job.CarModel, job.CarColor, job.CustomerName,
		job.CustomerPhone, nullIfEmpty(string(job.PaymentMethod)), job.TotalAmount, createdBy, job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		return classify(err, "job")
	}

	for _, line := range job.Lines {
		line.JobID = job.ID
		err := t.tx.QueryRow(ctx,
			`INSERT INTO job_line_items(job_id, washer_id, service_item_id, submitted_washer_name, price)
             VALUES($1, $2, $3, $4, $5)
             RETURNING id`,
			line.JobID, line.WasherID, line.ServiceItemID, line.SubmittedWasher, line.Price,
		).Scan(&line.ID)
		if err != nil {
			return classify(err, "line item")
		}
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO wash_job_washers(job_id, washer_id)
         SELECT $1, unnest($2::int[])
         ON CONFLICT DO NOTHING`, job.ID, job.WasherIDs)
	return classify(err, "job washer")
}

func (t *jobTx) IncrementWasherDay(ctx context.Context, d models.WasherDayDelta) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO washer_daily_summaries AS t (washer_id, branch_id, summary_date, total_jobs, total_items)
         VALUES($1, $2, $3::date, $4, $5)
         ON CONFLICT (washer_id, summary_date, branch_id) DO UPDATE SET
             total_jobs  = t.total_jobs + EXCLUDED.total_jobs,
             total_items = t.total_items + EXCLUDED.total_items,
             updated_at  = NOW()`,
		d.WasherID, d.BranchID, timeutil.FormatDate(d.Day), d.Jobs, d.Items)
	return err
}

func (t *jobTx) IncrementBranchDay(ctx context.Context, d models.BranchDayDelta) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO branch_daily_summaries AS t (branch_id, summary_date, total_jobs, total_items)
         VALUES($1, $2::date, $3, $4)
         ON CONFLICT (branch_id, summary_date) DO UPDATE SET
             total_jobs  = t.total_jobs + EXCLUDED.total_jobs,
             total_items = t.total_items + EXCLUDED.total_items,
             updated_at  = NOW()`,
		d.BranchID, timeutil.FormatDate(d.Day), d.Jobs, d.Items)
	return err
}

var _ services.JobStore = (*JobRepository)(nil)
