package repositories

import (
	"context"

	"carwash-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type WasherRepository struct {
	DB *pgxpool.Pool
}

func NewWasherRepository(db *pgxpool.Pool) *WasherRepository {
	return &WasherRepository{DB: db}
}

const washerColumns = `id, branch_id, name, phone, is_active, created_at, updated_at`

func scanWasher(row rowScanner) (*models.Washer, error) {
	var w models.Washer
	err := row.Scan(&w.ID, &w.BranchID, &w.Name, &w.Phone, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *WasherRepository) Create(ctx context.Context, w *models.Washer) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO washers(branch_id, name, phone, is_active)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		w.BranchID, w.Name, w.Phone, w.IsActive,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	return classify(err, "washer")
}

func (r *WasherRepository) Get(ctx context.Context, branchID, id int) (*models.Washer, error) {
	w, err := scanWasher(r.DB.QueryRow(ctx,
		`SELECT `+washerColumns+` FROM washers WHERE id=$1 AND branch_id=$2`, id, branchID))
	if err != nil {
		return nil, classify(err, "washer")
	}
	return w, nil
}

func (r *WasherRepository) ListByBranch(ctx context.Context, branchID int, includeInactive bool) ([]*models.Washer, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+washerColumns+` FROM washers
         WHERE branch_id=$1 AND ($2 OR is_active)
         ORDER BY lower(name)`, branchID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	washers := []*models.Washer{}
	for rows.Next() {
		w, err := scanWasher(rows)
		if err != nil {
			return nil, err
		}
		washers = append(washers, w)
	}
	return washers, rows.Err()
}

func (r *WasherRepository) Update(ctx context.Context, w *models.Washer) error {
	err := r.DB.QueryRow(ctx,
		`UPDATE washers SET name=$3, phone=$4, updated_at=NOW()
         WHERE id=$1 AND branch_id=$2
         RETURNING is_active, created_at, updated_at`,
		w.ID, w.BranchID, w.Name, w.Phone,
	).Scan(&w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	return classify(err, "washer")
}

func (r *WasherRepository) SetActive(ctx context.Context, branchID, id int, active bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE washers SET is_active=$3, updated_at=NOW() WHERE id=$1 AND branch_id=$2`, id, branchID, active)
	return notFoundIfNone(tag, err, "washer")
}
