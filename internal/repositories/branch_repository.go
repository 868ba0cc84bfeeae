package repositories

import (
	"context"

	"carwash-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type BranchRepository struct {
	DB *pgxpool.Pool
}

func NewBranchRepository(db *pgxpool.Pool) *BranchRepository {
	return &BranchRepository{DB: db}
}

const branchColumns = `id, name, code, location, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (*models.Branch, error) {
	var b models.Branch
	err := row.Scan(&b.ID, &b.Name, &b.Code, &b.Location, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *BranchRepository) Create(ctx context.Context, b *models.Branch) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO branches(name, code, location, is_active)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		b.Name, b.Code, b.Location, b.IsActive,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return classify(err, "branch")
}

func (r *BranchRepository) Get(ctx context.Context, id int) (*models.Branch, error) {
	b, err := scanBranch(r.DB.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id=$1`, id))
	if err != nil {
		return nil, classify(err, "branch")
	}
	return b, nil
}

func (r *BranchRepository) GetByCode(ctx context.Context, code string) (*models.Branch, error) {
	b, err := scanBranch(r.DB.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE upper(code)=upper($1)`, code))
	if err != nil {
		return nil, classify(err, "branch")
	}
	return b, nil
}

// List returns branches ordered by name
func (r *BranchRepository) List(ctx context.Context, activeOnly bool) ([]*models.Branch, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+branchColumns+` FROM branches
         WHERE ($1 = false OR is_active)
         ORDER BY name, id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := []*models.Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (r *BranchRepository) Update(ctx context.Context, b *models.Branch) error {
	err := r.DB.QueryRow(ctx,
		`UPDATE branches SET name=$2, code=$3, location=$4, updated_at=NOW()
         WHERE id=$1
         RETURNING is_active, created_at, updated_at`,
		b.ID, b.Name, b.Code, b.Location,
	).Scan(&b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return classify(err, "branch")
}

func (r *BranchRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.DB.Exec(ctx, `UPDATE branches SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	return notFoundIfNone(tag, err, "branch")
}
