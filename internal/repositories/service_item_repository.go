package repositories

import (
	"context"

	"carwash-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ServiceItemRepository struct {
	DB *pgxpool.Pool
}

func NewServiceItemRepository(db *pgxpool.Pool) *ServiceItemRepository {
	return &ServiceItemRepository{DB: db}
}

const serviceItemColumns = `id, name, description, price, is_active, created_at, updated_at`

func scanServiceItem(row rowScanner) (*models.ServiceItem, error) {
	var s models.ServiceItem
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *ServiceItemRepository) Create(ctx context.Context, s *models.ServiceItem) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO service_items(name, description, price, is_active)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		s.Name, s.Description, s.Price, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return classify(err, "service item")
}

func (r *ServiceItemRepository) Get(ctx context.Context, id int) (*models.ServiceItem, error) {
	s, err := scanServiceItem(r.DB.QueryRow(ctx, `SELECT `+serviceItemColumns+` FROM service_items WHERE id=$1`, id))
	if err != nil {
		return nil, classify(err, "service item")
	}
	return s, nil
}

func (r *ServiceItemRepository) List(ctx context.Context, includeInactive bool) ([]*models.ServiceItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+serviceItemColumns+` FROM service_items
         WHERE ($1 OR is_active)
         ORDER BY lower(name)`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.ServiceItem{}
	for rows.Next() {
		s, err := scanServiceItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *ServiceItemRepository) Update(ctx context.Context, s *models.ServiceItem) error {
	err := r.DB.QueryRow(ctx,
		`UPDATE service_items SET name=$2, description=$3, price=$4, updated_at=NOW()
         WHERE id=$1
         RETURNING is_active, created_at, updated_at`,
		s.ID, s.Name, s.Description, s.Price,
	).Scan(&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return classify(err, "service item")
}

func (r *ServiceItemRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.DB.Exec(ctx, `UPDATE service_items SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	return notFoundIfNone(tag, err, "service item")
}
