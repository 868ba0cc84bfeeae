package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceItem is global; it is not owned by a branch.
type ServiceItem struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"` // zero means the price is supplied per job
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsVariablePrice reports whether each job must supply its own price.
func (s *ServiceItem) IsVariablePrice() bool {
	return s.Price.IsZero()
}

type CreateServiceItemRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=255"`
	Price       decimal.Decimal `json:"price"`
}

type UpdateServiceItemRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=255"`
	Price       decimal.Decimal `json:"price"`
}
