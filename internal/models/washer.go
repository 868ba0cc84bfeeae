package models

import "time"

type Washer struct {
	ID        int       `json:"id"`
	BranchID  int       `json:"branch_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"` // E.164 when set
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateWasherRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"max=32"`
}

type UpdateWasherRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"max=32"`
}
