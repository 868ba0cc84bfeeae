package models

import "time"

// Branch is the tenancy boundary for users, washers, jobs and aggregates.
type Branch struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Location  string    `json:"location,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateBranchRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Code     string `json:"code" validate:"required,alphanum,max=10"`
	Location string `json:"location" validate:"max=255"`
}

type UpdateBranchRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Code     string `json:"code" validate:"required,alphanum,max=10"`
	Location string `json:"location" validate:"max=255"`
}
