package models

import (
	"time"

	"carwash-backend/internal/policy"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

func (p PaymentMethod) Valid() bool {
	return p == "" || p == PaymentCash || p == PaymentTransfer
}

type WashJob struct {
	ID              int             `json:"id"`
	BranchID        int             `json:"branch_id"`
	CarPlate        string          `json:"car_plate,omitempty"`
	CarModel        string          `json:"car_model,omitempty"`
	CarColor        string          `json:"car_color,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	PaymentMethod   PaymentMethod   `json:"payment_method,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedByUserID int             `json:"created_by_user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	Lines           []*LineItem     `json:"lines"`
	WasherIDs       []int           `json:"washer_ids"` // distinct credited washers
}

// LineItem is immutable once written.
type LineItem struct {
	ID              int             `json:"id"`
	JobID           int             `json:"job_id"`
	WasherID        int             `json:"washer_id"`
	WasherName      string          `json:"washer_name"`
	SubmittedWasher string          `json:"submitted_washer,omitempty"` // only set when credit was reassigned
	ServiceItemID   int             `json:"service_item_id"`
	ServiceItemName string          `json:"service_item_name"`
	Price           decimal.Decimal `json:"price"`
	Category        policy.Category `json:"category"`
	Split           policy.Split    `json:"split"`
}

// CreateJobRequest is what an attendant submits for one car.
type CreateJobRequest struct {
	Lines         []JobLineRequest `json:"lines" validate:"required,min=1,max=50,dive"`
	CarPlate      string           `json:"car_plate" validate:"max=20"`
	CarModel      string           `json:"car_model" validate:"max=60"`
	CarColor      string           `json:"car_color" validate:"max=30"`
	CustomerName  string           `json:"customer_name" validate:"max=100"`
	CustomerPhone string           `json:"customer_phone" validate:"max=32"`
	PaymentMethod PaymentMethod    `json:"payment_method" validate:"omitempty,oneof=cash transfer"`
	AllowRepeat   bool             `json:"allow_repeat"` // same car twice in one day
}

type JobLineRequest struct {
	WasherName      string           `json:"washer_name" validate:"required,max=100"`
	ServiceItemName string           `json:"service_item_name" validate:"required,max=100"`
	CustomPrice     *decimal.Decimal `json:"custom_price,omitempty"`
}
