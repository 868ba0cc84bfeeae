package models

import (
	"carwash-backend/internal/policy"

	"github.com/shopspring/decimal"
)

// DailySummary is the reconstructed revenue report for one branch over
// a window of whole days. Monetary fields are exact until Rounded is called.
type DailySummary struct {
	BranchID     int             `json:"branch_id"`
	BranchName   string          `json:"branch_name"`
	BranchCode   string          `json:"branch_code"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	TotalJobs    int             `json:"total_jobs"`
	TotalItems   int             `json:"total_items"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	CompanyTotal decimal.Decimal `json:"company_total"`
	WasherTotal  decimal.Decimal `json:"washer_total"`
	Payments     PaymentTotals   `json:"payments"`
	Items        []ItemBreakdown `json:"items"`
	Washers      []WasherEarning `json:"washers"`
}

type PaymentTotals struct {
	Cash       decimal.Decimal `json:"cash"`
	Transfer   decimal.Decimal `json:"transfer"`
	Unrecorded decimal.Decimal `json:"unrecorded"` // jobs without a payment method
}

type ItemBreakdown struct {
	ServiceItemName string          `json:"service_item_name"`
	Category        policy.Category `json:"category"`
	Quantity        int             `json:"quantity"`
	Earnings        decimal.Decimal `json:"earnings"`
	Company         decimal.Decimal `json:"company"`
	Washer          decimal.Decimal `json:"washer"`
}

type WasherEarning struct {
	WasherID   int             `json:"washer_id"`
	WasherName string          `json:"washer_name"`
	Jobs       int             `json:"jobs"`
	Items      int             `json:"items"`
	Sales      decimal.Decimal `json:"sales"`
	Company    decimal.Decimal `json:"company"`
	Washer     decimal.Decimal `json:"washer"`
}

// AllBranchesSummary sums independently computed branch summaries.
type AllBranchesSummary struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Branches []*DailySummary `json:"branches"`
	Overall  *DailySummary   `json:"overall"`
}

// Rounded returns a copy with every monetary field rounded to cents.
func (s *DailySummary) Rounded() *DailySummary {
	out := *s
	out.TotalSales = policy.Round2(s.TotalSales)
	out.CompanyTotal = policy.Round2(s.CompanyTotal)
	out.WasherTotal = policy.Round2(s.WasherTotal)
	out.Payments = PaymentTotals{
		Cash:       policy.Round2(s.Payments.Cash),
		Transfer:   policy.Round2(s.Payments.Transfer),
		Unrecorded: policy.Round2(s.Payments.Unrecorded),
	}
	out.Items = make([]ItemBreakdown, len(s.Items))
	for i, it := range s.Items {
		it.Earnings = policy.Round2(it.Earnings)
		it.Company = policy.Round2(it.Company)
		it.Washer = policy.Round2(it.Washer)
		out.Items[i] = it
	}
	out.Washers = make([]WasherEarning, len(s.Washers))
	for i, w := range s.Washers {
		w.Sales = policy.Round2(w.Sales)
		w.Company = policy.Round2(w.Company)
		w.Washer = policy.Round2(w.Washer)
		out.Washers[i] = w
	}
	return &out
}

// ReconcileDiff compares a stored counter row with its recomputation.
type ReconcileDiff struct {
	WasherID      int    `json:"washer_id,omitempty"`
	WasherName    string `json:"washer_name,omitempty"`
	StoredJobs    int    `json:"stored_jobs"`
	StoredItems   int    `json:"stored_items"`
	ExpectedJobs  int    `json:"expected_jobs"`
	ExpectedItems int    `json:"expected_items"`
}

func (d ReconcileDiff) Matches() bool {
	return d.StoredJobs == d.ExpectedJobs && d.StoredItems == d.ExpectedItems
}

type ReconcileReport struct {
	BranchID   int             `json:"branch_id"`
	BranchCode string          `json:"branch_code"`
	Date       string          `json:"date"`
	Consistent bool            `json:"consistent"`
	Branch     ReconcileDiff   `json:"branch"`
	Washers    []ReconcileDiff `json:"washers"` // only mismatching rows
	Repaired   bool            `json:"repaired"`
}
