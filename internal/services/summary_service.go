package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/logging"
	"carwash-backend/internal/metrics"
	"carwash-backend/internal/models"
	"carwash-backend/internal/policy"
	"carwash-backend/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultSummaryTTL = 10 * time.Minute

// SummaryService rebuilds revenue reports from stored line items. It never
// reads the day aggregates for money; those are only exposed as counters.
type SummaryService struct {
	Reports  ReportStore
	Branches BranchStore
	Logger   *logrus.Logger

	cache    SummaryCache
	cacheTTL time.Duration
}

func NewSummaryService(reports ReportStore, branches BranchStore, logger *logrus.Logger) *SummaryService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SummaryService{
		Reports:  reports,
		Branches: branches,
		Logger:   logger,
		cacheTTL: defaultSummaryTTL,
	}
}

// SetCache enables the summary cache; ttl <= 0 keeps the default.
func (s *SummaryService) SetCache(c SummaryCache, ttl time.Duration) {
	s.cache = c
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// SummaryCacheKey is the cache key of a branch summary window at a cache
// generation. Every key of a branch shares the "summary:<branch>:" prefix so
// they can be dropped together.
func SummaryCacheKey(branchID int, gen int64, from, to time.Time) string {
	return fmt.Sprintf("summary:%d:g%d:%s:%s", branchID, gen, timeutil.FormatDate(from), timeutil.FormatDate(to))
}

// DailySummary reconstructs the report of branch for the whole days from..to.
// Money values are exact; call Rounded before presenting them.
func (s *SummaryService) DailySummary(ctx context.Context, branch *models.Branch, from, to time.Time) (*models.DailySummary, error) {
	if branch == nil {
		return nil, apperr.Validation("branch is required")
	}
	start, end := timeutil.StartOfDay(from), timeutil.EndOfDay(to)
	if end.Before(start) {
		return nil, apperr.Validation("from must not be after to")
	}

	// The generation is read before the facts: a job committing while the
	// summary is built bumps it, so the result lands under a key nobody reads.
	var key string
	cache := s.cache
	if cache != nil {
		gen, ok := cache.Generation(ctx, branch.ID)
		if !ok {
			cache = nil
		}
		key = SummaryCacheKey(branch.ID, gen, start, end)
	}
	if cache != nil {
		if data, ok := cache.GetSummary(ctx, key); ok {
			var cached models.DailySummary
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.SummaryCacheLookups.WithLabelValues("hit").Inc()
				return &cached, nil
			}
		}
		metrics.SummaryCacheLookups.WithLabelValues("miss").Inc()
	}

	facts, err := s.Reports.LineFacts(ctx, branch.ID, start, end)
	if err != nil {
		logging.LogError(s.Logger, "SummaryService", "DailySummary", "load line facts", branch.ID, err)
		return nil, apperr.Store(err)
	}
	payments, err := s.Reports.JobPayments(ctx, branch.ID, start, end)
	if err != nil {
		logging.LogError(s.Logger, "SummaryService", "DailySummary", "load job payments", branch.ID, err)
		return nil, apperr.Store(err)
	}

	summary := Reconstruct(facts, payments)
	summary.BranchID = branch.ID
	summary.BranchName = branch.Name
	summary.BranchCode = branch.Code
	summary.From = timeutil.FormatDate(start)
	summary.To = timeutil.FormatDate(end)

	if cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			cache.SetSummary(ctx, key, data, s.cacheTTL)
		}
	}
	return summary, nil
}

// Reconstruct computes totals, the per-item breakdown and per-washer
// earnings from line facts, and payment totals from job totals.
func Reconstruct(facts []models.LineFact, payments []models.JobPayment) *models.DailySummary {
	summary := &models.DailySummary{
		TotalSales:   decimal.Zero,
		CompanyTotal: decimal.Zero,
		WasherTotal:  decimal.Zero,
		Payments: models.PaymentTotals{
			Cash:       decimal.Zero,
			Transfer:   decimal.Zero,
			Unrecorded: decimal.Zero,
		},
		Items:   []models.ItemBreakdown{},
		Washers: []models.WasherEarning{},
	}

	type washerAcc struct {
		earning models.WasherEarning
		jobs    map[int]bool
	}
	items := make(map[string]*models.ItemBreakdown)
	var itemOrder []string
	washers := make(map[int]*washerAcc)
	var washerOrder []int

	for _, f := range facts {
		split := policy.SplitFor(f.ServiceItemName, f.Price)
		summary.TotalItems++
		summary.TotalSales = summary.TotalSales.Add(f.Price)
		summary.CompanyTotal = summary.CompanyTotal.Add(split.Company)
		summary.WasherTotal = summary.WasherTotal.Add(split.Washer)

		key := strings.ToLower(f.ServiceItemName)
		it, ok := items[key]
		if !ok {
			it = &models.ItemBreakdown{
				ServiceItemName: f.ServiceItemName,
				Category:        policy.Classify(f.ServiceItemName),
				Earnings:        decimal.Zero,
				Company:         decimal.Zero,
				Washer:          decimal.Zero,
			}
			items[key] = it
			itemOrder = append(itemOrder, key)
		}
		it.Quantity++
		it.Earnings = it.Earnings.Add(f.Price)
		it.Company = it.Company.Add(split.Company)
		it.Washer = it.Washer.Add(split.Washer)

		w, ok := washers[f.WasherID]
		if !ok {
			w = &washerAcc{
				earning: models.WasherEarning{
					WasherID:   f.WasherID,
					WasherName: f.WasherName,
					Sales:      decimal.Zero,
					Company:    decimal.Zero,
					Washer:     decimal.Zero,
				},
				jobs: make(map[int]bool),
			}
			washers[f.WasherID] = w
			washerOrder = append(washerOrder, f.WasherID)
		}
		w.jobs[f.JobID] = true
		w.earning.Items++
		w.earning.Sales = w.earning.Sales.Add(f.Price)
		w.earning.Company = w.earning.Company.Add(split.Company)
		w.earning.Washer = w.earning.Washer.Add(split.Washer)
	}

	for _, p := range payments {
		summary.TotalJobs++
		switch p.PaymentMethod {
		case models.PaymentCash:
			summary.Payments.Cash = summary.Payments.Cash.Add(p.TotalAmount)
		case models.PaymentTransfer:
			summary.Payments.Transfer = summary.Payments.Transfer.Add(p.TotalAmount)
		default:
			summary.Payments.Unrecorded = summary.Payments.Unrecorded.Add(p.TotalAmount)
		}
	}

	for _, key := range itemOrder {
		summary.Items = append(summary.Items, *items[key])
	}
	sortItems(summary.Items)

	for _, id := range washerOrder {
		w := washers[id]
		w.earning.Jobs = len(w.jobs)
		summary.Washers = append(summary.Washers, w.earning)
	}
	sortWashers(summary.Washers)
	return summary
}

func sortItems(items []models.ItemBreakdown) {
	sort.SliceStable(items, func(i, j int) bool {
		if c := items[i].Earnings.Cmp(items[j].Earnings); c != 0 {
			return c > 0
		}
		return strings.ToLower(items[i].ServiceItemName) < strings.ToLower(items[j].ServiceItemName)
	})
}

func sortWashers(washers []models.WasherEarning) {
	sort.SliceStable(washers, func(i, j int) bool {
		if c := washers[i].Washer.Cmp(washers[j].Washer); c != 0 {
			return c > 0
		}
		return strings.ToLower(washers[i].WasherName) < strings.ToLower(washers[j].WasherName)
	})
}

// AllBranches summarises every active branch, ordered by name, and sums them.
func (s *SummaryService) AllBranches(ctx context.Context, from, to time.Time) (*models.AllBranchesSummary, error) {
	branches, err := s.Branches.List(ctx, true)
	if err != nil {
		return nil, apperr.Store(err)
	}
	out := &models.AllBranchesSummary{
		From:     timeutil.FormatDate(from),
		To:       timeutil.FormatDate(to),
		Branches: make([]*models.DailySummary, 0, len(branches)),
	}
	for _, b := range branches {
		summary, err := s.DailySummary(ctx, b, from, to)
		if err != nil {
			return nil, err
		}
		out.Branches = append(out.Branches, summary)
	}
	out.Overall = Combine(out.Branches)
	out.Overall.From, out.Overall.To = out.From, out.To
	return out, nil
}

// Combine sums branch summaries. Items are merged by name; washers stay
// separate since each belongs to one branch.
func Combine(summaries []*models.DailySummary) *models.DailySummary {
	total := Reconstruct(nil, nil)
	total.BranchName = "All branches"
	items := make(map[string]int)
	for _, s := range summaries {
		total.TotalJobs += s.TotalJobs
		total.TotalItems += s.TotalItems
		total.TotalSales = total.TotalSales.Add(s.TotalSales)
		total.CompanyTotal = total.CompanyTotal.Add(s.CompanyTotal)
		total.WasherTotal = total.WasherTotal.Add(s.WasherTotal)
		total.Payments.Cash = total.Payments.Cash.Add(s.Payments.Cash)
		total.Payments.Transfer = total.Payments.Transfer.Add(s.Payments.Transfer)
		total.Payments.Unrecorded = total.Payments.Unrecorded.Add(s.Payments.Unrecorded)
		for _, it := range s.Items {
			key := strings.ToLower(it.ServiceItemName)
			idx, ok := items[key]
			if !ok {
				items[key] = len(total.Items)
				total.Items = append(total.Items, it)
				continue
			}
			merged := &total.Items[idx]
			merged.Quantity += it.Quantity
			merged.Earnings = merged.Earnings.Add(it.Earnings)
			merged.Company = merged.Company.Add(it.Company)
			merged.Washer = merged.Washer.Add(it.Washer)
		}
		total.Washers = append(total.Washers, s.Washers...)
	}
	sortItems(total.Items)
	sortWashers(total.Washers)
	return total
}

// WasherDays returns the stored per-washer counters; washerID 0 means all.
func (s *SummaryService) WasherDays(ctx context.Context, branch *models.Branch, from, to time.Time, washerID int) ([]*models.WasherDaySummary, error) {
	rows, err := s.Reports.WasherDays(ctx, branch.ID, timeutil.StartOfDay(from), timeutil.StartOfDay(to), washerID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return rows, nil
}

// BranchDays returns the stored per-branch counters.
func (s *SummaryService) BranchDays(ctx context.Context, branch *models.Branch, from, to time.Time) ([]*models.BranchDaySummary, error) {
	rows, err := s.Reports.BranchDays(ctx, branch.ID, timeutil.StartOfDay(from), timeutil.StartOfDay(to))
	if err != nil {
		return nil, apperr.Store(err)
	}
	return rows, nil
}
