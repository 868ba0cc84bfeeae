package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/logging"
	"carwash-backend/internal/metrics"
	"carwash-backend/internal/models"
	"carwash-backend/internal/timeutil"

	"github.com/sirupsen/logrus"
)

// ReconcileService compares the stored day counters with a recomputation
// from line items and can rewrite them.
type ReconcileService struct {
	Reports ReportStore
	Logger  *logrus.Logger

	cache SummaryCache
}

func NewReconcileService(reports ReportStore, logger *logrus.Logger) *ReconcileService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ReconcileService{Reports: reports, Logger: logger}
}

func (s *ReconcileService) SetCache(c SummaryCache) {
	s.cache = c
}

type expectedDay struct {
	washers map[int]*models.WasherDaySummary
	names   map[int]string
	branch  *models.BranchDaySummary
}

func (s *ReconcileService) recompute(ctx context.Context, branchID int, day time.Time) (*expectedDay, error) {
	facts, err := s.Reports.LineFacts(ctx, branchID, day, timeutil.EndOfDay(day))
	if err != nil {
		return nil, err
	}
	return expectFromFacts(facts, branchID, day), nil
}

func expectFromFacts(facts []models.LineFact, branchID int, day time.Time) *expectedDay {
	exp := &expectedDay{
		washers: make(map[int]*models.WasherDaySummary),
		names:   make(map[int]string),
	}
	washerJobs := make(map[int]map[int]bool)
	branchJobs := make(map[int]bool)
	for _, f := range facts {
		row, ok := exp.washers[f.WasherID]
		if !ok {
			row = &models.WasherDaySummary{WasherID: f.WasherID, WasherName: f.WasherName, BranchID: branchID, SummaryDate: day}
			exp.washers[f.WasherID] = row
			exp.names[f.WasherID] = f.WasherName
			washerJobs[f.WasherID] = make(map[int]bool)
		}
		row.TotalItems++
		washerJobs[f.WasherID][f.JobID] = true
		branchJobs[f.JobID] = true
	}
	for id, jobs := range washerJobs {
		exp.washers[id].TotalJobs = len(jobs)
	}
	if len(facts) > 0 {
		exp.branch = &models.BranchDaySummary{
			BranchID:    branchID,
			SummaryDate: day,
			TotalJobs:   len(branchJobs),
			TotalItems:  len(facts),
		}
	}
	return exp
}

// rows lists the expected washer rows ordered by washer ID.
func (e *expectedDay) rows() []*models.WasherDaySummary {
	washers := make([]*models.WasherDaySummary, 0, len(e.washers))
	for _, row := range e.washers {
		washers = append(washers, row)
	}
	sort.Slice(washers, func(i, j int) bool { return washers[i].WasherID < washers[j].WasherID })
	return washers
}

// Check reports every counter row of the branch-day that disagrees with
// the line items.
func (s *ReconcileService) Check(ctx context.Context, branch *models.Branch, day time.Time) (*models.ReconcileReport, error) {
	day = timeutil.StartOfDay(day)
	report, err := s.check(ctx, branch, day)
	if err != nil {
		logging.LogError(s.Logger, "ReconcileService", "Check", "recompute aggregates", branch.Code, err)
		return nil, apperr.Store(err)
	}
	return report, nil
}

func (s *ReconcileService) check(ctx context.Context, branch *models.Branch, day time.Time) (*models.ReconcileReport, error) {
	exp, err := s.recompute(ctx, branch.ID, day)
	if err != nil {
		return nil, err
	}
	storedWashers, err := s.Reports.WasherDays(ctx, branch.ID, day, day, 0)
	if err != nil {
		return nil, err
	}
	storedBranch, err := s.Reports.BranchDays(ctx, branch.ID, day, day)
	if err != nil {
		return nil, err
	}

	report := &models.ReconcileReport{
		BranchID:   branch.ID,
		BranchCode: branch.Code,
		Date:       timeutil.FormatDate(day),
		Washers:    []models.ReconcileDiff{},
	}
	if len(storedBranch) > 0 {
		report.Branch.StoredJobs = storedBranch[0].TotalJobs
		report.Branch.StoredItems = storedBranch[0].TotalItems
	}
	if exp.branch != nil {
		report.Branch.ExpectedJobs = exp.branch.TotalJobs
		report.Branch.ExpectedItems = exp.branch.TotalItems
	}

	diffs := make(map[int]*models.ReconcileDiff)
	for _, row := range storedWashers {
		diffs[row.WasherID] = &models.ReconcileDiff{
			WasherID:    row.WasherID,
			WasherName:  row.WasherName,
			StoredJobs:  row.TotalJobs,
			StoredItems: row.TotalItems,
		}
	}
	for id, row := range exp.washers {
		d, ok := diffs[id]
		if !ok {
			d = &models.ReconcileDiff{WasherID: id, WasherName: exp.names[id]}
			diffs[id] = d
		}
		d.ExpectedJobs = row.TotalJobs
		d.ExpectedItems = row.TotalItems
	}
	for _, d := range diffs {
		if !d.Matches() {
			report.Washers = append(report.Washers, *d)
		}
	}
	sort.Slice(report.Washers, func(i, j int) bool {
		return strings.ToLower(report.Washers[i].WasherName) < strings.ToLower(report.Washers[j].WasherName)
	})
	report.Consistent = report.Branch.Matches() && len(report.Washers) == 0
	if !report.Consistent {
		metrics.ReconcileMismatches.WithLabelValues(branch.Code).Add(float64(len(report.Washers) + boolInt(!report.Branch.Matches())))
	}
	return report, nil
}

// Repair rewrites the branch-day counters from the line items when they
// disagree. Running it on a consistent day changes nothing.
func (s *ReconcileService) Repair(ctx context.Context, branch *models.Branch, day time.Time) (*models.ReconcileReport, error) {
	day = timeutil.StartOfDay(day)
	report, err := s.check(ctx, branch, day)
	if err != nil {
		logging.LogError(s.Logger, "ReconcileService", "Repair", "recompute aggregates", branch.Code, err)
		return nil, apperr.Store(err)
	}
	if report.Consistent {
		return report, nil
	}

	// The rewrite recomputes from the facts it sees under the lock, not from
	// the check above, so jobs committed since are kept.
	err = s.Reports.RebuildDay(ctx, branch.ID, day, func(facts []models.LineFact) ([]*models.WasherDaySummary, *models.BranchDaySummary) {
		exp := expectFromFacts(facts, branch.ID, day)
		return exp.rows(), exp.branch
	})
	if err != nil {
		logging.LogError(s.Logger, "ReconcileService", "Repair", "replace day aggregates", branch.Code, err)
		return nil, apperr.Store(err)
	}
	if s.cache != nil {
		s.cache.InvalidateBranch(ctx, branch.ID)
	}
	report.Repaired = true
	s.Logger.WithFields(logrus.Fields{
		"branch": branch.Code,
		"date":   report.Date,
		"rows":   len(report.Washers),
	}).Warn("day aggregates repaired")
	return report, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
