package services

import (
	"context"
	"fmt"
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

// JobService ingests wash jobs: it resolves credit, persists the job and
// bumps the day aggregates in a single transaction.
type JobService struct {
	Store       JobStore
	Credit      policy.CreditPolicy
	Logger      *logrus.Logger
	PhoneRegion string

	clock     func() time.Time
	cache     SummaryCache
	publisher JobPublisher
}

func NewJobService(store JobStore, credit policy.CreditPolicy, clock func() time.Time, logger *logrus.Logger) *JobService {
	if clock == nil {
		clock = timeutil.Now
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &JobService{
		Store:       store,
		Credit:      credit,
		Logger:      logger,
		PhoneRegion: DefaultPhoneRegion,
		clock:       clock,
	}
}

// SetCache wires the summary cache invalidated after each committed job.
func (s *JobService) SetCache(c SummaryCache) {
	s.cache = c
}

// SetPublisher wires the live event publisher.
func (s *JobService) SetPublisher(p JobPublisher) {
	s.publisher = p
}

// CreateJob validates and records one job for the caller's branch.
// Either everything is written (job, lines, washer links, aggregates) or nothing.
func (s *JobService) CreateJob(ctx context.Context, caller *models.Caller, req *models.CreateJobRequest) (*models.WashJob, error) {
	job, err := s.createJob(ctx, caller, req)
	if err != nil {
		kind := apperr.KindOf(err)
		metrics.JobsRejected.WithLabelValues(string(kind)).Inc()
		if kind == apperr.KindStore {
			logging.LogError(s.Logger, "JobService", "CreateJob", "transaction failed", nil, err)
		} else {
			s.Logger.WithFields(logrus.Fields{"kind": kind}).Info("job rejected: " + err.Error())
		}
		return nil, apperr.Store(err)
	}

	branchCode := ""
	if caller.Branch != nil {
		branchCode = caller.Branch.Code
	}
	metrics.JobsCreated.WithLabelValues(branchCode).Inc()
	for _, line := range job.Lines {
		metrics.JobLineItems.WithLabelValues(string(line.Category)).Inc()
	}
	if s.cache != nil {
		s.cache.InvalidateBranch(ctx, job.BranchID)
	}
	if s.publisher != nil {
		s.publisher.PublishJob(job)
	}
	s.Logger.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"branch_id": job.BranchID,
		"lines":     len(job.Lines),
		"total":     job.TotalAmount.StringFixed(2),
	}).Info("job created")
	return job, nil
}

func (s *JobService) createJob(ctx context.Context, caller *models.Caller, req *models.CreateJobRequest) (*models.WashJob, error) {
	branch, err := caller.RequireBranch()
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.Validation("request body is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkLineNames(req.Lines); err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperr.Validation("payment_method must be cash or transfer")
	}
	phone, err := normalizePhone(req.CustomerPhone, s.PhoneRegion)
	if err != nil {
		return nil, err
	}
	plate := normalizePlate(req.CarPlate)

	now := s.clock().In(timeutil.Location)
	day := timeutil.StartOfDay(now)

	job := &models.WashJob{
		BranchID:        branch.ID,
		CarPlate:        plate,
		CarModel:        strings.TrimSpace(req.CarModel),
		CarColor:        strings.TrimSpace(req.CarColor),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   phone,
		PaymentMethod:   req.PaymentMethod,
		CreatedByUserID: caller.User.ID,
		CreatedAt:       now,
	}

	err = s.Store.WithinTx(ctx, func(ctx context.Context, tx JobTx) error {
		if err := tx.LockBranchDay(ctx, branch.ID, day); err != nil {
			return err
		}
		if plate != "" && !req.AllowRepeat {
			seen, err := tx.CarSeenBetween(ctx, branch.ID, plate, day, timeutil.EndOfDay(day))
			if err != nil {
				return err
			}
			if seen {
				return apperr.Validation("car %s was already washed today; set allow_repeat to record it again", plate).
					With("car_plate", plate)
			}
		}

		lines, err := s.resolveCredit(ctx, tx, branch.ID, req.Lines)
		if err != nil {
			return err
		}
		job.Lines = lines
		job.TotalAmount = decimal.Zero
		for _, line := range lines {
			job.TotalAmount = job.TotalAmount.Add(line.Price)
		}
		job.WasherIDs = creditedWashers(lines)

		if err := tx.InsertJob(ctx, job); err != nil {
			return err
		}
		return applyAggregates(ctx, tx, job, day)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// resolveCredit turns submitted lines into priced line items credited to a
// concrete washer of the branch. Special items go to the credit target
// regardless of the submitted washer name.
func (s *JobService) resolveCredit(ctx context.Context, tx JobTx, branchID int, reqLines []models.JobLineRequest) ([]*models.LineItem, error) {
	itemNames := make([]string, 0, len(reqLines))
	for _, l := range reqLines {
		itemNames = append(itemNames, l.ServiceItemName)
	}
	itemNames = distinctNames(itemNames)

	items, err := tx.ActiveServiceItemsByNames(ctx, itemNames)
	if err != nil {
		return nil, err
	}
	itemByKey := make(map[string]*models.ServiceItem, len(items))
	for _, it := range items {
		itemByKey[foldKey(it.Name)] = it
	}
	var missingItems []string
	for _, n := range itemNames {
		if _, ok := itemByKey[foldKey(n)]; !ok {
			missingItems = append(missingItems, n)
		}
	}
	if len(missingItems) > 0 {
		return nil, apperr.Reference("service_items", missingItems)
	}

	for i, l := range reqLines {
		if l.CustomPrice != nil && !isCents(*l.CustomPrice) {
			return nil, apperr.Validation("custom_price has more than 2 decimal places").
				With("field", fmt.Sprintf("lines[%d].custom_price", i))
		}
	}

	var unpriced []string
	for _, l := range reqLines {
		item := itemByKey[foldKey(l.ServiceItemName)]
		if item == nil {
			return nil, apperr.Reference("service_items", []string{l.ServiceItemName})
		}
		if item.IsVariablePrice() && (l.CustomPrice == nil || !l.CustomPrice.IsPositive()) {
			unpriced = append(unpriced, item.Name)
		}
	}
	if len(unpriced) > 0 {
		unpriced = distinctNames(unpriced)
		return nil, apperr.Policy("a positive custom_price is required for variable-priced items: %s",
			strings.Join(unpriced, ", ")).With("service_items", unpriced)
	}

	needsTarget := false
	var washerNames []string
	for _, l := range reqLines {
		item := itemByKey[foldKey(l.ServiceItemName)]
		if s.Credit.RequiresCreditTarget(item.Name) {
			needsTarget = true
			continue
		}
		washerNames = append(washerNames, l.WasherName)
	}
	washerNames = distinctNames(washerNames)

	var target *models.Washer
	if needsTarget {
		target, err = tx.ActiveWasherByName(ctx, branchID, s.Credit.TargetName())
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, apperr.Policy("special items must be credited to %s, who is not an active washer in this branch",
				s.Credit.TargetName())
		}
	}

	washerByKey := make(map[string]*models.Washer, len(washerNames))
	if len(washerNames) > 0 {
		washers, err := tx.ActiveWashersByNames(ctx, branchID, washerNames)
		if err != nil {
			return nil, err
		}
		for _, w := range washers {
			washerByKey[foldKey(w.Name)] = w
		}
	}
	var missingWashers []string
	for _, n := range washerNames {
		if _, ok := washerByKey[foldKey(n)]; !ok {
			missingWashers = append(missingWashers, n)
		}
	}
	if len(missingWashers) > 0 {
		return nil, apperr.Reference("washers", missingWashers)
	}

	lines := make([]*models.LineItem, 0, len(reqLines))
	for _, l := range reqLines {
		item := itemByKey[foldKey(l.ServiceItemName)]
		price := item.Price
		if item.IsVariablePrice() {
			price = *l.CustomPrice
		}

		line := &models.LineItem{
			ServiceItemID:   item.ID,
			ServiceItemName: item.Name,
			Price:           price,
		}
		if s.Credit.RequiresCreditTarget(item.Name) {
			line.WasherID = target.ID
			line.WasherName = target.Name
			submitted := strings.TrimSpace(l.WasherName)
			if !s.Credit.IsCreditTarget(submitted) {
				line.SubmittedWasher = submitted
			}
		} else {
			w := washerByKey[foldKey(l.WasherName)]
			if w == nil {
				return nil, apperr.Reference("washers", []string{l.WasherName})
			}
			line.WasherID = w.ID
			line.WasherName = w.Name
		}
		decorateLine(line)
		lines = append(lines, line)
	}
	return lines, nil
}

// checkLineNames rejects washer or item names that are only whitespace.
func checkLineNames(reqLines []models.JobLineRequest) error {
	for i, l := range reqLines {
		if strings.TrimSpace(l.ServiceItemName) == "" {
			return apperr.Validation("service_item_name must not be blank").
				With("field", fmt.Sprintf("lines[%d].service_item_name", i))
		}
		if strings.TrimSpace(l.WasherName) == "" {
			return apperr.Validation("washer_name must not be blank").
				With("field", fmt.Sprintf("lines[%d].washer_name", i))
		}
	}
	return nil
}

// applyAggregates adds one job to the day counters: each distinct credited
// washer gets jobs+1 and items+its line count, the branch gets jobs+1 and
// items+all lines. Increments are atomic upserts so concurrent jobs compose.
func applyAggregates(ctx context.Context, tx JobTx, job *models.WashJob, day time.Time) error {
	itemsByWasher := make(map[int]int, len(job.WasherIDs))
	for _, line := range job.Lines {
		itemsByWasher[line.WasherID]++
	}
	for _, washerID := range job.WasherIDs {
		err := tx.IncrementWasherDay(ctx, models.WasherDayDelta{
			WasherID: washerID,
			BranchID: job.BranchID,
			Day:      day,
			Jobs:     1,
			Items:    itemsByWasher[washerID],
		})
		if err != nil {
			return err
		}
	}
	return tx.IncrementBranchDay(ctx, models.BranchDayDelta{
		BranchID: job.BranchID,
		Day:      day,
		Jobs:     1,
		Items:    len(job.Lines),
	})
}

// creditedWashers lists the distinct washer IDs in order of first appearance.
func creditedWashers(lines []*models.LineItem) []int {
	seen := make(map[int]bool, len(lines))
	ids := make([]int, 0, len(lines))
	for _, line := range lines {
		if seen[line.WasherID] {
			continue
		}
		seen[line.WasherID] = true
		ids = append(ids, line.WasherID)
	}
	return ids
}

func decorateLine(line *models.LineItem) {
	line.Category = policy.Classify(line.ServiceItemName)
	line.Split = policy.SplitFor(line.ServiceItemName, line.Price)
}

func decorateJob(job *models.WashJob) {
	for _, line := range job.Lines {
		decorateLine(line)
	}
}

// GetJob returns a job of the caller's branch.
func (s *JobService) GetJob(ctx context.Context, caller *models.Caller, id int) (*models.WashJob, error) {
	branch, err := caller.RequireBranch()
	if err != nil {
		return nil, err
	}
	job, err := s.Store.Get(ctx, branch.ID, id)
	if err != nil {
		return nil, apperr.Store(err)
	}
	decorateJob(job)
	return job, nil
}

// ListJobs returns the branch's jobs created between the start of from and
// the end of to, oldest first.
func (s *JobService) ListJobs(ctx context.Context, caller *models.Caller, from, to time.Time) ([]*models.WashJob, error) {
	branch, err := caller.RequireBranch()
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperr.Validation("from must not be after to")
	}
	jobs, err := s.Store.ListBetween(ctx, branch.ID, timeutil.StartOfDay(from), timeutil.EndOfDay(to))
	if err != nil {
		return nil, apperr.Store(err)
	}
	for _, job := range jobs {
		decorateJob(job)
	}
	return jobs, nil
}
