package services_test

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
)

func TestDailySummaryReconstruction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Engine Wash", "Sam", "Full Wash"), PaymentMethod: models.PaymentCash})
	f.create(t, &models.CreateJobRequest{Lines: lines("Musa", "Car Rug"), PaymentMethod: models.PaymentTransfer})
	f.create(t, &models.CreateJobRequest{Lines: lines("Musa", "Full Wash", "Sam", "Radiator Flush")})

	// Jobs on other days or branches are outside the window
	f.now = f.now.Add(24 * time.Hour)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash"), PaymentMethod: models.PaymentCash})
	f.now = f.now.Add(-24 * time.Hour)

	s, err := f.summary.DailySummary(ctx, f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}

	// 300 + 50 + 100 + 50 + 100
	if !s.TotalSales.Equal(dec("600")) {
		t.Fatalf("total sales = %s, want 600", s.TotalSales)
	}
	if s.TotalJobs != 3 || s.TotalItems != 5 {
		t.Fatalf("jobs/items = %d/%d, want 3/5", s.TotalJobs, s.TotalItems)
	}
	if !s.CompanyTotal.Add(s.WasherTotal).Equal(s.TotalSales) {
		t.Fatalf("company %s + washer %s != sales %s", s.CompanyTotal, s.WasherTotal, s.TotalSales)
	}
	if !s.Payments.Cash.Equal(dec("350")) || !s.Payments.Transfer.Equal(dec("100")) || !s.Payments.Unrecorded.Equal(dec("150")) {
		t.Fatalf("payments = %+v", s.Payments)
	}

	r := s.Rounded()
	// engine 200/100, full wash x2 60/40, rug 50/50, radiator 66.67/33.33
	if got := r.CompanyTotal.StringFixed(2); got != "376.67" {
		t.Fatalf("company total = %s, want 376.67", got)
	}
	if got := r.WasherTotal.StringFixed(2); got != "223.33" {
		t.Fatalf("washer total = %s, want 223.33", got)
	}

	wantOrder := []string{"Engine Wash", "Car Rug", "Full Wash", "Radiator Flush"}
	if len(s.Items) != len(wantOrder) {
		t.Fatalf("items = %+v", s.Items)
	}
	for i, name := range wantOrder {
		if s.Items[i].ServiceItemName != name {
			t.Fatalf("item %d = %s, want %s", i, s.Items[i].ServiceItemName, name)
		}
	}
	if s.Items[2].Quantity != 2 || !s.Items[2].Earnings.Equal(dec("100")) {
		t.Fatalf("full wash breakdown = %+v", s.Items[2])
	}

	byName := map[string]models.WasherEarning{}
	for _, w := range s.Washers {
		byName[w.WasherName] = w
	}
	if idowu := byName["Idowu"]; idowu.Jobs != 2 || idowu.Items != 2 || !idowu.Sales.Equal(dec("400")) {
		t.Fatalf("Idowu earnings = %+v", idowu)
	}
	if musa := byName["Musa"]; musa.Jobs != 2 || !musa.Washer.Equal(dec("70")) {
		t.Fatalf("Musa earnings = %+v", musa)
	}
}

func TestDailySummaryIdempotent(t *testing.T) {
	f := newFixture(t)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Engine Wash", "Musa", "Wax")})

	a, err := f.summary.DailySummary(context.Background(), f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	b, err := f.summary.DailySummary(context.Background(), f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("summaries differ:\n%+v\n%+v", a, b)
	}
}

func TestDailySummaryEmptyDay(t *testing.T) {
	f := newFixture(t)
	s, err := f.summary.DailySummary(context.Background(), f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if !s.TotalSales.IsZero() || s.TotalJobs != 0 || len(s.Items) != 0 || len(s.Washers) != 0 {
		t.Fatalf("empty day summary = %+v", s)
	}
}

func TestAllBranches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")})

	ikejaWasher := &models.Washer{BranchID: f.other.ID, Name: "Bayo", IsActive: true}
	if err := f.store.Washers().Create(ctx, ikejaWasher); err != nil {
		t.Fatalf("create washer: %v", err)
	}
	ikeja := &models.Caller{User: f.caller.User, Branch: f.other}
	if _, err := f.jobs.CreateJob(ctx, ikeja, &models.CreateJobRequest{Lines: lines("Bayo", "Wax", "Bayo", "Full Wash")}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	closed := &models.Branch{Name: "Ajah", Code: "AJ", IsActive: false}
	if err := f.store.Branches().Create(ctx, closed); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	all, err := f.summary.AllBranches(ctx, f.now, f.now)
	if err != nil {
		t.Fatalf("AllBranches: %v", err)
	}
	if len(all.Branches) != 2 {
		t.Fatalf("branches = %d, want 2 active", len(all.Branches))
	}
	if all.Branches[0].BranchName != "Ikeja" || all.Branches[1].BranchName != "Lekki" {
		t.Fatalf("order = %s, %s", all.Branches[0].BranchName, all.Branches[1].BranchName)
	}
	if !all.Overall.TotalSales.Equal(dec("180")) || all.Overall.TotalJobs != 2 || all.Overall.TotalItems != 3 {
		t.Fatalf("overall = %+v", all.Overall)
	}
	for _, it := range all.Overall.Items {
		if it.ServiceItemName == "Full Wash" && it.Quantity != 2 {
			t.Fatalf("full wash not merged: %+v", it)
		}
	}
}

type mapCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	gen         map[int]int64
	invalidated []int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, gen: map[int]int64{}}
}

func (c *mapCache) Generation(_ context.Context, branchID int) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[branchID], true
}

func (c *mapCache) GetSummary(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) SetSummary(_ context.Context, key string, data []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

func (c *mapCache) InvalidateBranch(_ context.Context, branchID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, branchID)
	c.gen[branchID]++
	c.data = map[string][]byte{}
}

func TestDailySummaryCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newMapCache()
	f.summary.SetCache(cache, time.Minute)
	f.jobs.SetCache(cache)

	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")})
	first, err := f.summary.DailySummary(ctx, f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	key := services.SummaryCacheKey(f.branch.ID, cache.gen[f.branch.ID], f.now, f.now)
	if _, ok := cache.data[key]; !ok {
		t.Fatalf("summary not cached under %s", key)
	}
	cached, err := f.summary.DailySummary(ctx, f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if !cached.TotalSales.Equal(first.TotalSales) {
		t.Fatalf("cached total = %s, want %s", cached.TotalSales, first.TotalSales)
	}

	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Wax")})
	if len(cache.invalidated) != 2 || cache.invalidated[1] != f.branch.ID {
		t.Fatalf("invalidations = %v", cache.invalidated)
	}
	fresh, err := f.summary.DailySummary(ctx, f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if !fresh.TotalSales.Equal(dec("130")) {
		t.Fatalf("total after invalidation = %s, want 130", fresh.TotalSales)
	}
}

// commitDuringPayments commits a job once, after the line facts of a summary
// were read and before the summary is cached.
type commitDuringPayments struct {
	services.ReportStore
	once   sync.Once
	commit func()
}

func (c *commitDuringPayments) JobPayments(ctx context.Context, branchID int, from, to time.Time) ([]models.JobPayment, error) {
	c.once.Do(c.commit)
	return c.ReportStore.JobPayments(ctx, branchID, from, to)
}

func TestDailySummaryCacheIgnoresResultBuiltAcrossCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newMapCache()
	f.jobs.SetCache(cache)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")})

	reports := &commitDuringPayments{
		ReportStore: f.store.Reports(),
		commit: func() {
			f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Wax")})
		},
	}
	svc := services.NewSummaryService(reports, f.store.Branches(), nil)
	svc.SetCache(cache, time.Minute)

	if _, err := svc.DailySummary(ctx, f.branch, f.now, f.now); err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	got, err := svc.DailySummary(ctx, f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if !got.TotalSales.Equal(dec("130")) {
		t.Fatalf("total sales after both jobs committed = %s, want 130", got.TotalSales)
	}
}
