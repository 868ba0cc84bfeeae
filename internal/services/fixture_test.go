package services_test

import (
	"context"
	"testing"
	"time"

	"carwash-backend/internal/models"
	"carwash-backend/internal/policy"
	"carwash-backend/internal/repositories/memstore"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

type fixture struct {
	store   *memstore.Store
	jobs    *services.JobService
	summary *services.SummaryService
	branch  *models.Branch
	other   *models.Branch
	caller  *models.Caller
	washers map[string]*models.Washer
	now     time.Time
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// newFixture seeds two branches, a shared catalogue and washers, with the
// clock fixed at 10:00 on 2024-03-15 business time.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	f := &fixture{
		store:   st,
		washers: make(map[string]*models.Washer),
		now:     time.Date(2024, 3, 15, 10, 0, 0, 0, timeutil.Location),
	}

	f.branch = &models.Branch{Name: "Lekki", Code: "LK", IsActive: true}
	if err := st.Branches().Create(ctx, f.branch); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	f.other = &models.Branch{Name: "Ikeja", Code: "IK", IsActive: true}
	if err := st.Branches().Create(ctx, f.other); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	for _, it := range []struct {
		name  string
		price string
	}{
		{"Full Wash", "50"},
		{"Engine Wash", "300"},
		{"Car Rug", "100"},
		{"Radiator Flush", "100"},
		{"Interior Detail", "0"},
		{"Wax", "80"},
	} {
		item := &models.ServiceItem{Name: it.name, Price: dec(it.price), IsActive: true}
		if err := st.ServiceItems().Create(ctx, item); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}
	retired := &models.ServiceItem{Name: "Retired Polish", Price: dec("40"), IsActive: false}
	if err := st.ServiceItems().Create(ctx, retired); err != nil {
		t.Fatalf("create item: %v", err)
	}

	for _, name := range []string{"Idowu", "Sam", "Musa"} {
		w := &models.Washer{BranchID: f.branch.ID, Name: name, IsActive: true}
		if err := st.Washers().Create(ctx, w); err != nil {
			t.Fatalf("create washer: %v", err)
		}
		f.washers[name] = w
	}
	// Same name in another branch must never be credited for f.branch jobs.
	if err := st.Washers().Create(ctx, &models.Washer{BranchID: f.other.ID, Name: "Tunde", IsActive: true}); err != nil {
		t.Fatalf("create washer: %v", err)
	}

	user := &models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleAttendant, BranchID: &f.branch.ID, IsActive: true}
	if err := st.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.caller = &models.Caller{User: user, Branch: f.branch}

	clock := func() time.Time { return f.now }
	f.jobs = services.NewJobService(st.Jobs(), policy.NewCreditPolicy(""), clock, nil)
	f.summary = services.NewSummaryService(st.Reports(), st.Branches(), nil)
	return f
}

func (f *fixture) create(t *testing.T, req *models.CreateJobRequest) *models.WashJob {
	t.Helper()
	job, err := f.jobs.CreateJob(context.Background(), f.caller, req)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job
}

func lines(pairs ...string) []models.JobLineRequest {
	out := make([]models.JobLineRequest, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.JobLineRequest{WasherName: pairs[i], ServiceItemName: pairs[i+1]})
	}
	return out
}

func (f *fixture) washerDay(t *testing.T, name string) *models.WasherDaySummary {
	t.Helper()
	day := timeutil.StartOfDay(f.now)
	rows, err := f.store.Reports().WasherDays(context.Background(), f.branch.ID, day, day, f.washers[name].ID)
	if err != nil {
		t.Fatalf("WasherDays: %v", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func (f *fixture) branchDay(t *testing.T) *models.BranchDaySummary {
	t.Helper()
	day := timeutil.StartOfDay(f.now)
	rows, err := f.store.Reports().BranchDays(context.Background(), f.branch.ID, day, day)
	if err != nil {
		t.Fatalf("BranchDays: %v", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
