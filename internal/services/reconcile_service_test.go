package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"
)

func TestReconcileConsistentAfterIngest(t *testing.T) {
	f := newFixture(t)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Engine Wash", "Sam", "Full Wash")})
	f.create(t, &models.CreateJobRequest{Lines: lines("Musa", "Full Wash", "Musa", "Wax", "Sam", "Car Rug")})

	svc := services.NewReconcileService(f.store.Reports(), nil)
	report, err := svc.Check(context.Background(), f.branch, f.now)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("fresh aggregates reported inconsistent: %+v", report)
	}
	if report.Branch.ExpectedJobs != 2 || report.Branch.ExpectedItems != 5 {
		t.Fatalf("branch expectation = %+v", report.Branch)
	}
}

func TestReconcileRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash", "Musa", "Wax")})

	// Corrupt the stored counters: Sam doubled, Musa missing, a stray Idowu row.
	day := timeutil.StartOfDay(f.now)
	err := f.store.Reports().RebuildDay(ctx, f.branch.ID, day, fixedDay(
		[]*models.WasherDaySummary{
			{WasherID: f.washers["Sam"].ID, TotalJobs: 2, TotalItems: 2},
			{WasherID: f.washers["Idowu"].ID, TotalJobs: 1, TotalItems: 1},
		},
		&models.BranchDaySummary{TotalJobs: 3, TotalItems: 3},
	))
	if err != nil {
		t.Fatalf("RebuildDay: %v", err)
	}

	svc := services.NewReconcileService(f.store.Reports(), nil)
	report, err := svc.Check(ctx, f.branch, f.now)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Consistent || len(report.Washers) != 3 || report.Branch.Matches() {
		t.Fatalf("corruption not detected: %+v", report)
	}

	repaired, err := svc.Repair(ctx, f.branch, f.now)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !repaired.Repaired {
		t.Fatalf("expected repair to run")
	}

	after, err := svc.Check(ctx, f.branch, f.now)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !after.Consistent {
		t.Fatalf("still inconsistent after repair: %+v", after)
	}
	if row := f.washerDay(t, "Idowu"); row != nil {
		t.Fatalf("stale Idowu row kept: %+v", row)
	}
	if row := f.washerDay(t, "Musa"); row == nil || row.TotalJobs != 1 || row.TotalItems != 1 {
		t.Fatalf("Musa row = %+v", row)
	}

	again, err := svc.Repair(ctx, f.branch, f.now)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if again.Repaired {
		t.Fatalf("repair of a consistent day should be a no-op")
	}

	// Aggregates keep growing normally after a repair
	f.create(t, &models.CreateJobRequest{Lines: lines("Musa", "Full Wash")})
	if row := f.washerDay(t, "Musa"); row.TotalJobs != 2 {
		t.Fatalf("Musa jobs after repair = %d, want 2", row.TotalJobs)
	}
}

// fixedDay ignores the facts and writes the given rows.
func fixedDay(washers []*models.WasherDaySummary, branch *models.BranchDaySummary) services.DayBuilder {
	return func([]models.LineFact) ([]*models.WasherDaySummary, *models.BranchDaySummary) {
		return washers, branch
	}
}

// commitDuringCheck runs commit once, while Repair is reading the stored
// counters and before it rewrites them.
type commitDuringCheck struct {
	services.ReportStore
	once   sync.Once
	commit func()
}

func (c *commitDuringCheck) BranchDays(ctx context.Context, branchID int, from, to time.Time) ([]*models.BranchDaySummary, error) {
	c.once.Do(c.commit)
	return c.ReportStore.BranchDays(ctx, branchID, from, to)
}

func TestReconcileRepairKeepsJobCommittedMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")})

	day := timeutil.StartOfDay(f.now)
	err := f.store.Reports().RebuildDay(ctx, f.branch.ID, day, fixedDay(
		[]*models.WasherDaySummary{{WasherID: f.washers["Sam"].ID, TotalJobs: 5, TotalItems: 5}},
		&models.BranchDaySummary{TotalJobs: 5, TotalItems: 5},
	))
	if err != nil {
		t.Fatalf("RebuildDay: %v", err)
	}

	reports := &commitDuringCheck{
		ReportStore: f.store.Reports(),
		commit: func() {
			f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Wax")})
		},
	}
	svc := services.NewReconcileService(reports, nil)
	report, err := svc.Repair(ctx, f.branch, f.now)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !report.Repaired {
		t.Fatalf("expected repair to run")
	}

	if row := f.washerDay(t, "Sam"); row == nil || row.TotalJobs != 2 || row.TotalItems != 2 {
		t.Fatalf("Sam row after repair = %+v, want 2/2", row)
	}
	if bd := f.branchDay(t); bd == nil || bd.TotalJobs != 2 || bd.TotalItems != 2 {
		t.Fatalf("branch row after repair = %+v, want 2/2", bd)
	}
	after, err := services.NewReconcileService(f.store.Reports(), nil).Check(ctx, f.branch, f.now)
	if err != nil || !after.Consistent {
		t.Fatalf("inconsistent after repair: %+v (%v)", after, err)
	}
}
