package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"carwash-backend/internal/models"
	"carwash-backend/internal/policy"
	"carwash-backend/internal/repositories/memstore"
	"carwash-backend/internal/scheduler"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

type heldLocker struct{ calls int }

func (l *heldLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	l.calls++
	return nil, false, nil
}

type recordingLocker struct {
	names    []string
	released int
}

func (l *recordingLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(), bool, error) {
	l.names = append(l.names, name)
	return func() { l.released++ }, true, nil
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (a *fakeArchiver) ArchiveDay(_ context.Context, branch *models.Branch, day time.Time) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	key := "daily/" + branch.Code + "/" + timeutil.FormatDate(day) + ".pdf"
	a.keys = append(a.keys, key)
	return key, nil
}

// seed creates one branch with a committed job and then corrupts the stored
// washer counters for that day.
func seed(t *testing.T) (*memstore.Store, *models.Branch, time.Time) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, timeutil.Location)

	branch := &models.Branch{Name: "Lekki", Code: "LK", IsActive: true}
	if err := st.Branches().Create(ctx, branch); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	closed := &models.Branch{Name: "Old Yard", Code: "OY", IsActive: false}
	if err := st.Branches().Create(ctx, closed); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	sam := &models.Washer{BranchID: branch.ID, Name: "Sam", IsActive: true}
	if err := st.Washers().Create(ctx, sam); err != nil {
		t.Fatalf("create washer: %v", err)
	}
	if err := st.ServiceItems().Create(ctx, &models.ServiceItem{Name: "Full Wash", Price: decimal.NewFromInt(50), IsActive: true}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	clock := func() time.Time { return day.Add(9 * time.Hour) }
	jobs := services.NewJobService(st.Jobs(), policy.NewCreditPolicy(""), clock, nil)
	caller := &models.Caller{User: &models.User{ID: 1, Role: models.RoleAttendant}, Branch: branch}
	_, err := jobs.CreateJob(ctx, caller, &models.CreateJobRequest{
		Lines: []models.JobLineRequest{{WasherName: "Sam", ServiceItemName: "Full Wash"}},
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	bad := []*models.WasherDaySummary{{WasherID: sam.ID, TotalJobs: 4, TotalItems: 4}}
	corrupt := func([]models.LineFact) ([]*models.WasherDaySummary, *models.BranchDaySummary) {
		return bad, &models.BranchDaySummary{TotalJobs: 1, TotalItems: 1}
	}
	if err := st.Reports().RebuildDay(ctx, branch.ID, day, corrupt); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	return st, branch, day
}

func TestRunFor_RepairsAndArchivesActiveBranches(t *testing.T) {
	st, _, day := seed(t)
	locker := &recordingLocker{}
	archiver := &fakeArchiver{}
	n := scheduler.NewNightly(st.Branches(), services.NewReconcileService(st.Reports(), nil), archiver, locker, true, nil)

	results, err := n.RunFor(context.Background(), day.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("RunFor: %v", err)
	}
	if len(results) != 1 || results[0].BranchCode != "LK" {
		t.Fatalf("expected only the active branch, got %+v", results)
	}
	if !results[0].Report.Repaired {
		t.Fatalf("expected repair, got %+v", results[0].Report)
	}
	if results[0].ArchiveKey != "daily/LK/2024-03-14.pdf" {
		t.Fatalf("unexpected archive key %q", results[0].ArchiveKey)
	}
	if len(locker.names) != 1 || locker.names[0] != "nightly:2024-03-14" || locker.released != 1 {
		t.Fatalf("unexpected lock use %+v", locker)
	}

	// Second run finds the repaired day consistent.
	results, err = n.RunFor(context.Background(), day)
	if err != nil {
		t.Fatalf("RunFor: %v", err)
	}
	if !results[0].Report.Consistent || results[0].Report.Repaired {
		t.Fatalf("expected consistent day, got %+v", results[0].Report)
	}
}

func TestRunFor_CheckOnlyLeavesCounters(t *testing.T) {
	st, branch, day := seed(t)
	n := scheduler.NewNightly(st.Branches(), services.NewReconcileService(st.Reports(), nil), nil, nil, false, nil)

	results, err := n.RunFor(context.Background(), day)
	if err != nil {
		t.Fatalf("RunFor: %v", err)
	}
	if results[0].Report.Consistent || results[0].Report.Repaired {
		t.Fatalf("expected unrepaired mismatch, got %+v", results[0].Report)
	}
	rows, _ := st.Reports().WasherDays(context.Background(), branch.ID, day, day, 0)
	if len(rows) != 1 || rows[0].TotalJobs != 4 {
		t.Fatalf("expected counters untouched, got %+v", rows)
	}
}

func TestRunFor_SkipsWhenLockHeld(t *testing.T) {
	st, _, day := seed(t)
	locker := &heldLocker{}
	n := scheduler.NewNightly(st.Branches(), services.NewReconcileService(st.Reports(), nil), nil, locker, true, nil)

	results, err := n.RunFor(context.Background(), day)
	if err != nil || results != nil {
		t.Fatalf("expected silent skip, got %v, %v", results, err)
	}
	if locker.calls != 1 {
		t.Fatalf("expected one lock attempt, got %d", locker.calls)
	}
}

func TestRunFor_ArchiveFailureIsReported(t *testing.T) {
	st, _, day := seed(t)
	archiver := &fakeArchiver{err: errors.New("bucket unreachable")}
	n := scheduler.NewNightly(st.Branches(), services.NewReconcileService(st.Reports(), nil), archiver, nil, false, nil)

	results, err := n.RunFor(context.Background(), day)
	if err != nil {
		t.Fatalf("RunFor: %v", err)
	}
	if results[0].Err == nil {
		t.Fatalf("expected archive error in result")
	}
}
