package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/models"
)

func TestCreateJobWorkedExample(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, &models.CreateJobRequest{
		Lines:         lines("Sam", "Engine Wash", "Sam", "Full Wash"),
		PaymentMethod: models.PaymentCash,
	})

	if !job.TotalAmount.Equal(dec("350")) {
		t.Fatalf("total = %s, want 350", job.TotalAmount)
	}
	if len(job.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(job.Lines))
	}
	if got := job.Lines[0].WasherName; got != "Idowu" {
		t.Fatalf("engine wash credited to %s, want Idowu", got)
	}
	if got := job.Lines[0].SubmittedWasher; got != "Sam" {
		t.Fatalf("submitted washer = %q, want Sam", got)
	}
	if got := job.Lines[1].WasherName; got != "Sam" {
		t.Fatalf("full wash credited to %s, want Sam", got)
	}
	if !job.Lines[0].Split.Company.Equal(dec("200")) || !job.Lines[0].Split.Washer.Equal(dec("100")) {
		t.Fatalf("engine wash split = %+v", job.Lines[0].Split)
	}
	if len(job.WasherIDs) != 2 {
		t.Fatalf("washer links = %v, want 2 washers", job.WasherIDs)
	}

	for _, name := range []string{"Idowu", "Sam"} {
		row := f.washerDay(t, name)
		if row == nil || row.TotalJobs != 1 || row.TotalItems != 1 {
			t.Fatalf("%s aggregate = %+v, want 1 job 1 item", name, row)
		}
	}
	if row := f.washerDay(t, "Musa"); row != nil {
		t.Fatalf("Musa should have no aggregate, got %+v", row)
	}
	if bd := f.branchDay(t); bd == nil || bd.TotalJobs != 1 || bd.TotalItems != 2 {
		t.Fatalf("branch aggregate = %+v, want 1 job 2 items", bd)
	}

	stored, err := f.jobs.GetJob(context.Background(), f.caller, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !stored.TotalAmount.Equal(job.TotalAmount) || len(stored.Lines) != 2 {
		t.Fatalf("stored job differs: %+v", stored)
	}
}

func TestCreateJobOneJobManyItemsPerWasher(t *testing.T) {
	f := newFixture(t)
	f.create(t, &models.CreateJobRequest{Lines: lines("Musa", "Full Wash", "musa ", "Wax")})

	row := f.washerDay(t, "Musa")
	if row == nil || row.TotalJobs != 1 || row.TotalItems != 2 {
		t.Fatalf("Musa aggregate = %+v, want 1 job 2 items", row)
	}

	f.create(t, &models.CreateJobRequest{Lines: lines("Musa", "Full Wash")})
	row = f.washerDay(t, "Musa")
	if row.TotalJobs != 2 || row.TotalItems != 3 {
		t.Fatalf("Musa aggregate after second job = %+v, want 2 jobs 3 items", row)
	}
	if bd := f.branchDay(t); bd.TotalJobs != 2 || bd.TotalItems != 3 {
		t.Fatalf("branch aggregate = %+v, want 2 jobs 3 items", bd)
	}
}

func TestCreateJobRugKeepsNamedWasher(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, &models.CreateJobRequest{Lines: lines("Musa", "Car Rug")})
	if job.Lines[0].WasherName != "Musa" {
		t.Fatalf("rug credited to %s, want Musa", job.Lines[0].WasherName)
	}
	if !job.Lines[0].Split.Company.Equal(dec("50")) || !job.Lines[0].Split.Washer.Equal(dec("50")) {
		t.Fatalf("rug split = %+v", job.Lines[0].Split)
	}
}

func TestCreateJobSpecialWithoutCreditWasherRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.Washers().SetActive(ctx, f.branch.ID, f.washers["Idowu"].ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := f.jobs.CreateJob(ctx, f.caller, &models.CreateJobRequest{
		Lines: lines("Sam", "Full Wash", "Sam", "Radiator Flush"),
	})
	if !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("err = %v, want policy violation", err)
	}
	if row := f.washerDay(t, "Sam"); row != nil {
		t.Fatalf("aggregate written despite rejection: %+v", row)
	}
	if bd := f.branchDay(t); bd != nil {
		t.Fatalf("branch aggregate written despite rejection: %+v", bd)
	}
	jobs, err := f.jobs.ListJobs(ctx, f.caller, f.now, f.now)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("jobs persisted despite rejection: %d", len(jobs))
	}
}

func TestCreateJobRejections(t *testing.T) {
	tests := []struct {
		name    string
		req     *models.CreateJobRequest
		kind    apperr.Kind
		detail  string
		missing []string
	}{
		{
			name: "no lines",
			req:  &models.CreateJobRequest{},
			kind: apperr.KindValidation,
		},
		{
			name: "bad payment method",
			req:  &models.CreateJobRequest{Lines: lines("Sam", "Full Wash"), PaymentMethod: "card"},
			kind: apperr.KindValidation,
		},
		{
			name:    "unknown service item",
			req:     &models.CreateJobRequest{Lines: lines("Sam", "Full Wash", "Sam", "Tyre Shine")},
			kind:    apperr.KindReference,
			detail:  "missing_service_items",
			missing: []string{"Tyre Shine"},
		},
		{
			name:    "inactive service item",
			req:     &models.CreateJobRequest{Lines: lines("Sam", "Retired Polish")},
			kind:    apperr.KindReference,
			detail:  "missing_service_items",
			missing: []string{"Retired Polish"},
		},
		{
			name:    "unknown washer",
			req:     &models.CreateJobRequest{Lines: lines("Ghost", "Full Wash")},
			kind:    apperr.KindReference,
			detail:  "missing_washers",
			missing: []string{"Ghost"},
		},
		{
			name:    "washer from another branch",
			req:     &models.CreateJobRequest{Lines: lines("Tunde", "Full Wash")},
			kind:    apperr.KindReference,
			detail:  "missing_washers",
			missing: []string{"Tunde"},
		},
		{
			name: "variable price without custom price",
			req:  &models.CreateJobRequest{Lines: lines("Sam", "Interior Detail")},
			kind: apperr.KindPolicy,
		},
		{
			name: "variable price checked before washers",
			req:  &models.CreateJobRequest{Lines: lines("Ghost", "Interior Detail")},
			kind: apperr.KindPolicy,
		},
		{
			name: "zero custom price",
			req: &models.CreateJobRequest{Lines: []models.JobLineRequest{
				{WasherName: "Sam", ServiceItemName: "Interior Detail", CustomPrice: decPtr("0")},
			}},
			kind: apperr.KindPolicy,
		},
		{
			name: "custom price below a cent",
			req: &models.CreateJobRequest{Lines: []models.JobLineRequest{
				{WasherName: "Sam", ServiceItemName: "Interior Detail", CustomPrice: decPtr("120.505")},
			}},
			kind: apperr.KindValidation,
		},
		{
			name:    "blank service item name",
			req:     &models.CreateJobRequest{Lines: lines("Sam", "   ")},
			kind:    apperr.KindValidation,
			detail:  "field",
			missing: []string{"lines[0].service_item_name"},
		},
		{
			name:    "blank washer name",
			req:     &models.CreateJobRequest{Lines: lines("Sam", "Full Wash", "  ", "Full Wash")},
			kind:    apperr.KindValidation,
			detail:  "field",
			missing: []string{"lines[1].washer_name"},
		},
		{
			name: "invalid phone",
			req:  &models.CreateJobRequest{Lines: lines("Sam", "Full Wash"), CustomerPhone: "12"},
			kind: apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.jobs.CreateJob(context.Background(), f.caller, tt.req)
			if !apperr.Is(err, tt.kind) {
				t.Fatalf("err = %v, want kind %s", err, tt.kind)
			}
			if tt.detail != "" {
				var ae *apperr.Error
				if !errors.As(err, &ae) {
					t.Fatalf("not an apperr: %v", err)
				}
				got, ok := ae.Details[tt.detail].([]string)
				if field, isField := ae.Details[tt.detail].(string); isField {
					got, ok = []string{field}, true
				}
				if !ok || len(got) != len(tt.missing) || got[0] != tt.missing[0] {
					t.Fatalf("details[%s] = %v, want %v", tt.detail, ae.Details[tt.detail], tt.missing)
				}
			}
			if bd := f.branchDay(t); bd != nil {
				t.Fatalf("aggregate written despite rejection: %+v", bd)
			}
		})
	}
}

func TestCreateJobVariablePrice(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, &models.CreateJobRequest{Lines: []models.JobLineRequest{
		{WasherName: "Sam", ServiceItemName: "interior detail", CustomPrice: decPtr("120.50")},
		// Custom price on a fixed-price item is ignored
		{WasherName: "Sam", ServiceItemName: "Full Wash", CustomPrice: decPtr("999")},
	}})
	if !job.Lines[0].Price.Equal(dec("120.50")) {
		t.Fatalf("variable price = %s, want 120.50", job.Lines[0].Price)
	}
	if !job.Lines[1].Price.Equal(dec("50")) {
		t.Fatalf("list price = %s, want 50", job.Lines[1].Price)
	}
	if !job.TotalAmount.Equal(dec("170.50")) {
		t.Fatalf("total = %s, want 170.50", job.TotalAmount)
	}
}

func TestCreateJobStoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("IncrementBranchDay", errors.New("connection reset"))

	_, err := f.jobs.CreateJob(context.Background(), f.caller, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")})
	if !apperr.Is(err, apperr.KindStore) {
		t.Fatalf("err = %v, want store error", err)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Message != "internal storage error" {
		t.Fatalf("store error leaks detail: %v", err)
	}
	if row := f.washerDay(t, "Sam"); row != nil {
		t.Fatalf("washer aggregate survived rollback: %+v", row)
	}
	jobs, _ := f.jobs.ListJobs(context.Background(), f.caller, f.now, f.now)
	if len(jobs) != 0 {
		t.Fatalf("job survived rollback")
	}
}

func TestCreateJobConcurrentSameWasher(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.jobs.CreateJob(context.Background(), f.caller, &models.CreateJobRequest{Lines: lines("Musa", "Full Wash")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}
	if row := f.washerDay(t, "Musa"); row == nil || row.TotalJobs != 2 || row.TotalItems != 2 {
		t.Fatalf("Musa aggregate = %+v, want 2 jobs", row)
	}
}

func TestCreateJobDuplicateCar(t *testing.T) {
	f := newFixture(t)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash"), CarPlate: "lag-123 ab"})

	_, err := f.jobs.CreateJob(context.Background(), f.caller, &models.CreateJobRequest{
		Lines: lines("Sam", "Full Wash"), CarPlate: "LAG123AB",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error for repeat car", err)
	}

	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash"), CarPlate: "LAG123AB", AllowRepeat: true})

	// Next day the plate is fresh again
	f.now = f.now.Add(24 * time.Hour)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash"), CarPlate: "LAG123AB"})
}

func TestCreateJobNormalisesPhone(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash"), CustomerPhone: "0803 123 4567"})
	if job.CustomerPhone != "+2348031234567" {
		t.Fatalf("phone = %q, want +2348031234567", job.CustomerPhone)
	}
}

func TestCreateJobBranchChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	noBranch := &models.Caller{User: f.caller.User}
	if _, err := f.jobs.CreateJob(ctx, noBranch, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("missing branch: err = %v", err)
	}

	inactive := *f.branch
	inactive.IsActive = false
	closed := &models.Caller{User: f.caller.User, Branch: &inactive}
	if _, err := f.jobs.CreateJob(ctx, closed, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("inactive branch: err = %v", err)
	}
}

func TestGetJobOtherBranchNotFound(t *testing.T) {
	f := newFixture(t)
	job := f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")})

	otherCaller := &models.Caller{User: f.caller.User, Branch: f.other}
	_, err := f.jobs.GetJob(context.Background(), otherCaller, job.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
