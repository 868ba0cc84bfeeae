package memstore

import (
	"context"
	"sort"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
)

type jobStore struct{ s *Store }

type snapshot struct {
	seq        int
	jobs       map[int]*models.WashJob
	washerDays map[washerDayKey]models.WasherDaySummary
	branchDays map[branchDayKey]models.BranchDaySummary
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		seq:        s.seq,
		jobs:       make(map[int]*models.WashJob, len(s.jobs)),
		washerDays: make(map[washerDayKey]models.WasherDaySummary, len(s.washerDays)),
		branchDays: make(map[branchDayKey]models.BranchDaySummary, len(s.branchDays)),
	}
	for id, j := range s.jobs {
		snap.jobs[id] = j
	}
	for k, v := range s.washerDays {
		snap.washerDays[k] = *v
	}
	for k, v := range s.branchDays {
		snap.branchDays[k] = *v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.seq = snap.seq
	s.jobs = snap.jobs
	s.washerDays = make(map[washerDayKey]*models.WasherDaySummary, len(snap.washerDays))
	for k, v := range snap.washerDays {
		row := v
		s.washerDays[k] = &row
	}
	s.branchDays = make(map[branchDayKey]*models.BranchDaySummary, len(snap.branchDays))
	for k, v := range snap.branchDays {
		row := v
		s.branchDays[k] = &row
	}
}

// WithinTx serialises transactions on the store lock.
func (j jobStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx services.JobTx) error) error {
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(ctx, &jobTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (j jobStore) Get(_ context.Context, branchID, id int) (*models.WashJob, error) {
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.BranchID != branchID {
		return nil, apperr.NotFound("job %d not found", id)
	}
	return cloneJob(job), nil
}

func (j jobStore) ListBetween(_ context.Context, branchID int, from, to time.Time) ([]*models.WashJob, error) {
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.WashJob, 0)
	for _, job := range s.jobsBetween(branchID, from, to) {
		out = append(out, cloneJob(job))
	}
	return out, nil
}

// jobsBetween returns the branch's jobs in [from, to] ordered by time then ID.
// Callers hold the lock.
func (s *Store) jobsBetween(branchID int, from, to time.Time) []*models.WashJob {
	var out []*models.WashJob
	for _, job := range s.jobs {
		if job.BranchID != branchID || job.CreatedAt.Before(from) || job.CreatedAt.After(to) {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func cloneJob(job *models.WashJob) *models.WashJob {
	cp := *job
	cp.Lines = make([]*models.LineItem, len(job.Lines))
	for i, line := range job.Lines {
		l := *line
		cp.Lines[i] = &l
	}
	cp.WasherIDs = append([]int(nil), job.WasherIDs...)
	return &cp
}

// jobTx runs with the store lock already held.
type jobTx struct{ s *Store }

func (t *jobTx) ActiveServiceItemsByNames(_ context.Context, names []string) ([]*models.ServiceItem, error) {
	if err := t.s.takeFailure("ActiveServiceItemsByNames"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[fold(n)] = true
	}
	var out []*models.ServiceItem
	for _, item := range t.s.items {
		if item.IsActive && want[fold(item.Name)] {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *jobTx) ActiveWashersByNames(_ context.Context, branchID int, names []string) ([]*models.Washer, error) {
	if err := t.s.takeFailure("ActiveWashersByNames"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[fold(n)] = true
	}
	var out []*models.Washer
	for _, w := range t.s.washers {
		if w.BranchID == branchID && w.IsActive && want[fold(w.Name)] {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *jobTx) ActiveWasherByName(ctx context.Context, branchID int, name string) (*models.Washer, error) {
	ws, err := t.ActiveWashersByNames(ctx, branchID, []string{name})
	if err != nil || len(ws) == 0 {
		return nil, err
	}
	return ws[0], nil
}

// LockBranchDay is a no-op: WithinTx already holds the store lock.
func (t *jobTx) LockBranchDay(context.Context, int, time.Time) error {
	return nil
}

func (t *jobTx) CarSeenBetween(_ context.Context, branchID int, plate string, from, to time.Time) (bool, error) {
	for _, job := range t.s.jobsBetween(branchID, from, to) {
		if job.CarPlate == plate {
			return true, nil
		}
	}
	return false, nil
}

func (t *jobTx) InsertJob(_ context.Context, job *models.WashJob) error {
	if err := t.s.takeFailure("InsertJob"); err != nil {
		return err
	}
	job.ID = t.s.nextID()
	for _, line := range job.Lines {
		line.ID = t.s.nextID()
		line.JobID = job.ID
	}
	t.s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (t *jobTx) IncrementWasherDay(_ context.Context, d models.WasherDayDelta) error {
	if err := t.s.takeFailure("IncrementWasherDay"); err != nil {
		return err
	}
	key := washerDayKey{washerID: d.WasherID, branchID: d.BranchID, day: dayKey(d.Day)}
	row, ok := t.s.washerDays[key]
	if !ok {
		row = &models.WasherDaySummary{WasherID: d.WasherID, BranchID: d.BranchID, SummaryDate: d.Day}
		t.s.washerDays[key] = row
	}
	row.TotalJobs += d.Jobs
	row.TotalItems += d.Items
	row.UpdatedAt = t.s.now()
	return nil
}

func (t *jobTx) IncrementBranchDay(_ context.Context, d models.BranchDayDelta) error {
	if err := t.s.takeFailure("IncrementBranchDay"); err != nil {
		return err
	}
	key := branchDayKey{branchID: d.BranchID, day: dayKey(d.Day)}
	row, ok := t.s.branchDays[key]
	if !ok {
		row = &models.BranchDaySummary{BranchID: d.BranchID, SummaryDate: d.Day}
		t.s.branchDays[key] = row
	}
	row.TotalJobs += d.Jobs
	row.TotalItems += d.Items
	row.UpdatedAt = t.s.now()
	return nil
}
