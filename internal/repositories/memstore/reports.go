package memstore

import (
	"context"
	"sort"
	"time"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"
)

type reportStore struct{ s *Store }

func (r reportStore) LineFacts(_ context.Context, branchID int, from, to time.Time) ([]models.LineFact, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineFacts(branchID, from, to), nil
}

// lineFacts expects s.mu to be held.
func (s *Store) lineFacts(branchID int, from, to time.Time) []models.LineFact {
	var facts []models.LineFact
	for _, job := range s.jobsBetween(branchID, from, to) {
		for _, line := range job.Lines {
			facts = append(facts, models.LineFact{
				LineItemID:      line.ID,
				JobID:           job.ID,
				BranchID:        job.BranchID,
				JobCreatedAt:    job.CreatedAt,
				WasherID:        line.WasherID,
				WasherName:      line.WasherName,
				ServiceItemID:   line.ServiceItemID,
				ServiceItemName: line.ServiceItemName,
				Price:           line.Price,
			})
		}
	}
	return facts
}

func (r reportStore) JobPayments(_ context.Context, branchID int, from, to time.Time) ([]models.JobPayment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.JobPayment
	for _, job := range s.jobsBetween(branchID, from, to) {
		out = append(out, models.JobPayment{
			JobID:         job.ID,
			BranchID:      job.BranchID,
			CreatedAt:     job.CreatedAt,
			PaymentMethod: job.PaymentMethod,
			TotalAmount:   job.TotalAmount,
		})
	}
	return out, nil
}

func inDays(day, from, to time.Time) bool {
	k := dayKey(day)
	return k >= dayKey(from) && k <= dayKey(to)
}

func (r reportStore) WasherDays(_ context.Context, branchID int, from, to time.Time, washerID int) ([]*models.WasherDaySummary, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.WasherDaySummary
	for _, row := range s.washerDays {
		if row.BranchID != branchID || !inDays(row.SummaryDate, from, to) {
			continue
		}
		if washerID != 0 && row.WasherID != washerID {
			continue
		}
		cp := *row
		if w, ok := s.washers[row.WasherID]; ok {
			cp.WasherName = w.Name
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool {
		da, db := dayKey(out[a].SummaryDate), dayKey(out[b].SummaryDate)
		if da != db {
			return da < db
		}
		return fold(out[a].WasherName) < fold(out[b].WasherName)
	})
	return out, nil
}

func (r reportStore) BranchDays(_ context.Context, branchID int, from, to time.Time) ([]*models.BranchDaySummary, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.BranchDaySummary
	for _, row := range s.branchDays {
		if row.BranchID == branchID && inDays(row.SummaryDate, from, to) {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return dayKey(out[a].SummaryDate) < dayKey(out[b].SummaryDate) })
	return out, nil
}

// RebuildDay reads the facts and rewrites the rows under the store lock,
// which also serialises it against WithinTx.
func (r reportStore) RebuildDay(_ context.Context, branchID int, day time.Time, build services.DayBuilder) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("RebuildDay"); err != nil {
		return err
	}
	washers, branch := build(s.lineFacts(branchID, day, timeutil.EndOfDay(day)))

	k := dayKey(day)
	for key := range s.washerDays {
		if key.branchID == branchID && key.day == k {
			delete(s.washerDays, key)
		}
	}
	delete(s.branchDays, branchDayKey{branchID: branchID, day: k})

	now := s.now()
	for _, w := range washers {
		cp := *w
		cp.BranchID, cp.SummaryDate, cp.UpdatedAt = branchID, day, now
		s.washerDays[washerDayKey{washerID: w.WasherID, branchID: branchID, day: k}] = &cp
	}
	if branch != nil {
		cp := *branch
		cp.BranchID, cp.SummaryDate, cp.UpdatedAt = branchID, day, now
		s.branchDays[branchDayKey{branchID: branchID, day: k}] = &cp
	}
	return nil
}
