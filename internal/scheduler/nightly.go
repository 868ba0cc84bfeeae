// Package scheduler runs the nightly aggregate check and report archive.
package scheduler

import (
	"context"
	"time"

	"carwash-backend/internal/logging"
	"carwash-backend/internal/models"
	"carwash-backend/internal/timeutil"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

const lockTTL = 30 * time.Minute

type BranchLister interface {
	List(ctx context.Context, activeOnly bool) ([]*models.Branch, error)
}

type DayReconciler interface {
	Check(ctx context.Context, branch *models.Branch, day time.Time) (*models.ReconcileReport, error)
	Repair(ctx context.Context, branch *models.Branch, day time.Time) (*models.ReconcileReport, error)
}

type DayArchiver interface {
	ArchiveDay(ctx context.Context, branch *models.Branch, day time.Time) (string, error)
}

// Locker grants a named lock to one replica at a time.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// BranchResult is the outcome of one branch in a nightly run
type BranchResult struct {
	BranchCode string
	Report     *models.ReconcileReport
	ArchiveKey string
	Err        error
}

type Nightly struct {
	Branches   BranchLister
	Reconciler DayReconciler
	Archiver   DayArchiver // optional
	Locker     Locker
	Repair     bool
	Logger     *logrus.Logger

	clock func() time.Time
}

func NewNightly(branches BranchLister, reconciler DayReconciler, archiver DayArchiver, locker Locker, repair bool, logger *logrus.Logger) *Nightly {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Nightly{
		Branches:   branches,
		Reconciler: reconciler,
		Archiver:   archiver,
		Locker:     locker,
		Repair:     repair,
		Logger:     logger,
		clock:      timeutil.Now,
	}
}

// Start schedules RunFor(yesterday) daily at "HH:MM" business time.
func (n *Nightly) Start(ctx context.Context, at string) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(timeutil.Location)
	_, err := s.Every(1).Day().At(at).Do(func() {
		yesterday := timeutil.StartOfDay(n.clock()).AddDate(0, 0, -1)
		if _, err := n.RunFor(ctx, yesterday); err != nil {
			logging.LogError(n.Logger, "Scheduler", "Nightly", "nightly run", timeutil.FormatDate(yesterday), err)
		}
	})
	if err != nil {
		return nil, err
	}
	s.StartAsync()
	n.Logger.WithField("at", at).Info("nightly job scheduled")
	return s, nil
}

// RunFor reconciles and archives every active branch for day. It returns
// nil results when another replica holds the lock. Per-branch failures are
// logged and reported, not returned.
func (n *Nightly) RunFor(ctx context.Context, day time.Time) ([]BranchResult, error) {
	day = timeutil.StartOfDay(day)
	date := timeutil.FormatDate(day)

	if n.Locker != nil {
		release, ok, err := n.Locker.TryLock(ctx, "nightly:"+date, lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			n.Logger.WithField("date", date).Info("nightly run held by another instance, skipping")
			return nil, nil
		}
		defer release()
	}

	branches, err := n.Branches.List(ctx, true)
	if err != nil {
		return nil, err
	}

	results := make([]BranchResult, 0, len(branches))
	for _, b := range branches {
		res := BranchResult{BranchCode: b.Code}

		if n.Repair {
			res.Report, res.Err = n.Reconciler.Repair(ctx, b, day)
		} else {
			res.Report, res.Err = n.Reconciler.Check(ctx, b, day)
		}

		if res.Err == nil && n.Archiver != nil {
			res.ArchiveKey, res.Err = n.Archiver.ArchiveDay(ctx, b, day)
		}

		entry := n.Logger.WithFields(logrus.Fields{"branch": b.Code, "date": date})
		switch {
		case res.Err != nil:
			logging.LogError(n.Logger, "Scheduler", "RunFor", "branch "+b.Code, date, res.Err)
		case !res.Report.Consistent:
			entry.WithField("repaired", res.Report.Repaired).Warn("aggregates inconsistent")
		default:
			entry.Info("nightly check ok")
		}
		results = append(results, res)
	}
	return results, nil
}
