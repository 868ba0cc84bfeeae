// Command carwashctl runs operator tasks against the car wash database:
// migrations, the first admin account, aggregate reconciliation and report
// archiving.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"carwash-backend/internal/app"
	"carwash-backend/internal/config"
	"carwash-backend/internal/logging"
	"carwash-backend/internal/models"
	"carwash-backend/internal/scheduler"
	"carwash-backend/internal/timeutil"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "carwashctl",
		Short:         "Operator tools for the car wash backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")

	root.AddCommand(migrateCmd(), seedAdminCmd(), reconcileCmd(), archiveCmd(), nightlyCmd(), resetActivityCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// open loads config and wires the application for one command.
func open(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, "text")
	return app.New(ctx, cfg, logger)
}

func migrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if status {
				list, err := a.MigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				for _, m := range list {
					state := "pending"
					if m.Applied {
						state = "applied " + m.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", m.Filename, state)
				}
				return nil
			}

			applied, err := a.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", applied)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "list migrations without applying them")
	return cmd
}

func seedAdminCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.UserService.SeedAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password (default $ADMIN_PASSWORD)")
	cmd.MarkFlagRequired("email")
	return cmd
}

// dayAndBranches parses --date (default yesterday) and resolves --branch-code
// (default every active branch).
func dayAndBranches(ctx context.Context, a *app.App, date, code string) (time.Time, []*models.Branch, error) {
	now := timeutil.Now()
	day := timeutil.StartOfDay(now).AddDate(0, 0, -1)
	if date != "" {
		d, err := timeutil.ParseDate(date, now)
		if err != nil {
			return time.Time{}, nil, err
		}
		day = d
	}

	if code != "" {
		branch, err := a.Branches.GetByCode(ctx, code)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("branch %s: %w", strings.ToUpper(code), err)
		}
		return day, []*models.Branch{branch}, nil
	}
	branches, err := a.Branches.List(ctx, true)
	return day, branches, err
}

func reconcileCmd() *cobra.Command {
	var date, code string
	var repair bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare (or rebuild) day aggregates against job lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			day, branches, err := dayAndBranches(ctx, a, date, code)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			inconsistent := 0
			for _, b := range branches {
				var report *models.ReconcileReport
				if repair {
					report, err = a.ReconcileService.Repair(ctx, b, day)
				} else {
					report, err = a.ReconcileService.Check(ctx, b, day)
				}
				if err != nil {
					return fmt.Errorf("branch %s: %w", b.Code, err)
				}
				switch {
				case report.Repaired:
					fmt.Fprintf(out, "%s %s: repaired\n", b.Code, report.Date)
				case report.Consistent:
					fmt.Fprintf(out, "%s %s: consistent\n", b.Code, report.Date)
				default:
					inconsistent++
					fmt.Fprintf(out, "%s %s: MISMATCH\n", b.Code, report.Date)
				}
			}
			if inconsistent > 0 {
				return fmt.Errorf("%d branch(es) inconsistent, rerun with --repair", inconsistent)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "business date YYYY-MM-DD (default yesterday)")
	cmd.Flags().StringVar(&code, "branch-code", "", "branch code (default all active branches)")
	cmd.Flags().BoolVar(&repair, "repair", false, "rebuild aggregates from job lines")
	return cmd
}

func archiveCmd() *cobra.Command {
	var date, code string
	cmd := &cobra.Command{
		Use:   "archive-report",
		Short: "Upload the daily summary PDF to the archive bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.ArchiveService.Enabled() {
				return fmt.Errorf("archive is not configured (archive.enabled, archive.bucket)")
			}
			day, branches, err := dayAndBranches(ctx, a, date, code)
			if err != nil {
				return err
			}
			for _, b := range branches {
				key, err := a.ArchiveService.ArchiveDay(ctx, b, day)
				if err != nil {
					return fmt.Errorf("branch %s: %w", b.Code, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", b.Code, key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "business date YYYY-MM-DD (default yesterday)")
	cmd.Flags().StringVar(&code, "branch-code", "", "branch code (default all active branches)")
	return cmd
}

// nightlyCmd runs the scheduled job once, under the same lock as the server.
func nightlyCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "nightly",
		Short: "Run the nightly reconcile and archive once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			day, _, err := dayAndBranches(ctx, a, date, "")
			if err != nil {
				return err
			}
			n := scheduler.NewNightly(a.Branches, a.ReconcileService, a.ArchiveService, a.Locker(), a.Config.Scheduler.Repair, a.Logger)
			results, err := n.RunFor(ctx, day)
			if err != nil {
				return err
			}
			if results == nil {
				a.Logger.Info("another replica holds the nightly lock")
				return nil
			}
			failed := 0
			for _, r := range results {
				entry := a.Logger.WithFields(logrus.Fields{"branch": r.BranchCode, "archive_key": r.ArchiveKey})
				if r.Err != nil {
					failed++
					entry.WithError(r.Err).Error("nightly branch failed")
					continue
				}
				entry.Info("nightly branch done")
			}
			if failed > 0 {
				return fmt.Errorf("%d branch(es) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "business date YYYY-MM-DD (default yesterday)")
	return cmd
}

// resetActivityCmd wipes jobs and aggregates from a test database.
func resetActivityCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-activity",
		Short: "Delete all jobs and daily aggregates (keeps branches, users, washers, catalogue)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete job data without --yes")
			}
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Reports.ResetActivity(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "jobs and daily aggregates cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
