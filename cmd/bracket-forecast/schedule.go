package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/bracket-forecast/internal/forecast"
	"github.com/yourusername/bracket-forecast/internal/health"
	"github.com/yourusername/bracket-forecast/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var (
		cronExpr string
		runNow   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the retraining daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cronExpr == "" {
				cronExpr = cfg.Schedule.RetrainCron
			}
			if len(cfg.Training.Seasons) == 0 {
				return fmt.Errorf("training.seasons must list the seasons to retrain on")
			}

			s, err := settings()
			if err != nil {
				return err
			}
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			repos, db, closeRepos, err := openRepositories(ctx)
			if err != nil {
				return err
			}
			defer closeRepos()

			sched := scheduler.NewScheduler(forecast.NewTrainer(store, s, log), repos.Artifact, scheduler.Options{
				Seasons:     cfg.Training.Seasons,
				ArtifactDir: cfg.Schedule.ArtifactDir,
				Activate:    cfg.Schedule.Activate,
			}, log)
			if _, err := sched.ScheduleRetrain(cronExpr); err != nil {
				return err
			}

			status := health.NewServer(health.Config{
				ServiceName: cfg.App.Name,
				Version:     Version,
				Port:        cfg.Metrics.Port,
				MetricsPath: cfg.Metrics.Path,
				Logger:      log,
			})
			status.AddCheck("scheduler", health.CheckFunc(func(context.Context) error {
				if !sched.IsRunning() {
					return fmt.Errorf("scheduler is not running")
				}
				_, _, lastErr := sched.LastRun()
				return lastErr
			}))
			if db != nil {
				status.AddCheck("database", health.CheckFunc(db.HealthCheck))
			}
			if cfg.Metrics.Enabled {
				if err := status.Start(ctx); err != nil {
					return err
				}
			}

			if runNow {
				if _, err := sched.RunOnce(ctx); err != nil {
					log.WithError(err).Error("Initial retraining failed")
				}
			}

			if err := sched.Start(); err != nil {
				return err
			}
			status.SetReady(true)
			log.WithFields(logrus.Fields{
				"cron":     cronExpr,
				"next_run": sched.GetNextRun(),
			}).Info("Retraining daemon running")

			<-ctx.Done()
			status.SetReady(false)
			return sched.Stop()
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression; defaults to schedule.retrain_cron")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Retrain once before waiting for the schedule")
	return cmd
}
