package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yourusername/oddsedge/internal/bankroll"
	"github.com/yourusername/oddsedge/internal/health"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/scheduler"
	"github.com/yourusername/oddsedge/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Rescan on a schedule, roll the bankroll over and serve health and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := startingBalance()
		if err != nil {
			return err
		}
		cfg, appLog, advisor, err := setup()
		if err != nil {
			return err
		}
		metrics.InitRegistry()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session := service.NewSession(advisor, bankroll.NewState(start, time.Now()), appLog)

		var server *health.Server
		if cfg.Metrics.Enabled {
			server = health.NewServer(health.Config{
				ServiceName:    cfg.App.Name,
				Version:        Version,
				Commit:         GitCommit,
				Port:           strconv.Itoa(cfg.Metrics.Port),
				MetricsPath:    cfg.Metrics.Path,
				MaxSnapshotAge: 3 * time.Duration(cfg.Scheduler.ScanIntervalSeconds) * time.Second,
				Logger:         appLog,
				Scanner:        session,
			})
			if err := server.Start(ctx); err != nil {
				return err
			}
		}

		if err := session.Rescan(ctx); err != nil {
			appLog.WithError(err).Error("Initial scan failed")
		}

		sched := scheduler.NewScheduler(appLog)
		if err := sched.Configure(cfg.Scheduler, session, session); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		if server != nil {
			server.SetReady(true)
		}

		appLog.WithFields(logrus.Fields{
			"input":    inputFile,
			"next_run": sched.NextRun().Format(time.RFC3339),
			"metrics":  cfg.Metrics.Enabled,
		}).Info("oddsedge serving")

		<-ctx.Done()
		appLog.Info("Shutdown signal received")

		if server != nil {
			server.SetReady(false)
		}
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Scheduler did not stop cleanly")
		}
		if server != nil {
			if err := server.Shutdown(); err != nil {
				appLog.WithError(err).Error("Health server did not stop cleanly")
			}
		}
		return nil
	},
}
