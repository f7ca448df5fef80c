package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yourusername/oddsedge/internal/bankroll"
)

var (
	fitStrengths bool
	outputFile   string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a snapshot once and print the recommendation as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := startingBalance()
		if err != nil {
			return err
		}
		_, appLog, advisor, err := setup()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if _, err := advisor.Refresh(ctx); err != nil {
			return err
		}
		now := time.Now()
		if fitStrengths {
			est, err := advisor.FitStrengths(now)
			if err != nil {
				return err
			}
			appLog.WithFields(logrus.Fields{
				"teams":          len(est.Teams),
				"home_advantage": est.HomeAdvantage,
				"fitted":         est.Fitted,
			}).Info("Strengths re-estimated")
		}

		state := bankroll.NewState(start, now)
		rec, err := advisor.Recommend(ctx, state)
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write recommendation: %w", err)
		}

		appLog.WithFields(logrus.Fields{
			"fixtures":  rec.Fixtures,
			"singles":   len(rec.Singles),
			"expresses": len(rec.Expresses),
			"systems":   len(rec.Systems),
			"failures":  len(rec.Failures),
		}).Info("Scan completed")
		return nil
	},
}
