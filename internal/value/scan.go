package value

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
	"golang.org/x/sync/errgroup"
)

// Failure is a market that could not be evaluated during a scan
type Failure struct {
	FixtureID string
	Market    string
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("fixture %s market %s: %v", f.FixtureID, f.Market, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// ScanReport is the result of a parallel scan
type ScanReport struct {
	Fixtures int
	Signals  []models.Signal
	Failures []Failure
	Duration time.Duration
}

// Scan evaluates scheduled fixtures in parallel, bounded by the configured
// worker count. Per-market failures are isolated in the report; only
// cancellation of ctx fails the scan. Signals are ordered by descending edge.
func (e *Engine) Scan(ctx context.Context, snap *Snapshot) (*ScanReport, error) {
	start := time.Now()
	fixtures := snap.scheduled()
	quotes := snap.quotesByFixture()

	signals := make([][]models.Signal, len(fixtures))
	failures := make([][]Failure, len(fixtures))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, fixture := range fixtures {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			signals[i], failures[i] = e.FixtureSignals(fixture, quotes[fixture.ID], snap.External)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("value scan cancelled: %w", err)
	}

	report := &ScanReport{Fixtures: len(fixtures)}
	for i := range fixtures {
		report.Signals = append(report.Signals, signals[i]...)
		report.Failures = append(report.Failures, failures[i]...)
	}
	sort.SliceStable(report.Signals, func(i, j int) bool {
		return report.Signals[i].Edge > report.Signals[j].Edge
	})
	report.Duration = time.Since(start)

	metrics.RecordScanDuration(report.Duration.Seconds())
	e.logger.LogScanCompleted(report.Fixtures, len(report.Signals), len(report.Failures),
		float64(report.Duration.Milliseconds()))
	return report, nil
}
