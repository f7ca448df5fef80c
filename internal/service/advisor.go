// Package service wires the decision core into the operations exposed to
// the CLI and the long-running mode.
package service

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/bankroll"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/datasource"
	"github.com/yourusername/oddsedge/internal/ensemble"
	"github.com/yourusername/oddsedge/internal/fairodds"
	"github.com/yourusername/oddsedge/internal/models"
	"github.com/yourusername/oddsedge/internal/rating"
	"github.com/yourusername/oddsedge/internal/value"
)

// Advisor is the facade over ratings, fair odds, the ensemble, the value
// engine and bankroll management.
type Advisor struct {
	cfg       *config.Config
	logger    *logrus.Logger
	source    datasource.DataSource
	ratings   *rating.Store
	scoreline *rating.ScorelineModel
	fair      *fairodds.Extractor
	engine    *value.Engine
	express   *value.ExpressBuilder
	systems   *value.SystemBuilder
	movement  *value.MovementDetector
	bankroll  *bankroll.Manager

	mu        sync.RWMutex
	snapshot  *value.Snapshot
	movements []value.Movement
	results   []models.MatchResult
	applied   map[string]bool
	loadedAt  time.Time
}

// NewAdvisor builds every component from cfg. Invalid configuration fails here.
func NewAdvisor(cfg *config.Config, source datasource.DataSource, log *logrus.Logger) (*Advisor, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	ratings, err := rating.NewStore(cfg.Rating, log)
	if err != nil {
		return nil, err
	}
	scoreline, err := rating.NewScorelineModel(cfg.Scoreline)
	if err != nil {
		return nil, err
	}
	fair, err := fairodds.NewExtractor(cfg.FairOdds, log)
	if err != nil {
		return nil, err
	}
	ens, err := ensemble.New(cfg.Ensemble)
	if err != nil {
		return nil, err
	}
	engine, err := value.NewEngine(cfg.Value, ratings, scoreline, fair, ens, log)
	if err != nil {
		return nil, err
	}
	express, err := value.NewExpressBuilder(cfg.Express, cfg.Value.MinValueEdge, log)
	if err != nil {
		return nil, err
	}
	systems, err := value.NewSystemBuilder(cfg.System, express, log)
	if err != nil {
		return nil, err
	}
	movement, err := value.NewMovementDetector(cfg.Value, log)
	if err != nil {
		return nil, err
	}
	manager, err := bankroll.NewManager(cfg.Bankroll, log)
	if err != nil {
		return nil, err
	}

	return &Advisor{
		cfg:       cfg,
		logger:    log,
		source:    source,
		ratings:   ratings,
		scoreline: scoreline,
		fair:      fair,
		engine:    engine,
		express:   express,
		systems:   systems,
		movement:  movement,
		bankroll:  manager,
		snapshot:  &value.Snapshot{},
		applied:   make(map[string]bool),
	}, nil
}

// Ratings returns the shared team rating state.
func (a *Advisor) Ratings() *rating.Store { return a.ratings }

// Bankroll returns the bankroll manager.
func (a *Advisor) Bankroll() *bankroll.Manager { return a.bankroll }

// SetClock fixes the time source of the engine and the bankroll manager.
func (a *Advisor) SetClock(now func() time.Time) {
	a.engine.SetClock(now)
	a.bankroll.SetClock(now)
}

// Refresh loads the data source, registers its teams and applies results
// not seen before. It then records line movements against the previous
// snapshot, replaces the snapshot and drops memoised consensus prices.
func (a *Advisor) Refresh(ctx context.Context) (*datasource.Feed, error) {
	if a.source == nil {
		return nil, fmt.Errorf("refresh: no data source configured")
	}
	feed, err := a.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh from %s: %w", a.source.Name(), err)
	}
	external, err := feed.ExternalDistributions()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, team := range feed.Teams {
		if _, err := a.ratings.Team(team.ID); err == nil {
			continue
		}
		if err := a.ratings.Put(team); err != nil {
			return nil, err
		}
	}

	fresh := make([]models.MatchResult, 0, len(feed.Results))
	for _, result := range feed.Results {
		key := resultKey(result)
		if a.applied[key] {
			continue
		}
		a.applied[key] = true
		fresh = append(fresh, result)
	}
	if err := a.ratings.ApplyResults(fresh); err != nil {
		return nil, err
	}
	a.results = append(a.results, fresh...)

	quotes := feed.QuoteSets()
	if !a.loadedAt.IsZero() {
		a.movements = a.movement.Detect(a.snapshot.Quotes, quotes)
	}
	a.snapshot = &value.Snapshot{
		Fixtures: feed.Fixtures,
		Quotes:   quotes,
		External: value.ExternalScores(external),
	}
	a.loadedAt = feed.LoadedAt
	hits, misses := a.fair.ResetConsensus()

	a.logger.WithFields(logrus.Fields{
		"source":           a.source.Name(),
		"fixtures":         len(feed.Fixtures),
		"quote_sets":       len(feed.Quotes),
		"new_results":      len(fresh),
		"total_results":    len(a.results),
		"line_movements":   len(a.movements),
		"consensus_hits":   hits,
		"consensus_misses": misses,
	}).Info("Snapshot refreshed")

	return feed, nil
}

func resultKey(r models.MatchResult) string {
	if r.FixtureID != "" {
		return r.FixtureID
	}
	return fmt.Sprintf("%s|%s|%s", r.HomeTeam, r.AwayTeam, r.PlayedAt.UTC().Format(time.RFC3339))
}

// FitStrengths re-estimates attack and defence from every result seen so
// far, weighted by age at asOf. A measured home advantage replaces the
// scoreline model's, since fitted attack carries the away goal rate.
func (a *Advisor) FitStrengths(asOf time.Time) (rating.Estimate, error) {
	a.mu.RLock()
	results := append([]models.MatchResult(nil), a.results...)
	a.mu.RUnlock()

	est := rating.EstimateStrengths(results, asOf, a.cfg.Rating.TimeDecayXi)
	if est.Fitted {
		if err := a.scoreline.SetHomeAdvantage(est.HomeAdvantage); err != nil {
			return est, err
		}
	}
	a.ratings.ApplyStrengths(est)
	return est, nil
}

// Preview returns the scoreline model's view of a fixture.
func (a *Advisor) Preview(fixture models.Fixture) (rating.Preview, error) {
	home, away, err := a.ratings.Pair(fixture.HomeTeam, fixture.AwayTeam)
	if err != nil {
		return rating.Preview{}, err
	}
	return a.scoreline.Preview(home, away, previewScores)
}

// previewScores is how many scorelines a preview lists
const previewScores = 3

// Movements returns the line movements found by the last refresh.
func (a *Advisor) Movements() []value.Movement {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.movements
}

// Snapshot returns the current snapshot and when it was loaded.
func (a *Advisor) Snapshot() (*value.Snapshot, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot, a.loadedAt
}

// Evaluate returns the blended distribution for one fixture and market.
func (a *Advisor) Evaluate(fixture models.Fixture, market models.Market, quotes []models.QuoteSet) (models.Distribution, error) {
	a.mu.RLock()
	external := a.snapshot.External
	a.mu.RUnlock()

	eval, err := a.engine.Evaluate(fixture, market, quotes, external)
	if err != nil {
		return models.Distribution{}, err
	}
	return eval.Blend.Distribution, nil
}

// FindSignals lazily yields the value signals of snap, one pass per range.
func (a *Advisor) FindSignals(snap *value.Snapshot) iter.Seq[models.Signal] {
	return a.engine.Signals(snap)
}

// Scan evaluates the current snapshot in parallel.
func (a *Advisor) Scan(ctx context.Context) (*value.ScanReport, error) {
	snap, _ := a.Snapshot()
	return a.engine.Scan(ctx, snap)
}

// BuildExpresses assembles correlation-discounted accumulators.
func (a *Advisor) BuildExpresses(signals []models.Signal) []models.ExpressCombo {
	return a.express.Build(signals)
}

// BuildSystems assembles system bets from the best legs.
func (a *Advisor) BuildSystems(signals []models.Signal) []models.SystemBet {
	return a.systems.Build(signals)
}

// Size sizes a single-leg stake against state.
func (a *Advisor) Size(state *bankroll.State, signal models.Signal) (bankroll.Stake, error) {
	return a.bankroll.Size(state, signal)
}

// SizeExpress sizes an accumulator stake against state.
func (a *Advisor) SizeExpress(state *bankroll.State, combo models.ExpressCombo) (bankroll.Stake, error) {
	return a.bankroll.SizeExpress(state, combo)
}

// SizeSystem sizes a system bet against state.
func (a *Advisor) SizeSystem(state *bankroll.State, system models.SystemBet) (bankroll.Stake, error) {
	return a.bankroll.SizeSystem(state, system)
}

// Place reserves a stake against state until it settles.
func (a *Advisor) Place(state *bankroll.State, stake bankroll.Stake) error {
	return a.bankroll.Place(state, stake)
}

// Settle books a graded bet against state.
func (a *Advisor) Settle(state *bankroll.State, settlement bankroll.Settlement) (bankroll.Stats, error) {
	return a.bankroll.Settle(state, settlement)
}
