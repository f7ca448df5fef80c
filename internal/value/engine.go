package value

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/ensemble"
	"github.com/yourusername/oddsedge/internal/fairodds"
	"github.com/yourusername/oddsedge/internal/logger"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
	"github.com/yourusername/oddsedge/internal/rating"
)

// Gates a candidate can fail, in evaluation order
const (
	GateNoPrice       = "no_price"
	GateMinBookmakers = "min_bookmakers"
	GateOddsRange     = "odds_range"
	GateMinEdge       = "min_edge"
	GateMaxEdge       = "max_edge"
	GateConfirmation  = "confirmation"
	GateSharpVeto     = "sharp_veto"
)

// Evaluation is the priced view of one market for one fixture
type Evaluation struct {
	Fixture models.Fixture
	Market  models.Market
	Blend   *ensemble.Blend
}

// Engine turns fixtures and quotes into value signals.
type Engine struct {
	cfg       config.ValueConfig
	markets   []models.Market
	ratings   *rating.Store
	scoreline *rating.ScorelineModel
	fair      *fairodds.Extractor
	ensemble  *ensemble.Ensemble
	logger    *logger.SignalLogger
	now       func() time.Time
}

// NewEngine creates a value engine over shared rating state.
func NewEngine(
	cfg config.ValueConfig,
	ratings *rating.Store,
	scoreline *rating.ScorelineModel,
	fair *fairodds.Extractor,
	ens *ensemble.Ensemble,
	log *logrus.Logger,
) (*Engine, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	markets := make([]models.Market, 0, len(cfg.Markets))
	for _, key := range cfg.Markets {
		m, err := models.ParseMarket(key)
		if err != nil {
			return nil, models.NewConfigurationError(err.Error())
		}
		markets = append(markets, m)
	}
	return &Engine{
		cfg:       cfg,
		markets:   markets,
		ratings:   ratings,
		scoreline: scoreline,
		fair:      fair,
		ensemble:  ens,
		logger:    logger.NewSignalLogger(log),
		now:       time.Now,
	}, nil
}

// SetClock replaces the signal timestamp source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Markets returns the scanned markets.
func (e *Engine) Markets() []models.Market {
	return e.markets
}

// Evaluate blends every available model for one market of one fixture.
// Degenerate ratings fail with a RatingStateError and unusable quotes with
// a QuoteSetError.
func (e *Engine) Evaluate(fixture models.Fixture, market models.Market, quotes []models.QuoteSet, external ExternalSource) (*Evaluation, error) {
	home, away, err := e.ratings.Pair(fixture.HomeTeam, fixture.AwayTeam)
	if err != nil {
		return nil, &models.RatingStateError{
			HomeTeam: fixture.HomeTeam,
			AwayTeam: fixture.AwayTeam,
			Reason:   err.Error(),
		}
	}

	inputs := ensemble.Inputs{}
	inputs[ensemble.SlotDixonColes], err = e.scoreline.Distribution(home, away, market)
	if err != nil {
		return nil, err
	}
	if market.Type == models.MarketMatchResult {
		if inputs[ensemble.SlotElo], err = e.ratings.Elo().Distribution(home, away); err != nil {
			return nil, err
		}
	}
	if inputs[ensemble.SlotMarket], err = e.fair.Consensus(fixture.ID, market, quotes); err != nil {
		return nil, err
	}
	if external != nil {
		if dist, ok := external.Calibrated(fixture.ID, market); ok {
			inputs[ensemble.SlotExternal] = dist
		}
	}

	blend, err := e.ensemble.Combine(market, inputs)
	if err != nil {
		return nil, fmt.Errorf("fixture %s market %s: %w", fixture.ID, market, err)
	}
	return &Evaluation{Fixture: fixture, Market: market, Blend: blend}, nil
}

// confirmingSlots are the component models whose agreement is required
var confirmingSlots = []ensemble.Slot{ensemble.SlotDixonColes, ensemble.SlotElo, ensemble.SlotMarket}

// Candidates applies every gate to each outcome of an evaluation and returns
// the surviving signals.
func (e *Engine) Candidates(eval *Evaluation, quotes []models.QuoteSet) []models.Signal {
	prices := bestPrices(eval.Market, quotes, "")
	sharp, hasSharp := bookQuote(eval.Market, e.cfg.SharpBook, quotes)
	var softPrices map[models.Outcome]BestPrice
	hasSharp = hasSharp && e.cfg.SharpBook != ""
	if hasSharp {
		softPrices = bestPrices(eval.Market, quotes, e.cfg.SharpBook)
	}

	var out []models.Signal
	for _, outcome := range eval.Market.Outcomes() {
		best, ok := prices[outcome]
		p := eval.Blend.Prob(outcome)
		edge := models.Edge(p, best.Odds)

		gate := ""
		switch {
		case !ok:
			gate = GateNoPrice
		case best.Books < e.cfg.MinBookmakers:
			gate = GateMinBookmakers
		case best.Odds < e.cfg.MinOdds || best.Odds > e.cfg.MaxOdds:
			gate = GateOddsRange
		case edge < e.cfg.MinValueEdge:
			gate = GateMinEdge
		case edge > e.cfg.MaxValueEdge:
			gate = GateMaxEdge
		}
		if gate != "" {
			e.reject(eval, outcome, gate, edge)
			continue
		}

		confirmations := e.confirmations(eval.Blend, outcome, best.Odds)
		if confirmations < e.cfg.MinConfirmations {
			e.reject(eval, outcome, GateConfirmation, edge)
			continue
		}

		sharpConfirmed := false
		if hasSharp {
			q, quoted := sharp.Quotes[outcome]
			soft, softQuoted := softPrices[outcome]
			if quoted && softQuoted {
				gap := SharpGap(q.Odds, soft.Odds)
				if gap < -e.cfg.SharpGap {
					metrics.RecordRejection(GateSharpVeto)
					e.logger.LogSharpVeto(eval.Fixture.ID, eval.Market.Key(), string(outcome), sharp.Bookmaker, gap)
					continue
				}
				sharpConfirmed = gap > e.cfg.SharpGap
			}
		}

		confidence := models.ConfidenceUnconfirmed
		if edge >= e.cfg.MinConfirmedEdge || sharpConfirmed {
			confidence = models.ConfidenceConfirmed
		}

		signal := models.Signal{
			ID:             uuid.New(),
			FixtureID:      eval.Fixture.ID,
			League:         eval.Fixture.League,
			Kickoff:        eval.Fixture.Kickoff,
			Market:         eval.Market,
			Outcome:        outcome,
			Probability:    p,
			Odds:           best.Odds,
			Bookmaker:      best.Bookmaker,
			Edge:           edge,
			Confidence:     confidence,
			Confirmations:  confirmations,
			SharpConfirmed: sharpConfirmed,
			Degraded:       eval.Blend.Degraded(),
			CreatedAt:      e.now().UTC(),
		}
		metrics.RecordSignal(eval.Market.Key(), string(confidence), edge)
		e.logger.LogSignalEmitted(signal.FixtureID, signal.Market.Key(), string(outcome), signal.Bookmaker,
			string(confidence), p, best.Odds, edge, confirmations, sharpConfirmed)
		out = append(out, signal)
	}
	return out
}

// SharpGap is the sharp book's implied probability minus the best soft
// book's. Positive gaps mean the sharp book rates the outcome more likely
// than the soft market does.
func SharpGap(sharpOdds, softOdds float64) float64 {
	return 1.0/sharpOdds - 1.0/softOdds
}

// confirmations counts component models that independently see an edge.
func (e *Engine) confirmations(blend *ensemble.Blend, outcome models.Outcome, odds float64) int {
	count := 0
	for _, slot := range confirmingSlots {
		dist, ok := blend.Components[slot]
		if !ok {
			continue
		}
		if models.Edge(dist.Prob(outcome), odds) >= e.cfg.ConfirmEdge {
			count++
		}
	}
	return count
}

func (e *Engine) reject(eval *Evaluation, outcome models.Outcome, gate string, edge float64) {
	metrics.RecordRejection(gate)
	e.logger.LogSignalRejected(eval.Fixture.ID, eval.Market.Key(), string(outcome), gate, edge)
}

// FixtureSignals evaluates every configured market of one fixture. Failed
// markets are returned alongside the signals of the markets that worked.
func (e *Engine) FixtureSignals(fixture models.Fixture, quotes []models.QuoteSet, external ExternalSource) ([]models.Signal, []Failure) {
	var (
		signals  []models.Signal
		failures []Failure
	)
	for _, market := range e.markets {
		eval, err := e.Evaluate(fixture, market, quotes, external)
		if err != nil {
			failures = append(failures, Failure{FixtureID: fixture.ID, Market: market.Key(), Err: err})
			metrics.RecordScanFailure(failureKind(err))
			e.logger.LogFixtureSkipped(fixture.ID, market.Key(), err)
			continue
		}
		signals = append(signals, e.Candidates(eval, quotes)...)
	}
	return signals, failures
}

// Signals returns a lazy sequence over the snapshot's signals. Each range
// over the sequence performs a fresh scan; failures are logged and skipped.
func (e *Engine) Signals(snap *Snapshot) iter.Seq[models.Signal] {
	return func(yield func(models.Signal) bool) {
		quotes := snap.quotesByFixture()
		for _, fixture := range snap.scheduled() {
			signals, _ := e.FixtureSignals(fixture, quotes[fixture.ID], snap.External)
			for _, s := range signals {
				if !yield(s) {
					return
				}
			}
		}
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidRatingState):
		return "rating_state"
	case errors.Is(err, models.ErrInvalidQuoteSet):
		return "quote_set"
	default:
		return "other"
	}
}
