package value

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/logger"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
)

// ExpressBuilder assembles correlation-discounted accumulators from signals.
type ExpressBuilder struct {
	cfg          config.ExpressConfig
	minValueEdge float64
	logger       *logger.SignalLogger
}

// NewExpressBuilder creates a builder. Combos must keep minValueEdge after discounting.
func NewExpressBuilder(cfg config.ExpressConfig, minValueEdge float64, log *logrus.Logger) (*ExpressBuilder, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &ExpressBuilder{cfg: cfg, minValueEdge: minValueEdge, logger: logger.NewSignalLogger(log)}, nil
}

// Discount returns the multiplicative correlation discount for legs: one
// leg-count factor per leg beyond the first, and a league and a day factor
// for every pair sharing them.
func (b *ExpressBuilder) Discount(legs []models.Signal) float64 {
	discount := 1.0
	for i := 1; i < len(legs); i++ {
		discount *= b.cfg.LegCountDiscount
	}
	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			if legs[i].League == legs[j].League {
				discount *= b.cfg.SameLeagueDiscount
			}
			if legs[i].MatchDay().Equal(legs[j].MatchDay()) {
				discount *= b.cfg.SameDayDiscount
			}
		}
	}
	return discount
}

// Combo prices one set of legs. It reports false when two legs share a fixture.
func (b *ExpressBuilder) Combo(legs []models.Signal) (models.ExpressCombo, bool) {
	seen := make(map[string]struct{}, len(legs))
	raw, odds := 1.0, 1.0
	for _, leg := range legs {
		if _, dup := seen[leg.FixtureID]; dup {
			return models.ExpressCombo{}, false
		}
		seen[leg.FixtureID] = struct{}{}
		raw *= leg.Probability
		odds *= leg.Odds
	}
	discount := b.Discount(legs)
	adjusted := raw * discount
	return models.ExpressCombo{
		ID:                  uuid.New(),
		Legs:                append([]models.Signal(nil), legs...),
		RawProbability:      raw,
		Discount:            discount,
		AdjustedProbability: adjusted,
		CombinedOdds:        odds,
		AdjustedEdge:        models.Edge(adjusted, odds),
	}, true
}

// Build returns the best combos from signals, ordered by adjusted edge.
func (b *ExpressBuilder) Build(signals []models.Signal) []models.ExpressCombo {
	pool := b.pool(signals)
	var (
		combos     []models.ExpressCombo
		candidates int
	)
	legs := make([]models.Signal, 0, b.cfg.MaxLegs)
	var walk func(start int)
	walk = func(start int) {
		if len(legs) >= b.cfg.MinLegs {
			candidates++
			if combo, ok := b.Combo(legs); ok && combo.AdjustedEdge >= b.minValueEdge {
				combos = append(combos, combo)
			}
		}
		if len(legs) == b.cfg.MaxLegs {
			return
		}
		for i := start; i < len(pool); i++ {
			if !b.fits(legs, pool[i]) {
				continue
			}
			legs = append(legs, pool[i])
			walk(i + 1)
			legs = legs[:len(legs)-1]
		}
	}
	walk(0)

	sort.SliceStable(combos, func(i, j int) bool {
		return combos[i].AdjustedEdge > combos[j].AdjustedEdge
	})
	if len(combos) > b.cfg.MaxCombos {
		combos = combos[:b.cfg.MaxCombos]
	}

	best := 0.0
	if len(combos) > 0 {
		best = combos[0].AdjustedEdge
	}
	metrics.RecordExpressCombos(len(combos))
	b.logger.LogExpressBuilt(len(pool), candidates, len(combos), best)
	return combos
}

// fits reports whether next can join legs: a new fixture within the odds cap.
func (b *ExpressBuilder) fits(legs []models.Signal, next models.Signal) bool {
	odds := next.Odds
	for _, leg := range legs {
		if leg.FixtureID == next.FixtureID {
			return false
		}
		odds *= leg.Odds
	}
	return odds <= b.cfg.MaxTotalOdds
}

// admits reports whether a signal may be used as an accumulator leg.
func (b *ExpressBuilder) admits(s models.Signal) bool {
	if b.cfg.ConfirmedOnly && s.Confidence != models.ConfidenceConfirmed {
		return false
	}
	return s.Probability >= b.cfg.MinLegProbability && s.Odds <= b.cfg.MaxLegOdds
}

// pool keeps eligible legs, most likely first, capped at the pool limit.
func (b *ExpressBuilder) pool(signals []models.Signal) []models.Signal {
	pool := make([]models.Signal, 0, len(signals))
	for _, s := range signals {
		if b.admits(s) {
			pool = append(pool, s)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Probability != pool[j].Probability {
			return pool[i].Probability > pool[j].Probability
		}
		return pool[i].Edge > pool[j].Edge
	})
	if len(pool) > b.cfg.PoolLimit {
		pool = pool[:b.cfg.PoolLimit]
	}
	return pool
}
