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

// SystemBuilder assembles system bets. Every combination is priced by the
// express builder, so the correlation discount applies per accumulator.
type SystemBuilder struct {
	cfg     config.SystemConfig
	express *ExpressBuilder
	logger  *logger.SignalLogger
}

// NewSystemBuilder creates a system builder on top of an express builder.
func NewSystemBuilder(cfg config.SystemConfig, express *ExpressBuilder, log *logrus.Logger) (*SystemBuilder, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &SystemBuilder{cfg: cfg, express: express, logger: logger.NewSignalLogger(log)}, nil
}

// Build returns one system per configured shape that enough legs can fill
// and whose expected edge clears the configured minimum.
func (b *SystemBuilder) Build(signals []models.Signal) []models.SystemBet {
	if !b.cfg.Enabled {
		return nil
	}
	legs := b.legs(signals)

	var systems []models.SystemBet
	for _, shape := range b.cfg.Shapes {
		if len(legs) < shape.Legs {
			continue
		}
		system, ok := b.System(legs[:shape.Legs], shape.Size)
		if !ok || system.ExpectedEdge < b.cfg.MinExpectedEdge {
			continue
		}
		b.logger.LogSystemBuilt(system.Shape(), len(system.Combinations), system.ExpectedEdge)
		systems = append(systems, system)
	}
	metrics.RecordSystemBets(len(systems))
	return systems
}

// System prices a size-from-len(legs) system. It reports false when legs
// share a fixture or size is out of range.
func (b *SystemBuilder) System(legs []models.Signal, size int) (models.SystemBet, bool) {
	if size < 1 || size >= len(legs) {
		return models.SystemBet{}, false
	}

	var (
		combos   []models.ExpressCombo
		expected float64
		failed   bool
	)
	picked := make([]models.Signal, 0, size)
	var walk func(start int)
	walk = func(start int) {
		if failed {
			return
		}
		if len(picked) == size {
			combo, ok := b.express.Combo(picked)
			if !ok {
				failed = true
				return
			}
			combos = append(combos, combo)
			expected += combo.AdjustedProbability * combo.CombinedOdds
			return
		}
		for i := start; i <= len(legs)-(size-len(picked)); i++ {
			picked = append(picked, legs[i])
			walk(i + 1)
			picked = picked[:len(picked)-1]
		}
	}
	walk(0)
	if failed || len(combos) == 0 {
		return models.SystemBet{}, false
	}

	wins := 0.0
	for _, leg := range legs {
		wins += leg.Probability
	}
	ret := expected / float64(len(combos))
	return models.SystemBet{
		ID:             uuid.New(),
		Legs:           append([]models.Signal(nil), legs...),
		Size:           size,
		Combinations:   combos,
		ExpectedWins:   wins,
		ExpectedReturn: ret,
		ExpectedEdge:   ret - 1.0,
	}, true
}

// legs keeps the best-edge admissible signal per fixture, best edge first.
func (b *SystemBuilder) legs(signals []models.Signal) []models.Signal {
	best := make(map[string]models.Signal)
	for _, s := range signals {
		if !b.express.admits(s) || s.Probability < b.cfg.MinLegProbability {
			continue
		}
		if cur, ok := best[s.FixtureID]; !ok || s.Edge > cur.Edge {
			best[s.FixtureID] = s
		}
	}
	legs := make([]models.Signal, 0, len(best))
	for _, s := range best {
		legs = append(legs, s)
	}
	sort.Slice(legs, func(i, j int) bool {
		if legs[i].Edge != legs[j].Edge {
			return legs[i].Edge > legs[j].Edge
		}
		return legs[i].FixtureID < legs[j].FixtureID
	})
	return legs
}
