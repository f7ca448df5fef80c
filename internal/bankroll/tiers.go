package bankroll

import "github.com/yourusername/oddsedge/internal/config"

// exposure is what the Kelly reductions look at.
type exposure struct {
	losses   int
	drawdown float64
}

type tier struct {
	applies    func(exposure) bool
	multiplier float64
}

// dimension is one risk axis. Tiers are ordered deepest first; the first
// one that applies sets the axis multiplier.
type dimension struct {
	tiers []tier
}

func (d dimension) multiplier(e exposure) float64 {
	for _, t := range d.tiers {
		if t.applies(e) {
			return t.multiplier
		}
	}
	return 1.0
}

func dimensions(cfg config.BankrollConfig) []dimension {
	var streak dimension
	for _, st := range cfg.StreakTiers {
		streak.tiers = append(streak.tiers, tier{
			applies:    func(e exposure) bool { return e.losses >= st.MinLosses },
			multiplier: st.Multiplier,
		})
	}
	var drawdown dimension
	for _, dt := range cfg.DrawdownTiers {
		drawdown.tiers = append(drawdown.tiers, tier{
			applies:    func(e exposure) bool { return e.drawdown > dt.Above },
			multiplier: dt.Multiplier,
		})
	}
	return []dimension{streak, drawdown}
}

// reduce takes the most conservative multiplier across dimensions.
func reduce(dims []dimension, e exposure) float64 {
	m := 1.0
	for _, d := range dims {
		m = min(m, d.multiplier(e))
	}
	return m
}
