// Package ensemble blends component distributions into one belief per market.
package ensemble

import (
	"fmt"
	"sort"

	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/models"
)

// Slot names one model feeding the blend
type Slot string

// Model slots
const (
	SlotDixonColes Slot = "dixon_coles"
	SlotElo        Slot = "elo"
	SlotMarket     Slot = "market"
	SlotExternal   Slot = "external"
)

// Source tags distributions produced by the blend
const Source = "ensemble"

// Slots lists every slot in blend order.
func Slots() []Slot {
	return []Slot{SlotDixonColes, SlotElo, SlotMarket, SlotExternal}
}

// Inputs maps each present slot to its distribution. Absent or zero-value
// entries are treated as missing and their weight is redistributed.
type Inputs map[Slot]models.Distribution

// Blend is an ensemble distribution plus how it was made
type Blend struct {
	models.Distribution
	// Weights are the effective weights after redistribution
	Weights map[Slot]float64
	// Components are the distributions that contributed
	Components map[Slot]models.Distribution
}

// Ensemble combines slots with fixed configured weights.
type Ensemble struct {
	weights map[Slot]float64
}

// New creates an ensemble. Weights must sum to 1.
func New(cfg config.EnsembleConfig) (*Ensemble, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &Ensemble{weights: map[Slot]float64{
		SlotDixonColes: cfg.Weights.DixonColes,
		SlotElo:        cfg.Weights.Elo,
		SlotMarket:     cfg.Weights.Market,
		SlotExternal:   cfg.Weights.External,
	}}, nil
}

// Weight returns the configured weight of a slot.
func (e *Ensemble) Weight(slot Slot) float64 {
	return e.weights[slot]
}

// EffectiveWeights spreads the weight of absent slots over present ones in
// proportion to their own weights.
func (e *Ensemble) EffectiveWeights(present []Slot) (map[Slot]float64, error) {
	total := 0.0
	for _, slot := range present {
		total += e.weights[slot]
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: no present model carries weight", models.ErrInvalidDistribution)
	}
	out := make(map[Slot]float64, len(present))
	for _, slot := range present {
		out[slot] = e.weights[slot] / total
	}
	return out, nil
}

// Combine returns the weighted average of the present inputs over the
// market's outcomes, renormalised to absorb rounding drift.
func (e *Ensemble) Combine(market models.Market, inputs Inputs) (*Blend, error) {
	outcomes := market.Outcomes()
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: market %q has no outcomes", models.ErrInvalidDistribution, market)
	}

	present := make([]Slot, 0, len(inputs))
	components := make(map[Slot]models.Distribution, len(inputs))
	for _, slot := range Slots() {
		dist, ok := inputs[slot]
		if !ok || dist.IsZero() {
			continue
		}
		for _, outcome := range outcomes {
			if !dist.Has(outcome) {
				return nil, fmt.Errorf("%w: %s distribution lacks outcome %s of market %s",
					models.ErrInvalidDistribution, slot, outcome, market)
			}
		}
		present = append(present, slot)
		components[slot] = dist
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("%w: no model distribution for market %s", models.ErrInvalidDistribution, market)
	}

	weights, err := e.EffectiveWeights(present)
	if err != nil {
		return nil, err
	}

	blended := make(map[models.Outcome]float64, len(outcomes))
	degraded := false
	for _, slot := range present {
		dist := components[slot]
		for _, outcome := range outcomes {
			blended[outcome] += weights[slot] * dist.Prob(outcome)
		}
		degraded = degraded || dist.Degraded()
	}

	dist, err := models.Normalize(blended)
	if err != nil {
		return nil, err
	}
	dist = dist.WithSource(Source)
	if degraded {
		dist = dist.AsDegraded()
	}
	return &Blend{Distribution: dist, Weights: weights, Components: components}, nil
}

// Present returns the contributing slots in blend order.
func (b *Blend) Present() []Slot {
	out := make([]Slot, 0, len(b.Components))
	for slot := range b.Components {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return slotIndex(out[i]) < slotIndex(out[j]) })
	return out
}

func slotIndex(s Slot) int {
	for i, slot := range Slots() {
		if slot == s {
			return i
		}
	}
	return len(Slots())
}
