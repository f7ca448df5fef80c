package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ProbabilityTolerance bounds how far a distribution may drift from summing to 1
const ProbabilityTolerance = 1e-6

// Distribution is an immutable probability distribution over market outcomes.
// Operations that change probabilities return a new Distribution.
type Distribution struct {
	probs    map[Outcome]float64
	degraded bool
	source   string
}

// NewDistribution validates probs and returns a Distribution over them.
func NewDistribution(probs map[Outcome]float64) (Distribution, error) {
	if len(probs) == 0 {
		return Distribution{}, fmt.Errorf("%w: empty distribution", ErrInvalidDistribution)
	}
	total := 0.0
	copied := make(map[Outcome]float64, len(probs))
	for outcome, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1+ProbabilityTolerance {
			return Distribution{}, fmt.Errorf("%w: outcome %s has probability %g", ErrInvalidDistribution, outcome, p)
		}
		copied[outcome] = p
		total += p
	}
	if math.Abs(total-1.0) > ProbabilityTolerance {
		return Distribution{}, fmt.Errorf("%w: probabilities sum to %.9f", ErrInvalidDistribution, total)
	}
	return Distribution{probs: copied}, nil
}

// Normalize scales non-negative weights so they sum to 1.
func Normalize(weights map[Outcome]float64) (Distribution, error) {
	total := 0.0
	for outcome, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return Distribution{}, fmt.Errorf("%w: outcome %s has weight %g", ErrInvalidDistribution, outcome, w)
		}
		total += w
	}
	if total <= 0 {
		return Distribution{}, fmt.Errorf("%w: weights sum to %g", ErrInvalidDistribution, total)
	}
	probs := make(map[Outcome]float64, len(weights))
	for outcome, w := range weights {
		probs[outcome] = w / total
	}
	return Distribution{probs: probs}, nil
}

// Prob returns the probability of o, 0 when absent.
func (d Distribution) Prob(o Outcome) float64 {
	return d.probs[o]
}

// Has reports whether o is part of the distribution.
func (d Distribution) Has(o Outcome) bool {
	_, ok := d.probs[o]
	return ok
}

// Len returns the number of outcomes.
func (d Distribution) Len() int { return len(d.probs) }

// IsZero reports whether the distribution was never built.
func (d Distribution) IsZero() bool { return d.probs == nil }

// Outcomes returns outcome labels in a stable order.
func (d Distribution) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(d.probs))
	for outcome := range d.probs {
		out = append(out, outcome)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Map returns a copy of the underlying probabilities.
func (d Distribution) Map() map[Outcome]float64 {
	out := make(map[Outcome]float64, len(d.probs))
	for outcome, p := range d.probs {
		out[outcome] = p
	}
	return out
}

// Sum returns the total probability mass.
func (d Distribution) Sum() float64 {
	total := 0.0
	for _, p := range d.probs {
		total += p
	}
	return total
}

// Favourite returns the most likely outcome.
func (d Distribution) Favourite() Outcome {
	var best Outcome
	bestP := -1.0
	for _, outcome := range d.Outcomes() {
		if p := d.probs[outcome]; p > bestP {
			best, bestP = outcome, p
		}
	}
	return best
}

// Degraded reports whether the distribution came from a fallback path.
func (d Distribution) Degraded() bool { return d.degraded }

// Source names the producer, e.g. the de-margining method.
func (d Distribution) Source() string { return d.source }

// WithSource returns a copy tagged with its producer.
func (d Distribution) WithSource(source string) Distribution {
	return Distribution{probs: d.Map(), degraded: d.degraded, source: source}
}

// AsDegraded returns a copy carrying the degraded-quality marker.
func (d Distribution) AsDegraded() Distribution {
	return Distribution{probs: d.Map(), degraded: true, source: d.source}
}

// MarshalJSON renders the distribution with its quality markers.
func (d Distribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Probabilities map[Outcome]float64 `json:"probabilities"`
		Degraded      bool                `json:"degraded,omitempty"`
		Source        string              `json:"source,omitempty"`
	}{d.probs, d.degraded, d.source})
}
