// Package fairodds removes bookmaker margin from quoted odds.
package fairodds

import (
	"fmt"
	"sort"

	"github.com/yourusername/oddsedge/internal/models"
)

// Method names
const (
	MethodMultiplicative = "multiplicative"
	MethodAdditive       = "additive"
	MethodPower          = "power"
	MethodShin           = "shin"
)

// Method converts a quote set into fair probabilities and back.
type Method interface {
	// Name returns the configuration name of the method.
	Name() string
	// Fair returns the de-margined distribution of a valid quote set.
	Fair(qs models.QuoteSet) (models.Distribution, error)
	// Price adds margin to fair probabilities the way the method assumes a
	// bookmaker does, returning decimal odds. Fair(Price(p, m)) recovers p.
	Price(fair models.Distribution, margin float64) (map[models.Outcome]float64, error)
}

// Registry selects methods by name.
type Registry struct {
	methods map[string]Method
}

// NewRegistry registers the four built-in methods sharing one root finder.
func NewRegistry(bisector Bisector) *Registry {
	r := &Registry{methods: make(map[string]Method)}
	r.Register(Multiplicative{})
	r.Register(Additive{})
	r.Register(Power{Bisector: bisector})
	r.Register(Shin{Bisector: bisector})
	return r
}

// Register adds or replaces a method.
func (r *Registry) Register(m Method) {
	r.methods[m.Name()] = m
}

// Get returns the named method.
func (r *Registry) Get(name string) (Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, models.NewConfigurationError(fmt.Sprintf("unknown fair odds method %q", name))
	}
	return m, nil
}

// Names lists registered methods alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// implied returns 1/odds per outcome and the booksum.
func implied(qs models.QuoteSet) (map[models.Outcome]float64, float64) {
	out := make(map[models.Outcome]float64, len(qs.Quotes))
	total := 0.0
	for outcome, q := range qs.Quotes {
		p := q.ImpliedProbability()
		out[outcome] = p
		total += p
	}
	return out, total
}

// toOdds converts priced implied probabilities into decimal odds.
func toOdds(method string, priced map[models.Outcome]float64) (map[models.Outcome]float64, error) {
	odds := make(map[models.Outcome]float64, len(priced))
	for outcome, p := range priced {
		if !(p > 0 && p < 1) {
			return nil, fmt.Errorf("%w: %s pricing gives outcome %s implied probability %g",
				models.ErrInvalidDistribution, method, outcome, p)
		}
		odds[outcome] = 1.0 / p
	}
	return odds, nil
}

func checkPriceable(fair models.Distribution, margin float64) error {
	if fair.Len() < 2 {
		return fmt.Errorf("%w: need at least 2 outcomes to price", models.ErrInvalidDistribution)
	}
	if margin < 0 {
		return fmt.Errorf("%w: margin %g is negative", models.ErrInvalidDistribution, margin)
	}
	return nil
}
