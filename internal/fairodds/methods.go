package fairodds

import (
	"math"

	"github.com/yourusername/oddsedge/internal/models"
)

const (
	powerLowerBound = 0.1
	powerUpperBound = 10.0
	// shinUpperBound keeps 1-z away from zero where the closed form cancels
	shinUpperBound = 1 - 1e-6
	// uniformSpread is the implied probability spread treated as a uniform book
	uniformSpread = 1e-12
)

// Multiplicative scales implied probabilities by the booksum.
type Multiplicative struct{}

// Name implements Method.
func (Multiplicative) Name() string { return MethodMultiplicative }

// Fair implements Method.
func (m Multiplicative) Fair(qs models.QuoteSet) (models.Distribution, error) {
	if err := qs.Validate(); err != nil {
		return models.Distribution{}, err
	}
	imp, _ := implied(qs)
	return normalized(m.Name(), imp)
}

// Price implements Method.
func (m Multiplicative) Price(fair models.Distribution, margin float64) (map[models.Outcome]float64, error) {
	if err := checkPriceable(fair, margin); err != nil {
		return nil, err
	}
	priced := fair.Map()
	for outcome, p := range priced {
		priced[outcome] = p * (1 + margin)
	}
	return toOdds(m.Name(), priced)
}

// Additive removes an equal share of the overround from every outcome.
type Additive struct{}

// Name implements Method.
func (Additive) Name() string { return MethodAdditive }

// Fair implements Method. Negative results are clamped to zero.
func (a Additive) Fair(qs models.QuoteSet) (models.Distribution, error) {
	if err := qs.Validate(); err != nil {
		return models.Distribution{}, err
	}
	imp, booksum := implied(qs)
	share := (booksum - 1) / float64(len(imp))
	for outcome, p := range imp {
		imp[outcome] = math.Max(0, p-share)
	}
	return normalized(a.Name(), imp)
}

// Price implements Method.
func (a Additive) Price(fair models.Distribution, margin float64) (map[models.Outcome]float64, error) {
	if err := checkPriceable(fair, margin); err != nil {
		return nil, err
	}
	share := margin / float64(fair.Len())
	priced := fair.Map()
	for outcome, p := range priced {
		priced[outcome] = p + share
	}
	return toOdds(a.Name(), priced)
}

// Power raises implied probabilities to the exponent k that makes them sum to 1.
type Power struct {
	Bisector Bisector
}

// Name implements Method.
func (Power) Name() string { return MethodPower }

// Fair implements Method. A k that cannot be bracketed or found fails with
// a ConvergenceError.
func (pw Power) Fair(qs models.QuoteSet) (models.Distribution, error) {
	if err := qs.Validate(); err != nil {
		return models.Distribution{}, err
	}
	imp, booksum := implied(qs)
	if math.Abs(booksum-1) < pw.Bisector.Tolerance {
		return normalized(pw.Name(), imp)
	}

	k, err := pw.Bisector.Root(pw.Name(), func(k float64) float64 {
		return powSum(imp, k) - 1
	}, powerLowerBound, powerUpperBound)
	if err != nil {
		return models.Distribution{}, err
	}
	for outcome, p := range imp {
		imp[outcome] = math.Pow(p, k)
	}
	return normalized(pw.Name(), imp)
}

// Price implements Method by finding c = 1/k with sum(p^c) = 1 + margin.
func (pw Power) Price(fair models.Distribution, margin float64) (map[models.Outcome]float64, error) {
	if err := checkPriceable(fair, margin); err != nil {
		return nil, err
	}
	probs := fair.Map()
	c := 1.0
	if margin > 0 {
		var err error
		c, err = pw.Bisector.Root(pw.Name(), func(c float64) float64 {
			return powSum(probs, c) - (1 + margin)
		}, 1/powerUpperBound, 1)
		if err != nil {
			return nil, err
		}
	}
	for outcome, p := range probs {
		probs[outcome] = math.Pow(p, c)
	}
	return toOdds(pw.Name(), probs)
}

func powSum(probs map[models.Outcome]float64, k float64) float64 {
	total := 0.0
	for _, p := range probs {
		total += math.Pow(p, k)
	}
	return total
}

// Shin models the margin as protection against a share z of insider money.
type Shin struct {
	Bisector Bisector
}

// Name implements Method.
func (Shin) Name() string { return MethodShin }

// Fair implements Method. Books without overround, uniform books and books
// whose insider share tends to 1 reduce to the multiplicative result.
func (s Shin) Fair(qs models.QuoteSet) (models.Distribution, error) {
	if err := qs.Validate(); err != nil {
		return models.Distribution{}, err
	}
	imp, booksum := implied(qs)
	if booksum <= 1 || uniform(imp) {
		return normalized(s.Name(), imp)
	}

	n := float64(len(imp))
	// sum_i sqrt(z^2 + 4(1-z) imp_i^2 / B) = 2(1-z) + n z
	objective := func(z float64) float64 {
		total := 0.0
		for _, p := range imp {
			total += math.Sqrt(z*z + 4*(1-z)*p*p/booksum)
		}
		return total - 2*(1-z) - n*z
	}
	if objective(shinUpperBound) >= 0 {
		return normalized(s.Name(), imp)
	}

	z, err := s.Bisector.Root(s.Name(), objective, 0, shinUpperBound)
	if err != nil {
		return models.Distribution{}, err
	}
	fair := make(map[models.Outcome]float64, len(imp))
	for outcome, p := range imp {
		fair[outcome] = (math.Sqrt(z*z+4*(1-z)*p*p/booksum) - z) / (2 * (1 - z))
	}
	return normalized(s.Name(), fair)
}

// Price implements Method. With booksum B, it solves
// sum_i sqrt(z p_i + (1-z) p_i^2) = sqrt(B) for z and quotes
// imp_i = sqrt(B) sqrt(z p_i + (1-z) p_i^2).
func (s Shin) Price(fair models.Distribution, margin float64) (map[models.Outcome]float64, error) {
	if err := checkPriceable(fair, margin); err != nil {
		return nil, err
	}
	probs := fair.Map()
	target := math.Sqrt(1 + margin)
	spread := func(z float64) float64 {
		total := 0.0
		for _, p := range probs {
			total += math.Sqrt(z*p + (1-z)*p*p)
		}
		return total
	}

	z := 0.0
	if margin > 0 && !uniform(probs) {
		var err error
		z, err = s.Bisector.Root(s.Name(), func(z float64) float64 {
			return spread(z) - target
		}, 0, shinUpperBound)
		if err != nil {
			return nil, err
		}
	}
	priced := make(map[models.Outcome]float64, len(probs))
	scale := target
	if z == 0 {
		scale = 1 + margin
	}
	for outcome, p := range probs {
		if z == 0 {
			priced[outcome] = p * scale
			continue
		}
		priced[outcome] = target * math.Sqrt(z*p+(1-z)*p*p)
	}
	return toOdds(s.Name(), priced)
}

func uniform(probs map[models.Outcome]float64) bool {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range probs {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	return hi-lo < uniformSpread
}

func normalized(source string, weights map[models.Outcome]float64) (models.Distribution, error) {
	dist, err := models.Normalize(weights)
	if err != nil {
		return models.Distribution{}, err
	}
	return dist.WithSource(source), nil
}
