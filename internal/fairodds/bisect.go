package fairodds

import (
	"math"

	"github.com/yourusername/oddsedge/internal/models"
)

// Bisector is a bounded bisection root finder. It never iterates past
// MaxIterations and reports failure instead of refining forever.
type Bisector struct {
	MaxIterations int
	Tolerance     float64
}

// Root finds x in [lo, hi] with f(x) = 0. f(lo) and f(hi) must bracket the root.
func (b Bisector) Root(method string, f func(float64) float64, lo, hi float64) (float64, error) {
	flo, fhi := f(lo), f(hi)
	if math.IsNaN(flo) || math.IsNaN(fhi) {
		return 0, &models.ConvergenceError{Method: method, Reason: "objective is not finite at the bracket"}
	}
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if (flo > 0) == (fhi > 0) {
		return 0, &models.ConvergenceError{
			Method:   method,
			Residual: math.Min(math.Abs(flo), math.Abs(fhi)),
			Reason:   "root is not bracketed",
		}
	}

	mid, fmid := lo, flo
	for i := 1; i <= b.MaxIterations; i++ {
		mid = lo + (hi-lo)/2
		fmid = f(mid)
		if math.Abs(fmid) < b.Tolerance || (hi-lo)/2 < b.Tolerance {
			return mid, nil
		}
		if (fmid > 0) == (flo > 0) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}
	return 0, &models.ConvergenceError{
		Method:     method,
		Iterations: b.MaxIterations,
		Residual:   math.Abs(fmid),
		Reason:     "iteration limit reached",
	}
}
