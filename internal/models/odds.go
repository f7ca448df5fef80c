package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// OddsQuote is one bookmaker price for one outcome
type OddsQuote struct {
	Bookmaker string    `json:"bookmaker"`
	Market    Market    `json:"market"`
	Outcome   Outcome   `json:"outcome"`
	Odds      float64   `json:"odds" validate:"gt=1"`
	Timestamp time.Time `json:"timestamp"`
}

// ImpliedProbability returns 1/odds, or 0 for unusable prices.
func (q OddsQuote) ImpliedProbability() float64 {
	if q.Odds <= 0 {
		return 0
	}
	return 1.0 / q.Odds
}

// QuoteSet maps outcome to quote for one market at one bookmaker. A
// consensus set aggregated across books uses an empty Bookmaker.
type QuoteSet struct {
	FixtureID string                `json:"fixture_id"`
	Market    Market                `json:"market"`
	Bookmaker string                `json:"bookmaker"`
	Quotes    map[Outcome]OddsQuote `json:"quotes"`
}

// NewQuoteSet builds a QuoteSet from plain decimal odds stamped at ts.
func NewQuoteSet(fixtureID string, market Market, bookmaker string, odds map[Outcome]float64, ts time.Time) QuoteSet {
	quotes := make(map[Outcome]OddsQuote, len(odds))
	for outcome, price := range odds {
		quotes[outcome] = OddsQuote{
			Bookmaker: bookmaker,
			Market:    market,
			Outcome:   outcome,
			Odds:      price,
			Timestamp: ts,
		}
	}
	return QuoteSet{FixtureID: fixtureID, Market: market, Bookmaker: bookmaker, Quotes: quotes}
}

// Odds returns the decimal odds keyed by outcome.
func (qs QuoteSet) Odds() map[Outcome]float64 {
	out := make(map[Outcome]float64, len(qs.Quotes))
	for outcome, q := range qs.Quotes {
		out[outcome] = q.Odds
	}
	return out
}

// Outcomes returns the quoted outcomes in a stable order.
func (qs QuoteSet) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(qs.Quotes))
	for outcome := range qs.Quotes {
		out = append(out, outcome)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate fails with a QuoteSetError when odds are unusable for de-margining.
func (qs QuoteSet) Validate() error {
	if len(qs.Quotes) < 2 {
		return qs.invalid(fmt.Sprintf("need at least 2 outcomes, got %d", len(qs.Quotes)))
	}
	for outcome, q := range qs.Quotes {
		if math.IsNaN(q.Odds) || math.IsInf(q.Odds, 0) || q.Odds <= 1.0 {
			return qs.invalid(fmt.Sprintf("outcome %s has odds %g, must be > 1.0", outcome, q.Odds))
		}
		if qs.Market.Type != "" && !qs.Market.HasOutcome(outcome) {
			return qs.invalid(fmt.Sprintf("outcome %s does not belong to market %s", outcome, qs.Market))
		}
	}
	return nil
}

// Complete reports whether every outcome of the market is quoted.
func (qs QuoteSet) Complete() bool {
	for _, outcome := range qs.Market.Outcomes() {
		if _, ok := qs.Quotes[outcome]; !ok {
			return false
		}
	}
	return len(qs.Market.Outcomes()) > 0
}

// Booksum returns the sum of implied probabilities (1 + overround).
func (qs QuoteSet) Booksum() float64 {
	total := 0.0
	for _, q := range qs.Quotes {
		total += q.ImpliedProbability()
	}
	return total
}

// Overround returns the bookmaker margin embedded in the set.
func (qs QuoteSet) Overround() float64 {
	return qs.Booksum() - 1.0
}

// UpdatedAt returns the latest quote timestamp.
func (qs QuoteSet) UpdatedAt() time.Time {
	var latest time.Time
	for _, q := range qs.Quotes {
		if q.Timestamp.After(latest) {
			latest = q.Timestamp
		}
	}
	return latest
}

func (qs QuoteSet) invalid(reason string) error {
	return &QuoteSetError{
		FixtureID: qs.FixtureID,
		Market:    qs.Market.Key(),
		Bookmaker: qs.Bookmaker,
		Reason:    reason,
	}
}
