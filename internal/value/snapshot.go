// Package value finds positive expected value bets and assembles accumulators.
package value

import (
	"sort"

	"github.com/yourusername/oddsedge/internal/models"
)

// ExternalSource supplies optional calibrated distributions from an outside model.
type ExternalSource interface {
	Calibrated(fixtureID string, market models.Market) (models.Distribution, bool)
}

// ExternalScores is an in-memory ExternalSource keyed by fixture then market key
type ExternalScores map[string]map[string]models.Distribution

// Calibrated implements ExternalSource.
func (s ExternalScores) Calibrated(fixtureID string, market models.Market) (models.Distribution, bool) {
	byMarket, ok := s[fixtureID]
	if !ok {
		return models.Distribution{}, false
	}
	dist, ok := byMarket[market.Key()]
	return dist, ok && !dist.IsZero()
}

// Snapshot is the input of one scan.
type Snapshot struct {
	Fixtures []models.Fixture
	Quotes   []models.QuoteSet
	External ExternalSource
}

// quotesByFixture indexes quote sets for per-fixture evaluation.
func (s *Snapshot) quotesByFixture() map[string][]models.QuoteSet {
	out := make(map[string][]models.QuoteSet, len(s.Fixtures))
	for _, qs := range s.Quotes {
		out[qs.FixtureID] = append(out[qs.FixtureID], qs)
	}
	return out
}

// scheduled returns fixtures that have not kicked off, in kickoff order.
func (s *Snapshot) scheduled() []models.Fixture {
	out := make([]models.Fixture, 0, len(s.Fixtures))
	for _, f := range s.Fixtures {
		if f.IsScheduled() {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kickoff.Equal(out[j].Kickoff) {
			return out[i].ID < out[j].ID
		}
		return out[i].Kickoff.Before(out[j].Kickoff)
	})
	return out
}

// BestPrice is the highest available odds for one outcome
type BestPrice struct {
	Odds      float64
	Bookmaker string
	// Books is how many bookmakers quote the outcome
	Books int
}

// bestPrices returns the best odds per outcome across valid sets for the
// market, ignoring the excluded bookmaker.
func bestPrices(market models.Market, sets []models.QuoteSet, exclude string) map[models.Outcome]BestPrice {
	out := make(map[models.Outcome]BestPrice)
	for _, qs := range sets {
		if qs.Market != market || qs.Validate() != nil || (exclude != "" && qs.Bookmaker == exclude) {
			continue
		}
		for _, outcome := range qs.Outcomes() {
			q := qs.Quotes[outcome]
			best := out[outcome]
			best.Books++
			if q.Odds > best.Odds || (q.Odds == best.Odds && qs.Bookmaker < best.Bookmaker) {
				best.Odds = q.Odds
				best.Bookmaker = qs.Bookmaker
			}
			out[outcome] = best
		}
	}
	return out
}

// bookQuote returns one bookmaker's valid quote set for the market.
func bookQuote(market models.Market, book string, sets []models.QuoteSet) (models.QuoteSet, bool) {
	for _, qs := range sets {
		if qs.Market == market && qs.Bookmaker == book && qs.Validate() == nil {
			return qs, true
		}
	}
	return models.QuoteSet{}, false
}
