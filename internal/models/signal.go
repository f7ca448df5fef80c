package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Confidence tags how strongly a signal is corroborated
type Confidence string

// Confidence levels
const (
	ConfidenceConfirmed   Confidence = "confirmed"
	ConfidenceUnconfirmed Confidence = "unconfirmed"
)

// Signal is a single-leg value bet recommendation. It is never mutated after creation.
type Signal struct {
	ID             uuid.UUID  `json:"id"`
	FixtureID      string     `json:"fixture_id"`
	League         string     `json:"league"`
	Kickoff        time.Time  `json:"kickoff"`
	Market         Market     `json:"market"`
	Outcome        Outcome    `json:"outcome"`
	Probability    float64    `json:"probability"`
	Odds           float64    `json:"odds"`
	Bookmaker      string     `json:"bookmaker"`
	Edge           float64    `json:"edge"`
	Confidence     Confidence `json:"confidence"`
	Confirmations  int        `json:"confirmations"`
	SharpConfirmed bool       `json:"sharp_confirmed"`
	Degraded       bool       `json:"degraded,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Edge returns expected value per unit staked.
func Edge(probability, odds float64) float64 {
	return probability*odds - 1.0
}

// MatchDay returns the UTC calendar day of the signal's fixture.
func (s *Signal) MatchDay() time.Time {
	k := s.Kickoff.UTC()
	return time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, time.UTC)
}

// ExpressCombo is a correlation-discounted accumulator of signals from different fixtures
type ExpressCombo struct {
	ID                  uuid.UUID `json:"id"`
	Legs                []Signal  `json:"legs"`
	RawProbability      float64   `json:"raw_probability"`
	Discount            float64   `json:"discount"`
	AdjustedProbability float64   `json:"adjusted_probability"`
	CombinedOdds        float64   `json:"combined_odds"`
	AdjustedEdge        float64   `json:"adjusted_edge"`
}

// FixtureIDs returns the fixtures covered by the legs, in leg order.
func (c *ExpressCombo) FixtureIDs() []string {
	ids := make([]string, len(c.Legs))
	for i, leg := range c.Legs {
		ids[i] = leg.FixtureID
	}
	return ids
}

// SystemBet stakes every Size-leg accumulator drawn from Legs equally, so it
// pays out when at least Size legs win. Immutable once built.
type SystemBet struct {
	ID             uuid.UUID      `json:"id"`
	Legs           []Signal       `json:"legs"`
	Size           int            `json:"size"`
	Combinations   []ExpressCombo `json:"combinations"`
	ExpectedWins   float64        `json:"expected_wins"`
	ExpectedReturn float64        `json:"expected_return"`
	ExpectedEdge   float64        `json:"expected_edge"`
}

// Shape names the system, e.g. "2/3".
func (b *SystemBet) Shape() string {
	return fmt.Sprintf("%d/%d", b.Size, len(b.Legs))
}

// FixtureIDs returns the fixtures covered by the legs, in leg order.
func (b *SystemBet) FixtureIDs() []string {
	ids := make([]string, len(b.Legs))
	for i, leg := range b.Legs {
		ids[i] = leg.FixtureID
	}
	return ids
}
