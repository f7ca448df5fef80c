// Package rating holds per-team rating state and the closed-form models built on it.
package rating

import (
	"math"

	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/models"
)

// EloSource tags distributions produced by the Elo model
const EloSource = "elo"

// ExpectedScore returns the Elo expected score of a side rated own against a side rated opp.
func ExpectedScore(own, opp float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opp-own)/400.0))
}

// EloModel turns rating gaps into expectations, result updates and 1X2 probabilities.
type EloModel struct {
	cfg config.RatingConfig
}

// NewEloModel creates an Elo model from validated rating configuration.
func NewEloModel(cfg config.RatingConfig) (*EloModel, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &EloModel{cfg: cfg}, nil
}

// Gap returns the home rating advantage including home advantage points.
func (m *EloModel) Gap(home, away models.Team) float64 {
	return home.Elo + m.cfg.EloHomeAdvantage - away.Elo
}

// Expected returns the expected scores of both sides. They always sum to 1.
func (m *EloModel) Expected(home, away models.Team) (expectedHome, expectedAway float64) {
	expectedHome = ExpectedScore(home.Elo+m.cfg.EloHomeAdvantage, away.Elo)
	return expectedHome, 1.0 - expectedHome
}

// DrawProbability returns the empirical draw rate for a rating gap.
// Evenly matched sides draw most often; the rate decays towards the floor.
func (m *EloModel) DrawProbability(gap float64) float64 {
	return math.Max(m.cfg.DrawFloor, m.cfg.DrawBase*math.Exp(-math.Abs(gap)/m.cfg.DrawScale))
}

// Distribution returns the Elo-implied 1X2 distribution.
func (m *EloModel) Distribution(home, away models.Team) (models.Distribution, error) {
	eHome, eAway := m.Expected(home, away)
	draw := m.DrawProbability(m.Gap(home, away))

	dist, err := models.Normalize(map[models.Outcome]float64{
		models.OutcomeHome: eHome * (1 - draw),
		models.OutcomeDraw: draw,
		models.OutcomeAway: eAway * (1 - draw),
	})
	if err != nil {
		return models.Distribution{}, err
	}
	return dist.WithSource(EloSource), nil
}

// Update applies one result and returns both teams with new ratings.
// Inputs are not modified.
func (m *EloModel) Update(home, away models.Team, result models.MatchResult) (models.Team, models.Team) {
	eHome, eAway := m.Expected(home, away)
	actualHome := result.HomeScore()

	home.Elo += m.cfg.EloKFactor * (actualHome - eHome)
	away.Elo += m.cfg.EloKFactor * ((1.0 - actualHome) - eAway)
	home.GamesPlayed++
	away.GamesPlayed++
	if !result.PlayedAt.IsZero() {
		home.UpdatedAt = result.PlayedAt
		away.UpdatedAt = result.PlayedAt
	}
	return home, away
}
