package rating

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/models"
)

// ScorelineSource tags distributions produced by the scoreline model
const ScorelineSource = "dixon_coles"

// ScorelineModel prices fixtures with the Dixon-Coles bivariate Poisson model.
// The home advantage starts from configuration and may be replaced by a
// fitted value.
type ScorelineModel struct {
	mu            sync.RWMutex
	homeAdvantage float64
	rho           float64
	maxGoals      int
}

// NewScorelineModel creates a scoreline model from validated configuration.
func NewScorelineModel(cfg config.ScorelineConfig) (*ScorelineModel, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &ScorelineModel{
		homeAdvantage: cfg.HomeAdvantage,
		rho:           cfg.Rho,
		maxGoals:      cfg.MaxGoals,
	}, nil
}

// HomeAdvantage returns the multiplier applied to the home side's rate.
func (m *ScorelineModel) HomeAdvantage() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.homeAdvantage
}

// SetHomeAdvantage replaces the home multiplier, typically with the one
// measured by EstimateStrengths.
func (m *ScorelineModel) SetHomeAdvantage(v float64) error {
	if !validRate(v) {
		return fmt.Errorf("%w: home advantage must be positive and finite, got %g", models.ErrInvalidRatingState, v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homeAdvantage = v
	return nil
}

// Lambdas returns the expected goals of both sides.
// Non-positive or non-finite rates fail with a RatingStateError.
func (m *ScorelineModel) Lambdas(home, away models.Team) (lambdaHome, lambdaAway float64, err error) {
	lambdaHome = home.Attack * away.Defence * m.HomeAdvantage()
	lambdaAway = away.Attack * home.Defence
	if !validRate(lambdaHome) || !validRate(lambdaAway) {
		return 0, 0, &models.RatingStateError{
			HomeTeam:   home.ID,
			AwayTeam:   away.ID,
			LambdaHome: lambdaHome,
			LambdaAway: lambdaAway,
			Reason:     "expected goals must be positive and finite",
		}
	}
	return lambdaHome, lambdaAway, nil
}

func validRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Tau is the Dixon-Coles low-score correction factor.
func Tau(i, j int, lambdaHome, lambdaAway, rho float64) float64 {
	switch {
	case i == 0 && j == 0:
		return 1.0 - lambdaHome*lambdaAway*rho
	case i == 0 && j == 1:
		return 1.0 + lambdaHome*rho
	case i == 1 && j == 0:
		return 1.0 + lambdaAway*rho
	case i == 1 && j == 1:
		return 1.0 - rho
	default:
		return 1.0
	}
}

// PoissonPMF returns P(X = k) for X ~ Poisson(lambda).
func PoissonPMF(k int, lambda float64) float64 {
	lg, _ := math.Lgamma(float64(k) + 1)
	return math.Exp(float64(k)*math.Log(lambda) - lambda - lg)
}

// ScoreMatrix holds P(home goals = i, away goals = j) for i, j in 0..MaxGoals.
//
// Mass beyond MaxGoals is discarded and the grid renormalised to sum to 1;
// Truncated records how much was dropped. This is expected, not an error.
type ScoreMatrix struct {
	Probs      [][]float64
	LambdaHome float64
	LambdaAway float64
	Truncated  float64
}

// Scoreline is one cell of a ScoreMatrix
type Scoreline struct {
	HomeGoals   int     `json:"home_goals"`
	AwayGoals   int     `json:"away_goals"`
	Probability float64 `json:"probability"`
}

// Preview is the scoreline model's summary of a fixture.
type Preview struct {
	HomeTeam          string      `json:"home_team"`
	AwayTeam          string      `json:"away_team"`
	LambdaHome        float64     `json:"lambda_home"`
	LambdaAway        float64     `json:"lambda_away"`
	ExpectedHomeGoals float64     `json:"expected_home_goals"`
	ExpectedAwayGoals float64     `json:"expected_away_goals"`
	TopScores         []Scoreline `json:"top_scores"`
}

// Preview returns the rates, truncated expected goals and the n most likely
// scorelines of a fixture.
func (m *ScorelineModel) Preview(home, away models.Team, n int) (Preview, error) {
	matrix, err := m.Matrix(home, away)
	if err != nil {
		return Preview{}, err
	}
	eh, ea := matrix.ExpectedGoals()
	return Preview{
		HomeTeam:          home.ID,
		AwayTeam:          away.ID,
		LambdaHome:        matrix.LambdaHome,
		LambdaAway:        matrix.LambdaAway,
		ExpectedHomeGoals: eh,
		ExpectedAwayGoals: ea,
		TopScores:         matrix.TopScores(n),
	}, nil
}

// Matrix computes the full score matrix for a fixture.
func (m *ScorelineModel) Matrix(home, away models.Team) (*ScoreMatrix, error) {
	lambdaHome, lambdaAway, err := m.Lambdas(home, away)
	if err != nil {
		return nil, err
	}

	n := m.maxGoals + 1
	homePMF := make([]float64, n)
	awayPMF := make([]float64, n)
	for k := 0; k < n; k++ {
		homePMF[k] = PoissonPMF(k, lambdaHome)
		awayPMF[k] = PoissonPMF(k, lambdaAway)
	}

	probs := make([][]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		probs[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			p := Tau(i, j, lambdaHome, lambdaAway, m.rho) * homePMF[i] * awayPMF[j]
			if p < 0 {
				p = 0
			}
			probs[i][j] = p
			total += p
		}
	}
	if !(total > 0) {
		return nil, &models.RatingStateError{
			HomeTeam:   home.ID,
			AwayTeam:   away.ID,
			LambdaHome: lambdaHome,
			LambdaAway: lambdaAway,
			Reason:     "score matrix has no probability mass",
		}
	}
	for i := range probs {
		for j := range probs[i] {
			probs[i][j] /= total
		}
	}

	return &ScoreMatrix{
		Probs:      probs,
		LambdaHome: lambdaHome,
		LambdaAway: lambdaAway,
		Truncated:  math.Max(0, 1.0-total),
	}, nil
}

// Distribution prices one market for a fixture.
func (m *ScorelineModel) Distribution(home, away models.Team, market models.Market) (models.Distribution, error) {
	matrix, err := m.Matrix(home, away)
	if err != nil {
		return models.Distribution{}, err
	}
	return matrix.Market(market)
}

// Sum returns the total mass of the grid.
func (sm *ScoreMatrix) Sum() float64 {
	total := 0.0
	for _, row := range sm.Probs {
		for _, p := range row {
			total += p
		}
	}
	return total
}

// P returns the probability of an exact score, 0 outside the grid.
func (sm *ScoreMatrix) P(homeGoals, awayGoals int) float64 {
	if homeGoals < 0 || awayGoals < 0 || homeGoals >= len(sm.Probs) || awayGoals >= len(sm.Probs) {
		return 0
	}
	return sm.Probs[homeGoals][awayGoals]
}

// sumWhere adds the cells selected by keep.
func (sm *ScoreMatrix) sumWhere(keep func(i, j int) bool) float64 {
	total := 0.0
	for i, row := range sm.Probs {
		for j, p := range row {
			if keep(i, j) {
				total += p
			}
		}
	}
	return total
}

// MatchResult returns home/draw/away probabilities.
func (sm *ScoreMatrix) MatchResult() (models.Distribution, error) {
	return sm.distribution(map[models.Outcome]float64{
		models.OutcomeHome: sm.sumWhere(func(i, j int) bool { return i > j }),
		models.OutcomeDraw: sm.sumWhere(func(i, j int) bool { return i == j }),
		models.OutcomeAway: sm.sumWhere(func(i, j int) bool { return i < j }),
	})
}

// Totals returns over/under probabilities for a goal line.
func (sm *ScoreMatrix) Totals(line float64) (models.Distribution, error) {
	over := sm.sumWhere(func(i, j int) bool { return float64(i+j) > line })
	return sm.distribution(map[models.Outcome]float64{
		models.OutcomeOver:  over,
		models.OutcomeUnder: 1.0 - over,
	})
}

// BTTS returns both-teams-to-score probabilities.
func (sm *ScoreMatrix) BTTS() (models.Distribution, error) {
	yes := sm.sumWhere(func(i, j int) bool { return i >= 1 && j >= 1 })
	return sm.distribution(map[models.Outcome]float64{
		models.OutcomeBTTSYes: yes,
		models.OutcomeBTTSNo:  1.0 - yes,
	})
}

// Market dispatches to the marginal for market.
func (sm *ScoreMatrix) Market(market models.Market) (models.Distribution, error) {
	switch market.Type {
	case models.MarketMatchResult:
		return sm.MatchResult()
	case models.MarketTotals:
		return sm.Totals(market.Line)
	case models.MarketBTTS:
		return sm.BTTS()
	default:
		return models.Distribution{}, fmt.Errorf("%w: scoreline model cannot price market %q", models.ErrInvalidDistribution, market)
	}
}

// ExpectedGoals returns the grid-weighted mean goals of both sides.
func (sm *ScoreMatrix) ExpectedGoals() (home, away float64) {
	for i, row := range sm.Probs {
		for j, p := range row {
			home += float64(i) * p
			away += float64(j) * p
		}
	}
	return home, away
}

// TopScores returns the n most likely scorelines, most likely first.
func (sm *ScoreMatrix) TopScores(n int) []Scoreline {
	scores := make([]Scoreline, 0, len(sm.Probs)*len(sm.Probs))
	for i, row := range sm.Probs {
		for j, p := range row {
			scores = append(scores, Scoreline{HomeGoals: i, AwayGoals: j, Probability: p})
		}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Probability > scores[b].Probability
	})
	if n < len(scores) {
		scores = scores[:n]
	}
	return scores
}

func (sm *ScoreMatrix) distribution(weights map[models.Outcome]float64) (models.Distribution, error) {
	for outcome, w := range weights {
		// Complements can dip a hair below zero after float subtraction
		if w < 0 && w > -models.ProbabilityTolerance {
			weights[outcome] = 0
		}
	}
	dist, err := models.Normalize(weights)
	if err != nil {
		return models.Distribution{}, err
	}
	return dist.WithSource(ScorelineSource), nil
}
