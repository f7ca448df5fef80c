package rating

import (
	"math"
	"time"

	"github.com/yourusername/oddsedge/internal/models"
)

const hoursPerDay = 24.0

// DecayWeight returns exp(-xi * days) for a match played days ago.
// It weights historical matches while estimating strengths and is never
// applied when pricing a single fixture.
func DecayWeight(xi, days float64) float64 {
	if days < 0 {
		days = 0
	}
	return math.Exp(-xi * days)
}

// Strength is an estimated multiplicative attack/defence pair. Attack
// carries the away goal rate, so an away side expects Attack x Defence
// goals and a home side that times the home advantage.
type Strength struct {
	Attack  float64
	Defence float64
	// Weight is the decayed number of matches behind the estimate
	Weight float64
}

// Estimate is the outcome of EstimateStrengths
type Estimate struct {
	Teams         map[string]Strength
	HomeAdvantage float64
	LeagueAverage float64
	// Fitted is set when HomeAdvantage was measured from goals at both venues
	Fitted bool
}

// EstimateStrengths derives attack and defence strengths from history as
// decay-weighted goal ratios against the rate expected at each venue. It is
// a closed-form stand-in for a full likelihood fit; results played after
// asOf are ignored.
func EstimateStrengths(results []models.MatchResult, asOf time.Time, xi float64) Estimate {
	type tally struct {
		scored, conceded       float64
		homeWeight, awayWeight float64
	}
	tallies := make(map[string]*tally)
	get := func(id string) *tally {
		t, ok := tallies[id]
		if !ok {
			t = &tally{}
			tallies[id] = t
		}
		return t
	}

	var homeGoals, awayGoals, totalWeight float64
	for _, r := range results {
		if r.PlayedAt.After(asOf) {
			continue
		}
		w := DecayWeight(xi, asOf.Sub(r.PlayedAt).Hours()/hoursPerDay)
		home, away := get(r.HomeTeam), get(r.AwayTeam)
		home.scored += w * float64(r.HomeGoals)
		home.conceded += w * float64(r.AwayGoals)
		home.homeWeight += w
		away.scored += w * float64(r.AwayGoals)
		away.conceded += w * float64(r.HomeGoals)
		away.awayWeight += w
		homeGoals += w * float64(r.HomeGoals)
		awayGoals += w * float64(r.AwayGoals)
		totalWeight += w
	}

	est := Estimate{Teams: make(map[string]Strength, len(tallies)), HomeAdvantage: 1.0}
	if totalWeight == 0 {
		return est
	}
	est.LeagueAverage = (homeGoals + awayGoals) / (2 * totalWeight)
	if est.LeagueAverage == 0 {
		return est
	}

	// Goal rates per venue; without goals on both sides there is no venue
	// split to measure and both fall back to the league average.
	homeRate, awayRate := est.LeagueAverage, est.LeagueAverage
	if homeGoals > 0 && awayGoals > 0 {
		homeRate, awayRate = homeGoals/totalWeight, awayGoals/totalWeight
		est.HomeAdvantage = homeRate / awayRate
		est.Fitted = true
	}

	for id, t := range tallies {
		s := Strength{Attack: awayRate, Defence: 1.0, Weight: t.homeWeight + t.awayWeight}
		expectedFor := t.homeWeight*homeRate + t.awayWeight*awayRate
		expectedAgainst := t.homeWeight*awayRate + t.awayWeight*homeRate
		if expectedFor > 0 {
			s.Attack = positiveOr(t.scored/expectedFor, minStrength) * awayRate
		}
		if expectedAgainst > 0 {
			s.Defence = positiveOr(t.conceded/expectedAgainst, minStrength)
		}
		est.Teams[id] = s
	}
	return est
}

// minStrength keeps goalless records from producing a zero rate
const minStrength = 0.05

func positiveOr(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}
