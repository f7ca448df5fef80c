package models

import "time"

// Team holds the per-team rating state used by the scoreline and Elo models.
//
// Attack and Defence are multiplicative strengths around a league average of
// 1.0; lower Defence is better. Elo only moves through the result update rule.
type Team struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name"`
	Attack      float64   `json:"attack" validate:"omitempty,gt=0"`
	Defence     float64   `json:"defence" validate:"omitempty,gt=0"`
	Elo         float64   `json:"elo"`
	GamesPlayed int       `json:"games_played"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FixtureStatus is driven by the external data layer
type FixtureStatus string

// Fixture statuses
const (
	FixtureScheduled FixtureStatus = "scheduled"
	FixtureLive      FixtureStatus = "live"
	FixtureFinished  FixtureStatus = "finished"
)

// Fixture is an upcoming or played match between two teams
type Fixture struct {
	ID       string        `json:"id" validate:"required"`
	HomeTeam string        `json:"home_team" validate:"required"`
	AwayTeam string        `json:"away_team" validate:"required,nefield=HomeTeam"`
	Kickoff  time.Time     `json:"kickoff" validate:"required"`
	League   string        `json:"league" validate:"required"`
	Status   FixtureStatus `json:"status"`
}

// IsScheduled reports whether the fixture has not kicked off yet.
func (f *Fixture) IsScheduled() bool {
	return f.Status == "" || f.Status == FixtureScheduled
}

// MatchDay returns the UTC calendar day of kickoff.
func (f *Fixture) MatchDay() time.Time {
	k := f.Kickoff.UTC()
	return time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, time.UTC)
}

// MatchResult is an observed final score fed back into the rating state
type MatchResult struct {
	FixtureID string    `json:"fixture_id"`
	HomeTeam  string    `json:"home_team" validate:"required"`
	AwayTeam  string    `json:"away_team" validate:"required"`
	HomeGoals int       `json:"home_goals" validate:"gte=0"`
	AwayGoals int       `json:"away_goals" validate:"gte=0"`
	PlayedAt  time.Time `json:"played_at"`
}

// HomeScore returns the Elo actual score for the home side (1, 0.5 or 0).
func (r *MatchResult) HomeScore() float64 {
	switch {
	case r.HomeGoals > r.AwayGoals:
		return 1.0
	case r.HomeGoals == r.AwayGoals:
		return 0.5
	default:
		return 0.0
	}
}
