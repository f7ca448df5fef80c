package rating

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
)

// Store is the team rating state. Scans read it concurrently; results write it.
type Store struct {
	mu     sync.RWMutex
	teams  map[string]models.Team
	elo    *EloModel
	cfg    config.RatingConfig
	logger *logrus.Logger
}

// NewStore creates an empty rating store.
func NewStore(cfg config.RatingConfig, logger *logrus.Logger) (*Store, error) {
	elo, err := NewEloModel(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		teams:  make(map[string]models.Team),
		elo:    elo,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Elo returns the Elo model the store updates with.
func (s *Store) Elo() *EloModel {
	return s.elo
}

// Put inserts or replaces a team. Zero ratings take the configured baselines.
func (s *Store) Put(team models.Team) error {
	if team.ID == "" {
		return fmt.Errorf("%w: team id is required", models.ErrInvalidRatingState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[team.ID] = s.withDefaults(team)
	return nil
}

// Team returns a copy of the team's state.
func (s *Store) Team(id string) (models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return models.Team{}, fmt.Errorf("team %s: %w", id, models.ErrNotFound)
	}
	return team, nil
}

// Pair returns both teams of a fixture under one read lock.
func (s *Store) Pair(homeID, awayID string) (home, away models.Team, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ok bool
	if home, ok = s.teams[homeID]; !ok {
		return home, away, fmt.Errorf("team %s: %w", homeID, models.ErrNotFound)
	}
	if away, ok = s.teams[awayID]; !ok {
		return home, away, fmt.Errorf("team %s: %w", awayID, models.ErrNotFound)
	}
	return home, away, nil
}

// ApplyResult moves both teams' Elo ratings by the result. Unknown teams
// start from the baseline rating.
func (s *Store) ApplyResult(result models.MatchResult) error {
	if result.HomeTeam == "" || result.AwayTeam == "" || result.HomeTeam == result.AwayTeam {
		return fmt.Errorf("%w: result %s has invalid teams %q vs %q",
			models.ErrInvalidRatingState, result.FixtureID, result.HomeTeam, result.AwayTeam)
	}
	if result.HomeGoals < 0 || result.AwayGoals < 0 {
		return fmt.Errorf("%w: result %s has negative goals", models.ErrInvalidRatingState, result.FixtureID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	home := s.lookupOrBaseline(result.HomeTeam)
	away := s.lookupOrBaseline(result.AwayTeam)
	newHome, newAway := s.elo.Update(home, away, result)
	s.teams[newHome.ID] = newHome
	s.teams[newAway.ID] = newAway

	metrics.RecordRatingUpdate()
	s.logger.WithFields(logrus.Fields{
		"fixture_id": result.FixtureID,
		"home_team":  home.ID,
		"away_team":  away.ID,
		"score":      fmt.Sprintf("%d-%d", result.HomeGoals, result.AwayGoals),
		"home_elo":   newHome.Elo,
		"away_elo":   newAway.Elo,
	}).Debug("Applied match result to ratings")
	return nil
}

// ApplyResults applies results in chronological order and stops at the first error.
func (s *Store) ApplyResults(results []models.MatchResult) error {
	ordered := make([]models.MatchResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PlayedAt.Before(ordered[j].PlayedAt)
	})
	for _, result := range ordered {
		if err := s.ApplyResult(result); err != nil {
			return err
		}
	}
	return nil
}

// ApplyStrengths replaces attack and defence for every team in est.
func (s *Store) ApplyStrengths(est Estimate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, strength := range est.Teams {
		team := s.lookupOrBaseline(id)
		team.Attack = strength.Attack
		team.Defence = strength.Defence
		s.teams[id] = team
	}
	s.logger.WithFields(logrus.Fields{
		"teams":          len(est.Teams),
		"home_advantage": est.HomeAdvantage,
		"league_average": est.LeagueAverage,
	}).Info("Applied decay-weighted strengths")
}

func (s *Store) lookupOrBaseline(id string) models.Team {
	if team, ok := s.teams[id]; ok {
		return team
	}
	return s.withDefaults(models.Team{ID: id, Name: id})
}

func (s *Store) withDefaults(team models.Team) models.Team {
	if team.Elo == 0 {
		team.Elo = s.cfg.EloInitial
	}
	if team.Attack == 0 {
		team.Attack = 1.0
	}
	if team.Defence == 0 {
		team.Defence = 1.0
	}
	return team
}
