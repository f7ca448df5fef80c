package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsedge/internal/bankroll"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/datasource"
	"github.com/yourusername/oddsedge/internal/models"
	"github.com/yourusername/oddsedge/internal/value"
)

var testNow = time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestAdvisor(t *testing.T, file string) *Advisor {
	t.Helper()
	return newTestAdvisorAt(t, filepath.Join("testdata", file), nil)
}

func newTestAdvisorAt(t *testing.T, path string, mutate func(*config.Config)) *Advisor {
	t.Helper()
	log := newTestLogger()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	a, err := NewAdvisor(cfg, datasource.NewFileSource(path, log), log)
	require.NoError(t, err)
	a.SetClock(func() time.Time { return testNow })
	return a
}

// totalStake sums every recommended stake.
func totalStake(rec *Recommendation) decimal.Decimal {
	total := decimal.Zero
	for _, bet := range rec.Singles {
		total = total.Add(bet.Stake.Amount)
	}
	for _, bet := range rec.Expresses {
		total = total.Add(bet.Stake.Amount)
	}
	for _, bet := range rec.Systems {
		total = total.Add(bet.Stake.Amount)
	}
	return total
}

func TestNewAdvisorRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Ensemble.Weights.Market = 0.9

	_, err := NewAdvisor(cfg, nil, newTestLogger())
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestRefreshAppliesResultsOnce(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")

	_, err := a.Refresh(context.Background())
	require.NoError(t, err)

	chelsea, err := a.Ratings().Team("chelsea")
	require.NoError(t, err)
	assert.Greater(t, chelsea.Elo, 1560.0)
	assert.Equal(t, 1, chelsea.GamesPlayed)

	_, err = a.Refresh(context.Background())
	require.NoError(t, err)
	again, err := a.Ratings().Team("chelsea")
	require.NoError(t, err)
	assert.Equal(t, chelsea.Elo, again.Elo)
	assert.Equal(t, 1, again.GamesPlayed)

	arsenal, err := a.Ratings().Team("arsenal")
	require.NoError(t, err)
	assert.Equal(t, 1700.0, arsenal.Elo)
	assert.Equal(t, 1.8, arsenal.Attack)

	snap, loadedAt := a.Snapshot()
	assert.Len(t, snap.Fixtures, 4)
	assert.Len(t, snap.Quotes, 7)
	assert.False(t, loadedAt.IsZero())
}

func TestRefreshMissingSource(t *testing.T) {
	a := newTestAdvisor(t, "missing.json")

	_, err := a.Refresh(context.Background())
	assert.ErrorIs(t, err, datasource.ErrNotFound)
}

func TestEvaluate(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")
	_, err := a.Refresh(context.Background())
	require.NoError(t, err)

	snap, _ := a.Snapshot()
	var quotes []models.QuoteSet
	for _, qs := range snap.Quotes {
		if qs.FixtureID == "f1" {
			quotes = append(quotes, qs)
		}
	}

	dist, err := a.Evaluate(snap.Fixtures[0], models.MatchResultMarket(), quotes)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dist.Sum(), 1e-9)
	assert.Equal(t, models.OutcomeHome, dist.Favourite())
	assert.Greater(t, dist.Prob(models.OutcomeHome), 0.7)

	unknown := models.Fixture{ID: "x", HomeTeam: "arsenal", AwayTeam: "nobody", League: "epl", Kickoff: testNow.Add(time.Hour)}
	_, err = a.Evaluate(unknown, models.MatchResultMarket(), quotes)
	assert.ErrorIs(t, err, models.ErrInvalidRatingState)
}

func TestRecommend(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")
	_, err := a.Refresh(context.Background())
	require.NoError(t, err)

	state := bankroll.NewState(decimal.NewFromInt(1000), testNow)
	rec, err := a.Recommend(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.Fixtures)
	assert.Nil(t, rec.Halted)
	require.NotEmpty(t, rec.Singles)

	var found bool
	for i, bet := range rec.Singles {
		if i > 0 {
			assert.GreaterOrEqual(t, rec.Singles[i-1].Signal.Edge, bet.Signal.Edge)
		}
		assert.GreaterOrEqual(t, bet.Signal.Edge, 0.02)
		assert.True(t, bet.Stake.Amount.LessThanOrEqual(decimal.NewFromInt(50)))
		if bet.Signal.FixtureID == "f1" && bet.Signal.Outcome == models.OutcomeHome {
			found = true
			assert.Equal(t, "williamhill", bet.Signal.Bookmaker)
			assert.Equal(t, 1.55, bet.Signal.Odds)
			assert.True(t, bet.Stake.Amount.IsPositive())
		}
	}
	assert.True(t, found, "expected a home signal on f1")
	assert.Equal(t, "1000.00", rec.Bankroll.Balance.StringFixed(2))

	total := totalStake(rec)
	assert.True(t, total.Equal(rec.Bankroll.OpenExposure), "batch exposure %s, stakes %s", rec.Bankroll.OpenExposure, total)
	assert.True(t, total.LessThanOrEqual(decimal.NewFromInt(250)))
	assert.True(t, a.Bankroll().Stats(state).OpenExposure.IsZero(), "recommending places nothing on the bankroll")
	for _, bet := range rec.Systems {
		assert.Equal(t, bankroll.KindSystem, bet.Stake.Kind)
	}

	require.NotEmpty(t, rec.Previews)
	signalled := map[string]bool{}
	for _, bet := range rec.Singles {
		signalled[bet.Signal.FixtureID] = true
	}
	seen := map[string]bool{}
	for _, p := range rec.Previews {
		assert.True(t, signalled[p.FixtureID], p.FixtureID)
		assert.False(t, seen[p.FixtureID], "duplicate preview for %s", p.FixtureID)
		seen[p.FixtureID] = true
		assert.Greater(t, p.LambdaHome, 0.0)
		assert.Len(t, p.TopScores, 3)
	}

	var lazy int
	for range a.FindSignals(mustSnapshot(a)) {
		lazy++
	}
	assert.Equal(t, len(rec.Singles), lazy)
}

func TestRecommendSizesAgainstBatchExposure(t *testing.T) {
	a := newTestAdvisorAt(t, filepath.Join("testdata", "snapshot.json"), func(c *config.Config) {
		c.Bankroll.MaxOpenExposure = 0.02
	})
	_, err := a.Refresh(context.Background())
	require.NoError(t, err)

	state := bankroll.NewState(decimal.NewFromInt(1000), testNow)
	rec, err := a.Recommend(context.Background(), state)
	require.NoError(t, err)
	require.NotEmpty(t, rec.Singles)

	// Sized one by one against the untouched bankroll, the same signals
	// would ask for more than the cap allows.
	independent := decimal.Zero
	for _, bet := range rec.Singles {
		stake, err := a.Size(state, bet.Signal)
		require.NoError(t, err)
		independent = independent.Add(stake.Amount)
	}

	total := totalStake(rec)
	limit := decimal.NewFromInt(20)
	assert.True(t, total.IsPositive())
	assert.True(t, total.LessThanOrEqual(limit), "total %s above %s", total, limit)
	assert.True(t, independent.GreaterThan(total), "independent %s, batch %s", independent, total)
	assert.Equal(t, total.StringFixed(2), rec.Bankroll.OpenExposure.StringFixed(2))
	assert.True(t, a.Bankroll().Stats(state).OpenExposure.IsZero())
}

func TestRefreshDetectsLineMovement(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "snapshot.json"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	a := newTestAdvisorAt(t, path, nil)
	_, err = a.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, a.Movements(), "nothing to compare on the first load")

	moved := strings.Replace(string(raw), `"bookmaker": "pinnacle", "odds": {"home": 2.15`, `"bookmaker": "pinnacle", "odds": {"home": 1.90`, 1)
	require.NotEqual(t, string(raw), moved)
	require.NoError(t, os.WriteFile(path, []byte(moved), 0o644))

	_, err = a.Refresh(context.Background())
	require.NoError(t, err)
	moves := a.Movements()
	require.Len(t, moves, 1)
	assert.Equal(t, "f2", moves[0].FixtureID)
	assert.Equal(t, "pinnacle", moves[0].Bookmaker)
	assert.Equal(t, models.OutcomeHome, moves[0].Outcome)
	assert.Equal(t, value.DirectionDrop, moves[0].Direction)
	assert.True(t, moves[0].Steam)

	state := bankroll.NewState(decimal.NewFromInt(1000), testNow)
	rec, err := a.Recommend(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, moves, rec.Movements)

	_, err = a.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, a.Movements(), "unchanged quotes do not move")
}

func TestRecommendWhileHalted(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")
	_, err := a.Refresh(context.Background())
	require.NoError(t, err)

	state := bankroll.NewState(decimal.NewFromInt(1000), testNow)
	a.Bankroll().Halt(state, "test")

	rec, err := a.Recommend(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, rec.Halted)
	assert.Equal(t, models.HaltManual, rec.Halted.Reason)
	for _, bet := range rec.Singles {
		assert.True(t, bet.Stake.IsZero())
	}
	assert.True(t, rec.Bankroll.Halted)
}

func TestSettleThroughAdvisor(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")
	state := bankroll.NewState(decimal.NewFromInt(1000), testNow)

	stats, err := a.Settle(state, bankroll.Settlement{Stake: decimal.NewFromInt(50), Odds: 1.55, Result: bankroll.ResultWin})
	require.NoError(t, err)
	assert.Equal(t, "1027.50", stats.Balance.StringFixed(2))
}

func TestFitStrengths(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")
	_, err := a.Refresh(context.Background())
	require.NoError(t, err)

	est, err := a.FitStrengths(testNow)
	require.NoError(t, err)
	assert.Len(t, est.Teams, 4)
	require.True(t, est.Fitted)
	// one 2-1 home win and one goalless draw
	assert.InDelta(t, 2.0, est.HomeAdvantage, 1e-12)
	assert.Equal(t, est.HomeAdvantage, a.scoreline.HomeAdvantage())

	chelsea, err := a.Ratings().Team("chelsea")
	require.NoError(t, err)
	assert.Equal(t, est.Teams["chelsea"].Attack, chelsea.Attack)
}

func TestFitStrengthsWithoutResultsKeepsHomeAdvantage(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")
	configured := a.scoreline.HomeAdvantage()

	est, err := a.FitStrengths(testNow)
	require.NoError(t, err)
	assert.False(t, est.Fitted)
	assert.Equal(t, configured, a.scoreline.HomeAdvantage())
}

func TestSession(t *testing.T) {
	a := newTestAdvisor(t, "snapshot.json")
	state := bankroll.NewState(decimal.NewFromInt(1000), testNow)
	s := NewSession(a, state, newTestLogger())

	assert.True(t, s.ScanState().LoadedAt.IsZero())
	assert.Nil(t, s.Last())

	require.NoError(t, s.Rescan(context.Background()))
	scan := s.ScanState()
	assert.False(t, scan.LoadedAt.IsZero())
	assert.False(t, scan.LastScan.IsZero())
	assert.NoError(t, scan.Err)
	require.NotNil(t, s.Last())
	assert.NotEmpty(t, s.Last().Singles)
	assert.Equal(t, len(s.Last().Singles), scan.Signals)
	assert.NotNil(t, s.Status())

	a.Bankroll().Halt(state, "test")
	s.Roll(testNow.AddDate(0, 0, 1))
	assert.True(t, a.Bankroll().Stats(state).Halted)
}

func TestSessionKeepsLastRecommendationOnFailure(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "snapshot.json"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	a := newTestAdvisorAt(t, path, nil)
	s := NewSession(a, bankroll.NewState(decimal.NewFromInt(1000), testNow), newTestLogger())
	require.NoError(t, s.Rescan(context.Background()))
	last := s.Last()

	require.NoError(t, os.Remove(path))
	err = s.Rescan(context.Background())
	require.Error(t, err)

	scan := s.ScanState()
	assert.True(t, errors.Is(scan.Err, datasource.ErrNotFound))
	assert.False(t, scan.LoadedAt.IsZero(), "previous snapshot stays loaded")
	assert.Same(t, last, s.Last())
}

func mustSnapshot(a *Advisor) *value.Snapshot {
	snap, _ := a.Snapshot()
	return snap
}
