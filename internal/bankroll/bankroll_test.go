package bankroll

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/models"
)

// monday is the start of an ISO week.
var monday = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, mutate func(*config.BankrollConfig)) (*Manager, *time.Time) {
	t.Helper()
	cfg := config.Default().Bankroll
	if mutate != nil {
		mutate(&cfg)
	}
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	m, err := NewManager(cfg, log)
	require.NoError(t, err)
	now := monday
	m.SetClock(func() time.Time { return now })
	return m, &now
}

func loose(c *config.BankrollConfig) {
	c.MaxDailyLossPercent = 1
	c.MaxWeeklyLossPercent = 1
	c.MaxLosingStreak = 1000
}

func signal(p, odds float64) models.Signal {
	return models.Signal{
		FixtureID:   "f1",
		Market:      models.MatchResultMarket(),
		Outcome:     models.OutcomeHome,
		Probability: p,
		Odds:        odds,
		Edge:        models.Edge(p, odds),
	}
}

func loss(stake int64) Settlement {
	return Settlement{Stake: decimal.NewFromInt(stake), Odds: 2.0, Result: ResultLoss}
}

func win(stake int64, odds float64) Settlement {
	return Settlement{Stake: decimal.NewFromInt(stake), Odds: odds, Result: ResultWin}
}

func TestMultiplier(t *testing.T) {
	m, _ := newTestManager(t, nil)

	tests := []struct {
		name     string
		losses   int
		drawdown float64
		want     float64
	}{
		{"fresh", 0, 0, 1.0},
		{"short streak", 2, 0, 1.0},
		{"three losses", 3, 0, 0.75},
		{"four losses", 4, 0, 0.75},
		{"five losses", 5, 0, 0.50},
		{"ten percent is not above", 0, 0.10, 1.0},
		{"shallow drawdown", 0, 0.12, 0.75},
		{"deep drawdown", 0, 0.20, 0.50},
		{"both deep", 5, 0.20, 0.50},
		{"streak deeper", 5, 0.12, 0.50},
		{"drawdown deeper", 3, 0.20, 0.50},
		{"both shallow", 3, 0.12, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Multiplier(tt.losses, tt.drawdown))
		})
	}
}

func TestMultiplierFromSettlements(t *testing.T) {
	t.Run("five losses without drawdown pressure", func(t *testing.T) {
		m, _ := newTestManager(t, nil)
		s := NewState(decimal.NewFromInt(1000), monday)
		for i := 0; i < 5; i++ {
			_, err := m.Settle(s, loss(1))
			require.NoError(t, err)
		}
		stats := m.Stats(s)
		assert.Equal(t, 5, stats.ConsecutiveLosses)
		assert.Less(t, stats.Drawdown, 0.01)
		assert.Equal(t, 0.50, stats.Multiplier)
		assert.InDelta(t, 0.10, stats.KellyFraction, 1e-12)
	})

	t.Run("twenty percent drawdown without a streak", func(t *testing.T) {
		m, _ := newTestManager(t, loose)
		s := NewState(decimal.NewFromInt(1000), monday)
		_, err := m.Settle(s, loss(250))
		require.NoError(t, err)
		stats, err := m.Settle(s, win(50, 2.0))
		require.NoError(t, err)

		assert.Equal(t, 0, stats.ConsecutiveLosses)
		assert.InDelta(t, 0.20, stats.Drawdown, 1e-12)
		assert.Equal(t, 0.50, stats.Multiplier)
	})
}

func TestSize(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.BankrollConfig)
		signal models.Signal
		want   string
	}{
		{"fractional kelly", nil, signal(0.55, 2.0), "20.00"},
		{"capped at max fraction", nil, signal(0.90, 2.0), "50.00"},
		{"negative edge", nil, signal(0.45, 2.0), "0.00"},
		{"below min stake", func(c *config.BankrollConfig) { c.MinStake = 25 }, signal(0.55, 2.0), "0.00"},
		{"degenerate odds", nil, signal(0.55, 1.0), "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, tt.mutate)
			s := NewState(decimal.NewFromInt(1000), monday)

			stake, err := m.Size(s, tt.signal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stake.Amount.StringFixed(2))
			assert.Equal(t, KindSingle, stake.Kind)
		})
	}
}

func TestSizeShrinksAfterLosses(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := NewState(decimal.NewFromInt(1000), monday)
	for i := 0; i < 3; i++ {
		_, err := m.Settle(s, loss(1))
		require.NoError(t, err)
	}

	stake, err := m.Size(s, signal(0.60, 2.0))
	require.NoError(t, err)
	// 997 x 0.20 x 0.75 x 0.20
	assert.Equal(t, "29.91", stake.Amount.StringFixed(2))
	assert.Equal(t, 0.75, stake.Multiplier)
}

func TestSizeExpress(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := NewState(decimal.NewFromInt(1000), monday)

	combo := models.ExpressCombo{
		Legs: []models.Signal{
			{FixtureID: "f1"},
			{FixtureID: "f2"},
		},
		AdjustedProbability: 0.30,
		CombinedOdds:        4.0,
		AdjustedEdge:        models.Edge(0.30, 4.0),
	}
	stake, err := m.SizeExpress(s, combo)
	require.NoError(t, err)
	// 1000 x 0.20 x 0.5 x (0.2 / 3)
	assert.Equal(t, "6.67", stake.Amount.StringFixed(2))
	assert.Equal(t, KindExpress, stake.Kind)

	combo.AdjustedProbability = 0.9
	combo.AdjustedEdge = models.Edge(0.9, 4.0)
	stake, err = m.SizeExpress(s, combo)
	require.NoError(t, err)
	assert.Equal(t, "30.00", stake.Amount.StringFixed(2))
}

func TestHaltReasons(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*config.BankrollConfig)
		settlements []Settlement
		want        models.HaltReason
	}{
		{
			name:        "daily loss",
			settlements: []Settlement{loss(81)},
			want:        models.HaltDailyLoss,
		},
		{
			name:        "within daily limit",
			settlements: []Settlement{loss(80)},
			want:        models.HaltNone,
		},
		{
			name:        "losing streak",
			settlements: []Settlement{loss(1), loss(1), loss(1), loss(1), loss(1), loss(1), loss(1)},
			want:        models.HaltLosingStreak,
		},
		{
			name:        "drawdown",
			mutate:      loose,
			settlements: []Settlement{loss(300)},
			want:        models.HaltMaxDrawdown,
		},
		{
			name: "minimum balance",
			mutate: func(c *config.BankrollConfig) {
				loose(c)
				c.MaxDrawdown = 0.9
				c.MinBalance = 500
			},
			settlements: []Settlement{loss(500)},
			want:        models.HaltMinBalance,
		},
		{
			name:        "push keeps the streak",
			settlements: []Settlement{loss(1), loss(1), loss(1), {Stake: decimal.NewFromInt(5), Odds: 3, Result: ResultPush}, loss(1), loss(1), loss(1), loss(1)},
			want:        models.HaltLosingStreak,
		},
		{
			name:        "win resets the streak",
			settlements: []Settlement{loss(1), loss(1), loss(1), win(1, 2.0), loss(1), loss(1), loss(1), loss(1)},
			want:        models.HaltNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, tt.mutate)
			s := NewState(decimal.NewFromInt(1000), monday)

			var stats Stats
			var err error
			for _, st := range tt.settlements {
				stats, err = m.Settle(s, st)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, stats.HaltReason)
			assert.Equal(t, tt.want != models.HaltNone, stats.Halted)
		})
	}
}

func TestWeeklyLossAcrossDays(t *testing.T) {
	m, now := newTestManager(t, func(c *config.BankrollConfig) { c.ResumePolicy = ResumeManual })
	s := NewState(decimal.NewFromInt(1000), monday)

	for day, stake := range []int64{70, 70, 20} {
		*now = monday.AddDate(0, 0, day)
		stats, err := m.Settle(s, loss(stake))
		require.NoError(t, err)
		if day < 2 {
			require.False(t, stats.Halted, "day %d", day)
		}
	}

	stats := m.Stats(s)
	assert.Equal(t, models.HaltWeeklyLoss, stats.HaltReason)
	assert.Equal(t, "-20.00", stats.DailyPnL.StringFixed(2))
	assert.Equal(t, "-160.00", stats.WeeklyPnL.StringFixed(2))

	m.Roll(s, monday.AddDate(0, 0, 7))
	stats = m.Stats(s)
	assert.True(t, stats.WeeklyPnL.IsZero())
	assert.True(t, stats.Halted, "manual policy keeps the halt across weeks")
}

func TestHaltedRejectsEveryRequest(t *testing.T) {
	m, _ := newTestManager(t, loose)
	s := NewState(decimal.NewFromInt(1000), monday)

	stats, err := m.Settle(s, loss(400))
	require.NoError(t, err)
	require.True(t, stats.Halted)

	huge := signal(0.99, 10.0)
	for i := 0; i < 10; i++ {
		stake, err := m.Size(s, huge)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrBettingHalted))
		assert.True(t, stake.IsZero())

		var halted *models.HaltedError
		require.True(t, errors.As(err, &halted))
		assert.Equal(t, models.HaltMaxDrawdown, halted.Reason)
	}

	_, err = m.SizeExpress(s, models.ExpressCombo{AdjustedProbability: 0.9, CombinedOdds: 3})
	assert.ErrorIs(t, err, models.ErrBettingHalted)

	// Outstanding bets still settle while halted.
	_, err = m.Settle(s, win(10, 2.0))
	require.NoError(t, err)

	assert.True(t, m.Resume(s))
	assert.False(t, m.Resume(s))
	stake, err := m.Size(s, huge)
	require.NoError(t, err)
	assert.False(t, stake.IsZero())
}

func TestResumePolicy(t *testing.T) {
	t.Run("next day clears the halt", func(t *testing.T) {
		m, now := newTestManager(t, nil)
		s := NewState(decimal.NewFromInt(1000), monday)
		_, err := m.Settle(s, loss(100))
		require.NoError(t, err)

		*now = monday.Add(6 * time.Hour)
		_, err = m.Size(s, signal(0.55, 2.0))
		assert.ErrorIs(t, err, models.ErrBettingHalted)

		*now = monday.AddDate(0, 0, 1)
		stake, err := m.Size(s, signal(0.55, 2.0))
		require.NoError(t, err)
		assert.Equal(t, "18.00", stake.Amount.StringFixed(2))
		assert.Equal(t, 0, m.Stats(s).ConsecutiveLosses)
	})

	t.Run("manual policy waits for resume", func(t *testing.T) {
		m, now := newTestManager(t, func(c *config.BankrollConfig) { c.ResumePolicy = ResumeManual })
		s := NewState(decimal.NewFromInt(1000), monday)
		_, err := m.Settle(s, loss(100))
		require.NoError(t, err)

		*now = monday.AddDate(0, 0, 3)
		_, err = m.Size(s, signal(0.55, 2.0))
		assert.ErrorIs(t, err, models.ErrBettingHalted)

		require.True(t, m.Resume(s))
		_, err = m.Size(s, signal(0.55, 2.0))
		assert.NoError(t, err)
	})

	t.Run("next day keeps a halt while a limit still holds", func(t *testing.T) {
		type step struct {
			day        int
			settlement Settlement
		}
		tests := []struct {
			name   string
			mutate func(*config.BankrollConfig)
			steps  []step
			check  int
			want   models.HaltReason
		}{
			{
				name:  "drawdown from peak",
				steps: []step{{0, win(1000, 2.0)}, {1, loss(220)}, {2, loss(220)}, {3, loss(220)}},
				check: 4,
				want:  models.HaltMaxDrawdown,
			},
			{
				name:  "weekly loss within the week",
				steps: []step{{0, loss(160)}},
				check: 1,
				want:  models.HaltWeeklyLoss,
			},
			{
				name: "minimum balance",
				mutate: func(c *config.BankrollConfig) {
					c.MaxWeeklyLossPercent = 1
					c.MinBalance = 800
				},
				steps: []step{{0, loss(250)}},
				check: 1,
				want:  models.HaltMinBalance,
			},
			{
				name:  "weekly loss lifts in a new week",
				steps: []step{{6, loss(160)}},
				check: 7,
				want:  models.HaltNone,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m, now := newTestManager(t, tt.mutate)
				s := NewState(decimal.NewFromInt(1000), monday)
				for _, st := range tt.steps {
					*now = monday.AddDate(0, 0, st.day)
					_, err := m.Settle(s, st.settlement)
					require.NoError(t, err)
				}
				require.True(t, m.Stats(s).Halted)

				*now = monday.AddDate(0, 0, tt.check)
				stake, err := m.Size(s, signal(0.55, 2.0))
				stats := m.Stats(s)
				assert.Equal(t, tt.want, stats.HaltReason)
				if tt.want == models.HaltNone {
					require.NoError(t, err)
					assert.False(t, stake.IsZero())
					assert.False(t, stats.Halted)
					return
				}
				var halted *models.HaltedError
				require.ErrorAs(t, err, &halted)
				assert.Equal(t, tt.want, halted.Reason)
				assert.True(t, stake.IsZero())
				assert.True(t, stats.Halted)
			})
		}
	})

	t.Run("operator halt survives rollover", func(t *testing.T) {
		m, _ := newTestManager(t, nil)
		s := NewState(decimal.NewFromInt(1000), monday)
		m.Halt(s, "maintenance")

		m.Roll(s, monday.AddDate(0, 0, 1))
		_, err := m.Size(s, signal(0.55, 2.0))
		var halted *models.HaltedError
		require.ErrorAs(t, err, &halted)
		assert.Equal(t, models.HaltManual, halted.Reason)
	})
}

func TestPlaceTracksOpenExposure(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := NewState(decimal.NewFromInt(1000), monday)
	strong := signal(0.90, 2.0)

	var placed []decimal.Decimal
	for i := 0; i < 10; i++ {
		stake, err := m.Size(s, strong)
		require.NoError(t, err)
		if stake.IsZero() {
			break
		}
		require.NoError(t, m.Place(s, stake))
		placed = append(placed, stake.Amount)
	}

	require.Len(t, placed, 6)
	assert.Equal(t, "50.00", placed[0].StringFixed(2))
	assert.Equal(t, "47.50", placed[1].StringFixed(2))
	for i := 1; i < len(placed); i++ {
		assert.True(t, placed[i].LessThan(placed[i-1]), "stake %d should shrink", i)
	}

	stats := m.Stats(s)
	assert.Equal(t, "250.00", stats.OpenExposure.StringFixed(2))
	assert.Equal(t, "750.00", stats.Available.StringFixed(2))
	assert.Equal(t, "1000.00", stats.Balance.StringFixed(2))

	err := m.Place(s, Stake{Kind: KindSingle, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrExposureLimit)

	stats, err = m.Settle(s, Settlement{Stake: placed[0], Odds: 2.0, Result: ResultLoss})
	require.NoError(t, err)
	assert.Equal(t, "200.00", stats.OpenExposure.StringFixed(2))
	assert.Equal(t, "950.00", stats.Balance.StringFixed(2))

	// 950 x 0.25 - 200
	stake, err := m.Size(s, strong)
	require.NoError(t, err)
	assert.Equal(t, "37.50", stake.Amount.StringFixed(2))
}

func TestForkLeavesStateUntouched(t *testing.T) {
	m, now := newTestManager(t, nil)
	s := NewState(decimal.NewFromInt(1000), monday)
	_, err := m.Settle(s, loss(100))
	require.NoError(t, err)
	require.True(t, m.Stats(s).Halted)

	*now = monday.AddDate(0, 0, 1)
	batch := m.Fork(s)
	assert.False(t, m.Stats(s).Halted, "fork rolls the original first")

	stake, err := m.Size(batch, signal(0.90, 2.0))
	require.NoError(t, err)
	require.NoError(t, m.Place(batch, stake))

	assert.Equal(t, "45.00", m.Stats(batch).OpenExposure.StringFixed(2))
	assert.True(t, m.Stats(s).OpenExposure.IsZero())
	assert.Equal(t, m.Stats(s).Balance, m.Stats(batch).Balance)
}

func TestPlaceRejects(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*Manager, *State)
		amount int64
		want   error
	}{
		{"zero stake", nil, 0, ErrExposureLimit},
		{"above the cap", nil, 251, ErrExposureLimit},
		{"halted", func(m *Manager, s *State) { m.Halt(s, "maintenance") }, 10, models.ErrBettingHalted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, nil)
			s := NewState(decimal.NewFromInt(1000), monday)
			if tt.setup != nil {
				tt.setup(m, s)
			}
			err := m.Place(s, Stake{Kind: KindSingle, Amount: decimal.NewFromInt(tt.amount)})
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, m.Stats(s).OpenExposure.IsZero())
		})
	}
}

func TestSizeSystem(t *testing.T) {
	system := func(combos int, edge float64) models.SystemBet {
		return models.SystemBet{
			Legs:         []models.Signal{{FixtureID: "f1"}, {FixtureID: "f2"}, {FixtureID: "f3"}},
			Size:         2,
			Combinations: make([]models.ExpressCombo, combos),
			ExpectedEdge: edge,
		}
	}

	tests := []struct {
		name     string
		mutate   func(*config.BankrollConfig)
		losses   int
		system   models.SystemBet
		want     string
		wantEach string
	}{
		{"split over combinations", nil, 0, system(3, 0.10), "30.00", "10.00"},
		{"no edge", nil, 0, system(3, -0.02), "0.00", "0.00"},
		{"no combinations", nil, 0, system(0, 0.10), "0.00", "0.00"},
		{"below min stake per combination", func(c *config.BankrollConfig) { c.MinStake = 15 }, 0, system(3, 0.10), "0.00", "0.00"},
		// 997 x 0.03 x 0.75 / 3, rounded down
		{"reduced after losses", nil, 3, system(3, 0.10), "22.41", "7.47"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, tt.mutate)
			s := NewState(decimal.NewFromInt(1000), monday)
			for i := 0; i < tt.losses; i++ {
				_, err := m.Settle(s, loss(1))
				require.NoError(t, err)
			}

			stake, err := m.SizeSystem(s, tt.system)
			require.NoError(t, err)
			assert.Equal(t, KindSystem, stake.Kind)
			assert.Equal(t, tt.want, stake.Amount.StringFixed(2))
			each := decimal.Zero
			if stake.Combinations > 0 {
				each = stake.Amount.Div(decimal.NewFromInt(int64(stake.Combinations)))
			}
			assert.Equal(t, tt.wantEach, each.StringFixed(2))
		})
	}

	t.Run("halted", func(t *testing.T) {
		m, _ := newTestManager(t, nil)
		s := NewState(decimal.NewFromInt(1000), monday)
		m.Halt(s, "maintenance")
		_, err := m.SizeSystem(s, system(3, 0.10))
		assert.ErrorIs(t, err, models.ErrBettingHalted)
	})
}

func TestSettleValidation(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := NewState(decimal.NewFromInt(1000), monday)

	tests := []struct {
		name       string
		settlement Settlement
	}{
		{"zero stake", Settlement{Stake: decimal.Zero, Odds: 2, Result: ResultWin}},
		{"bad odds", Settlement{Stake: decimal.NewFromInt(1), Odds: 1, Result: ResultLoss}},
		{"unknown result", Settlement{Stake: decimal.NewFromInt(1), Odds: 2, Result: "void"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Settle(s, tt.settlement)
			assert.ErrorIs(t, err, ErrInvalidSettlement)
		})
	}
	assert.Equal(t, 0, m.Stats(s).Settled)
}

func TestStats(t *testing.T) {
	m, _ := newTestManager(t, loose)
	s := NewState(decimal.NewFromInt(1000), monday)

	for _, st := range []Settlement{win(50, 2.5), loss(40), {Stake: decimal.NewFromInt(10), Odds: 2, Result: ResultPush}} {
		_, err := m.Settle(s, st)
		require.NoError(t, err)
	}

	stats := m.Stats(s)
	assert.Equal(t, "1035.00", stats.Balance.StringFixed(2))
	assert.Equal(t, "1075.00", stats.Peak.StringFixed(2))
	assert.Equal(t, "35.00", stats.Profit.StringFixed(2))
	assert.Equal(t, "100.00", stats.Staked.StringFixed(2))
	assert.InDelta(t, 0.35, stats.ROI, 1e-12)
	assert.Equal(t, 3, stats.Settled)
	assert.Equal(t, 1, stats.Won)
	assert.Equal(t, 1, stats.Lost)
	assert.Equal(t, 1, stats.Pushed)
	assert.InDelta(t, 40.0/1075.0, stats.Drawdown, 1e-12)
}

func TestConcurrentSettlement(t *testing.T) {
	m, _ := newTestManager(t, loose)
	s := NewState(decimal.NewFromInt(1000), monday)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := m.Settle(s, loss(1))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := m.Size(s, signal(0.55, 2.0))
			if err != nil {
				assert.ErrorIs(t, err, models.ErrBettingHalted)
			}
		}()
	}
	wg.Wait()

	stats := m.Stats(s)
	assert.Equal(t, "950.00", stats.Balance.StringFixed(2))
	assert.Equal(t, 50, stats.Lost)
	assert.Equal(t, 50, stats.ConsecutiveLosses)
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cfg := config.Default().Bankroll
	cfg.MaxDailyLossPercent = 0.5
	cfg.MaxWeeklyLossPercent = 0.2

	_, err := NewManager(cfg, logrus.New())
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
