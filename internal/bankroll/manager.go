package bankroll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/logger"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
)

// Resume policies
const (
	ResumeManual  = "manual"
	ResumeNextDay = "next_day"
)

// Stake kinds
const (
	KindSingle  = "single"
	KindExpress = "express"
	KindSystem  = "system"
)

var (
	// ErrInvalidSettlement is returned for settlements that cannot be applied.
	ErrInvalidSettlement = errors.New("invalid settlement")
	// ErrExposureLimit is returned when a placement would push open stakes
	// past the configured share of the balance.
	ErrExposureLimit = errors.New("open exposure limit reached")
)

// Result is the outcome of a settled bet.
type Result string

// Settlement results
const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultPush Result = "push"
)

// Stake is a sizing decision. A zero Amount means no bet. System stakes
// split Amount equally over Combinations.
type Stake struct {
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Fraction     float64         `json:"fraction"`
	Multiplier   float64         `json:"multiplier"`
	Combinations int             `json:"combinations,omitempty"`
}

// IsZero reports whether the stake recommends no bet.
func (s Stake) IsZero() bool { return s.Amount.IsZero() }

// Settlement is a graded bet.
type Settlement struct {
	Stake  decimal.Decimal `json:"stake"`
	Odds   float64         `json:"odds"`
	Result Result          `json:"result"`
}

// PnL returns the profit or loss the settlement books.
func (s Settlement) PnL() decimal.Decimal {
	switch s.Result {
	case ResultWin:
		return s.Stake.Mul(decimal.NewFromFloat(s.Odds - 1))
	case ResultLoss:
		return s.Stake.Neg()
	default:
		return decimal.Zero
	}
}

func (s Settlement) validate() error {
	switch s.Result {
	case ResultWin, ResultLoss, ResultPush:
	default:
		return fmt.Errorf("%w: unknown result %q", ErrInvalidSettlement, s.Result)
	}
	if !s.Stake.IsPositive() {
		return fmt.Errorf("%w: stake must be positive, got %s", ErrInvalidSettlement, s.Stake)
	}
	if s.Odds <= 1 {
		return fmt.Errorf("%w: odds must exceed 1, got %g", ErrInvalidSettlement, s.Odds)
	}
	return nil
}

// Manager applies the staking and stop-loss rules to bankroll states.
// It holds no bankroll data itself, so one Manager serves any number of
// States.
type Manager struct {
	cfg   config.BankrollConfig
	dims  []dimension
	audit *logger.AuditLogger
	now   func() time.Time
}

// NewManager creates a manager, failing fast on invalid configuration.
func NewManager(cfg config.BankrollConfig, log *logrus.Logger) (*Manager, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:   cfg,
		dims:  dimensions(cfg),
		audit: logger.NewAuditLogger(log),
		now:   time.Now,
	}, nil
}

// SetClock replaces the time source used for automatic rollovers.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Multiplier returns the Kelly multiplier for a streak and drawdown.
func (m *Manager) Multiplier(consecutiveLosses int, drawdown float64) float64 {
	return reduce(m.dims, exposure{losses: consecutiveLosses, drawdown: drawdown})
}

// Size returns the stake for a single-leg signal.
func (m *Manager) Size(s *State, signal models.Signal) (Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.rollLocked(s, m.now())
	if err := s.haltedError(); err != nil {
		return Stake{}, err
	}
	stake := m.kelly(s, KindSingle, signal.Probability, signal.Odds, 1.0, m.cfg.MaxBetFraction)
	if !stake.IsZero() {
		m.audit.LogStakeSized(signal.FixtureID, signal.Market.Key(), string(signal.Outcome),
			signal.Odds, signal.Edge, stake.Fraction, stake.Multiplier, stake.Amount.InexactFloat64())
	}
	return stake, nil
}

// SizeExpress returns the stake for an accumulator, sized on its discounted
// probability and scaled down further than singles.
func (m *Manager) SizeExpress(s *State, combo models.ExpressCombo) (Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.rollLocked(s, m.now())
	if err := s.haltedError(); err != nil {
		return Stake{}, err
	}
	stake := m.kelly(s, KindExpress, combo.AdjustedProbability, combo.CombinedOdds,
		m.cfg.ExpressKellyScale, m.cfg.MaxExpressFraction)
	if !stake.IsZero() {
		m.audit.LogStakeSized(strings.Join(combo.FixtureIDs(), "+"), KindExpress,
			fmt.Sprintf("%d_legs", len(combo.Legs)), combo.CombinedOdds, combo.AdjustedEdge,
			stake.Fraction, stake.Multiplier, stake.Amount.InexactFloat64())
	}
	return stake, nil
}

// kelly computes f0 x multiplier x scale x edge/(odds-1) of the available
// balance, floored at zero, capped at maxFraction and at the open exposure
// room left.
func (m *Manager) kelly(s *State, kind string, probability, odds, scale, maxFraction float64) Stake {
	multiplier := m.Multiplier(s.consecutiveLosses, s.drawdown())
	stake := Stake{Kind: kind, Amount: decimal.Zero, Multiplier: multiplier}
	available := s.available()
	if odds <= 1 || probability <= 0 || !available.IsPositive() {
		return stake
	}
	full := models.Edge(probability, odds) / (odds - 1)
	if full <= 0 {
		return stake
	}
	fraction := min(m.cfg.KellyFraction*multiplier*scale*full, maxFraction)

	amount := available.Mul(decimal.NewFromFloat(fraction)).Round(2)
	if room := s.room(m.cfg.MaxOpenExposure); amount.GreaterThan(room) {
		amount = room
		fraction = amount.Div(available).InexactFloat64()
	}
	if amount.LessThan(decimal.NewFromFloat(m.cfg.MinStake)) || !amount.IsPositive() {
		return stake
	}
	stake.Amount = amount
	stake.Fraction = fraction
	metrics.RecordStakeSized(kind)
	return stake
}

// SizeSystem returns the stake for a system bet: MaxSystemFraction of the
// available balance scaled by the Kelly multiplier, split equally over the
// combinations. Systems without positive expected edge get no stake.
func (m *Manager) SizeSystem(s *State, system models.SystemBet) (Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.rollLocked(s, m.now())
	if err := s.haltedError(); err != nil {
		return Stake{}, err
	}
	multiplier := m.Multiplier(s.consecutiveLosses, s.drawdown())
	stake := Stake{Kind: KindSystem, Amount: decimal.Zero, Multiplier: multiplier}
	n := len(system.Combinations)
	available := s.available()
	if n == 0 || system.ExpectedEdge <= 0 || !available.IsPositive() {
		return stake, nil
	}

	total := available.Mul(decimal.NewFromFloat(m.cfg.MaxSystemFraction)).Mul(decimal.NewFromFloat(multiplier))
	if room := s.room(m.cfg.MaxOpenExposure); total.GreaterThan(room) {
		total = room
	}
	count := decimal.NewFromInt(int64(n))
	per := total.Div(count).RoundDown(2)
	if per.LessThan(decimal.NewFromFloat(m.cfg.MinStake)) || !per.IsPositive() {
		return stake, nil
	}
	stake.Amount = per.Mul(count)
	stake.Combinations = n
	stake.Fraction = stake.Amount.Div(available).InexactFloat64()

	metrics.RecordStakeSized(KindSystem)
	m.audit.LogStakeSized(strings.Join(system.FixtureIDs(), "+"), KindSystem, system.Shape(),
		system.ExpectedReturn, system.ExpectedEdge, stake.Fraction, multiplier, stake.Amount.InexactFloat64())
	return stake, nil
}

// Place reserves a sized stake until it settles, so later sizing works from
// the balance net of open stakes.
func (m *Manager) Place(s *State, stake Stake) error {
	if !stake.Amount.IsPositive() {
		return fmt.Errorf("%w: stake must be positive, got %s", ErrExposureLimit, stake.Amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.rollLocked(s, m.now())
	if err := s.haltedError(); err != nil {
		return err
	}
	if stake.Amount.GreaterThan(s.room(m.cfg.MaxOpenExposure)) {
		return fmt.Errorf("%w: %s open, %s requested, cap %.0f%% of %s", ErrExposureLimit,
			s.pending.StringFixed(2), stake.Amount.StringFixed(2), m.cfg.MaxOpenExposure*100, s.balance.StringFixed(2))
	}
	s.pending = s.pending.Add(stake.Amount)
	m.audit.LogStakePlaced(stake.Kind, stake.Amount.InexactFloat64(), s.pending.InexactFloat64(), s.balance.InexactFloat64())
	m.publish(s)
	return nil
}

// Settle books a graded bet, releases its placed stake and re-evaluates the
// stop-loss limits. Settlements are accepted while halted.
func (m *Manager) Settle(s *State, settlement Settlement) (Stats, error) {
	if err := settlement.validate(); err != nil {
		return Stats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	m.rollLocked(s, now)

	s.pending = s.pending.Sub(decimal.Min(settlement.Stake, s.pending))
	pnl := settlement.PnL()
	s.balance = s.balance.Add(pnl)
	s.dailyPnL = s.dailyPnL.Add(pnl)
	s.weeklyPnL = s.weeklyPnL.Add(pnl)
	s.staked = s.staked.Add(settlement.Stake)
	if s.balance.GreaterThan(s.peak) {
		s.peak = s.balance
	}
	switch settlement.Result {
	case ResultWin:
		s.won++
		s.consecutiveLosses = 0
	case ResultLoss:
		s.lost++
		s.consecutiveLosses++
	case ResultPush:
		s.pushed++
	}

	metrics.RecordBetSettled(string(settlement.Result))
	m.audit.LogBetSettled(string(settlement.Result), settlement.Stake.InexactFloat64(),
		settlement.Odds, pnl.InexactFloat64(), s.balance.InexactFloat64(), s.consecutiveLosses)

	if !s.halted {
		if reason, detail := m.breach(s); reason != models.HaltNone {
			m.haltLocked(s, reason, detail)
		}
	}
	m.publish(s)
	return m.stats(s), nil
}

// breach returns the first stop-loss limit the state violates, checked in
// the order daily, weekly, streak, drawdown, balance.
func (m *Manager) breach(s *State) (models.HaltReason, string) {
	if loss := s.dailyPnL.Neg(); loss.GreaterThan(s.startOfDay.Mul(decimal.NewFromFloat(m.cfg.MaxDailyLossPercent))) {
		return models.HaltDailyLoss, fmt.Sprintf("daily loss %s exceeds %.0f%% of %s",
			loss.StringFixed(2), m.cfg.MaxDailyLossPercent*100, s.startOfDay.StringFixed(2))
	}
	if loss := s.weeklyPnL.Neg(); loss.GreaterThan(s.startOfWeek.Mul(decimal.NewFromFloat(m.cfg.MaxWeeklyLossPercent))) {
		return models.HaltWeeklyLoss, fmt.Sprintf("weekly loss %s exceeds %.0f%% of %s",
			loss.StringFixed(2), m.cfg.MaxWeeklyLossPercent*100, s.startOfWeek.StringFixed(2))
	}
	if s.consecutiveLosses >= m.cfg.MaxLosingStreak {
		return models.HaltLosingStreak, fmt.Sprintf("%d losses in a row", s.consecutiveLosses)
	}
	if dd := s.drawdown(); dd >= m.cfg.MaxDrawdown {
		return models.HaltMaxDrawdown, fmt.Sprintf("drawdown %.1f%% from peak %s", dd*100, s.peak.StringFixed(2))
	}
	if !s.balance.GreaterThan(decimal.NewFromFloat(m.cfg.MinBalance)) {
		return models.HaltMinBalance, fmt.Sprintf("balance %s at or below %.2f", s.balance.StringFixed(2), m.cfg.MinBalance)
	}
	return models.HaltNone, ""
}

func (m *Manager) haltLocked(s *State, reason models.HaltReason, detail string) {
	s.halt(reason, detail)
	metrics.RecordHalt(string(reason))
	m.audit.LogHalt(string(reason), detail, s.snapshot())
}

// Halt stops a bankroll by operator request.
func (m *Manager) Halt(s *State, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.halted {
		m.haltLocked(s, models.HaltManual, detail)
		m.publish(s)
	}
}

// Resume clears a halt and the losing streak. It reports whether the
// bankroll was halted.
func (m *Manager) Resume(s *State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.halted {
		return false
	}
	previous := s.clearHalt()
	metrics.RecordResume()
	m.audit.LogResume(string(previous), ResumeManual)
	m.publish(s)
	return true
}

// Roll applies day and ISO week boundaries up to now. Under the next_day
// policy a new day lifts a halt only if no limit is still breached after
// the reset; otherwise the bankroll stays halted with the remaining reason.
func (m *Manager) Roll(s *State, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.rollLocked(s, now)
	m.publish(s)
}

func (m *Manager) rollLocked(s *State, now time.Time) {
	day := utcDay(now)
	if !day.After(s.day) {
		return
	}
	s.day = day
	s.startOfDay = s.balance
	s.dailyPnL = decimal.Zero
	balance := s.balance.InexactFloat64()
	m.audit.LogRollover("day", day, balance)

	if year, week := day.ISOWeek(); year != s.year || week != s.week {
		s.year, s.week = year, week
		s.startOfWeek = s.balance
		s.weeklyPnL = decimal.Zero
		m.audit.LogRollover("week", day, balance)
	}

	if s.halted && m.cfg.ResumePolicy == ResumeNextDay && s.haltReason != models.HaltManual {
		previous := s.clearHalt()
		if reason, detail := m.breach(s); reason != models.HaltNone {
			if reason == previous {
				s.halt(reason, detail)
				return
			}
			m.haltLocked(s, reason, detail)
			return
		}
		metrics.RecordResume()
		m.audit.LogResume(string(previous), ResumeNextDay)
	}
}

// Fork rolls s up to now and returns an independent copy of it. Stakes
// sized and placed on the copy leave s untouched.
func (m *Manager) Fork(s *State) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.rollLocked(s, m.now())
	return s.cloneLocked()
}

// Stats returns a snapshot of s.
func (m *Manager) Stats(s *State) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.stats(s)
}

func (m *Manager) stats(s *State) Stats {
	drawdown := s.drawdown()
	multiplier := m.Multiplier(s.consecutiveLosses, drawdown)
	profit := s.balance.Sub(s.initial)
	roi := 0.0
	if s.staked.IsPositive() {
		roi = profit.Div(s.staked).InexactFloat64()
	}
	return Stats{
		Balance:           s.balance,
		Initial:           s.initial,
		Peak:              s.peak,
		Drawdown:          drawdown,
		DailyPnL:          s.dailyPnL,
		WeeklyPnL:         s.weeklyPnL,
		ConsecutiveLosses: s.consecutiveLosses,
		Multiplier:        multiplier,
		KellyFraction:     m.cfg.KellyFraction * multiplier,
		Settled:           s.won + s.lost + s.pushed,
		Won:               s.won,
		Lost:              s.lost,
		Pushed:            s.pushed,
		Staked:            s.staked,
		OpenExposure:      s.pending,
		Available:         s.available(),
		Profit:            profit,
		ROI:               roi,
		Halted:            s.halted,
		HaltReason:        s.haltReason,
		HaltDetail:        s.haltDetail,
	}
}

func (m *Manager) publish(s *State) {
	drawdown := s.drawdown()
	metrics.UpdateBankroll(s.balance.InexactFloat64(), s.dailyPnL.InexactFloat64(),
		drawdown, m.Multiplier(s.consecutiveLosses, drawdown))
	metrics.UpdateOpenExposure(s.pending.InexactFloat64())
}
