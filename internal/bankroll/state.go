// Package bankroll sizes stakes with adaptive fractional Kelly and halts
// betting when stop-loss limits are breached.
package bankroll

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/oddsedge/internal/models"
)

// State is one bankroll. It is owned by the caller and passed to every
// Manager operation; all reads and writes go through its mutex.
type State struct {
	mu sync.Mutex

	balance           decimal.Decimal
	initial           decimal.Decimal
	peak              decimal.Decimal
	startOfDay        decimal.Decimal
	startOfWeek       decimal.Decimal
	dailyPnL          decimal.Decimal
	weeklyPnL         decimal.Decimal
	staked            decimal.Decimal
	pending           decimal.Decimal
	consecutiveLosses int
	won               int
	lost              int
	pushed            int

	halted     bool
	haltReason models.HaltReason
	haltDetail string

	day  time.Time
	year int
	week int
}

// NewState opens a bankroll with the given balance at now.
func NewState(balance decimal.Decimal, now time.Time) *State {
	s := &State{
		balance:     balance,
		initial:     balance,
		peak:        balance,
		startOfDay:  balance,
		startOfWeek: balance,
	}
	s.day = utcDay(now)
	s.year, s.week = now.UTC().ISOWeek()
	return s
}

// Stats is a point-in-time view of a bankroll.
type Stats struct {
	Balance           decimal.Decimal   `json:"balance"`
	Initial           decimal.Decimal   `json:"initial"`
	Peak              decimal.Decimal   `json:"peak"`
	Drawdown          float64           `json:"drawdown"`
	DailyPnL          decimal.Decimal   `json:"daily_pnl"`
	WeeklyPnL         decimal.Decimal   `json:"weekly_pnl"`
	ConsecutiveLosses int               `json:"consecutive_losses"`
	Multiplier        float64           `json:"multiplier"`
	KellyFraction     float64           `json:"kelly_fraction"`
	Settled           int               `json:"settled"`
	Won               int               `json:"won"`
	Lost              int               `json:"lost"`
	Pushed            int               `json:"pushed"`
	Staked            decimal.Decimal   `json:"staked"`
	OpenExposure      decimal.Decimal   `json:"open_exposure"`
	Available         decimal.Decimal   `json:"available"`
	Profit            decimal.Decimal   `json:"profit"`
	ROI               float64           `json:"roi"`
	Halted            bool              `json:"halted"`
	HaltReason        models.HaltReason `json:"halt_reason,omitempty"`
	HaltDetail        string            `json:"halt_detail,omitempty"`
}

// drawdown is 1 - balance/peak, or 0 before any balance exists.
func (s *State) drawdown() float64 {
	if !s.peak.IsPositive() {
		return 0
	}
	dd := decimal.NewFromInt(1).Sub(s.balance.Div(s.peak)).InexactFloat64()
	if dd < 0 {
		return 0
	}
	return dd
}

// available is the balance not tied up in placed, unsettled stakes.
func (s *State) available() decimal.Decimal {
	a := s.balance.Sub(s.pending)
	if a.IsNegative() {
		return decimal.Zero
	}
	return a
}

// room is how much more may be placed before open stakes reach
// maxOpen of the balance.
func (s *State) room(maxOpen float64) decimal.Decimal {
	r := s.balance.Mul(decimal.NewFromFloat(maxOpen)).Sub(s.pending).RoundDown(2)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// cloneLocked copies every field except the mutex.
func (s *State) cloneLocked() *State {
	return &State{
		balance:           s.balance,
		initial:           s.initial,
		peak:              s.peak,
		startOfDay:        s.startOfDay,
		startOfWeek:       s.startOfWeek,
		dailyPnL:          s.dailyPnL,
		weeklyPnL:         s.weeklyPnL,
		staked:            s.staked,
		pending:           s.pending,
		consecutiveLosses: s.consecutiveLosses,
		won:               s.won,
		lost:              s.lost,
		pushed:            s.pushed,
		halted:            s.halted,
		haltReason:        s.haltReason,
		haltDetail:        s.haltDetail,
		day:               s.day,
		year:              s.year,
		week:              s.week,
	}
}

func (s *State) haltedError() error {
	if !s.halted {
		return nil
	}
	return &models.HaltedError{Reason: s.haltReason, Detail: s.haltDetail}
}

func (s *State) halt(reason models.HaltReason, detail string) {
	s.halted = true
	s.haltReason = reason
	s.haltDetail = detail
}

func (s *State) clearHalt() models.HaltReason {
	previous := s.haltReason
	s.halted = false
	s.haltReason = models.HaltNone
	s.haltDetail = ""
	s.consecutiveLosses = 0
	return previous
}

func (s *State) snapshot() map[string]interface{} {
	return map[string]interface{}{
		"balance":            s.balance.StringFixed(2),
		"peak":               s.peak.StringFixed(2),
		"drawdown":           s.drawdown(),
		"daily_pnl":          s.dailyPnL.StringFixed(2),
		"weekly_pnl":         s.weeklyPnL.StringFixed(2),
		"open_exposure":      s.pending.StringFixed(2),
		"consecutive_losses": s.consecutiveLosses,
	}
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
