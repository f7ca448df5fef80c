package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the decision pipeline
var (
	ErrInvalidRatingState  = errors.New("invalid rating state")
	ErrInvalidQuoteSet     = errors.New("invalid quote set")
	ErrNoConvergence       = errors.New("root finder did not converge")
	ErrConfiguration       = errors.New("configuration error")
	ErrBettingHalted       = errors.New("betting halted")
	ErrInvalidDistribution = errors.New("invalid probability distribution")
	ErrNotFound            = errors.New("record not found")
)

// RatingStateError reports degenerate model inputs. It is never retried.
type RatingStateError struct {
	HomeTeam   string
	AwayTeam   string
	LambdaHome float64
	LambdaAway float64
	Reason     string
}

func (e *RatingStateError) Error() string {
	return fmt.Sprintf("%s: %s vs %s (lambda_home=%g, lambda_away=%g): %s",
		ErrInvalidRatingState, e.HomeTeam, e.AwayTeam, e.LambdaHome, e.LambdaAway, e.Reason)
}

func (e *RatingStateError) Unwrap() error { return ErrInvalidRatingState }

// QuoteSetError reports malformed odds for a single market.
type QuoteSetError struct {
	FixtureID string
	Market    string
	Bookmaker string
	Reason    string
}

func (e *QuoteSetError) Error() string {
	return fmt.Sprintf("%s: fixture=%s market=%s bookmaker=%s: %s",
		ErrInvalidQuoteSet, e.FixtureID, e.Market, e.Bookmaker, e.Reason)
}

func (e *QuoteSetError) Unwrap() error { return ErrInvalidQuoteSet }

// ConvergenceError reports a bisection that failed its contract.
type ConvergenceError struct {
	Method     string
	Iterations int
	Residual   float64
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: method=%s iterations=%d residual=%g: %s",
		ErrNoConvergence, e.Method, e.Iterations, e.Residual, e.Reason)
}

func (e *ConvergenceError) Unwrap() error { return ErrNoConvergence }

// ConfigurationError collects every problem found while validating configuration.
type ConfigurationError struct {
	Problems []string
}

// NewConfigurationError builds a ConfigurationError from formatted problems.
func NewConfigurationError(problems ...string) *ConfigurationError {
	return &ConfigurationError{Problems: problems}
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Problems[0])
	}
	return fmt.Sprintf("%s:\n- %s", ErrConfiguration, strings.Join(e.Problems, "\n- "))
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// HaltReason identifies which risk breach stopped a bankroll.
type HaltReason string

// Halt reasons
const (
	HaltNone         HaltReason = ""
	HaltDailyLoss    HaltReason = "daily_loss"
	HaltWeeklyLoss   HaltReason = "weekly_loss"
	HaltLosingStreak HaltReason = "losing_streak"
	HaltMaxDrawdown  HaltReason = "max_drawdown"
	HaltMinBalance   HaltReason = "min_balance"
	HaltManual       HaltReason = "manual"
)

// HaltedError is returned for every staking request against a halted bankroll.
type HaltedError struct {
	Reason HaltReason
	Detail string
}

func (e *HaltedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrBettingHalted, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrBettingHalted, e.Reason, e.Detail)
}

func (e *HaltedError) Unwrap() error { return ErrBettingHalted }
