// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides the audit trail for bankroll state changes.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogStakeSized logs a stake recommendation.
func (al *AuditLogger) LogStakeSized(fixtureID, market, outcome string, odds, edge, fraction, multiplier, stake float64) {
	al.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"market":     market,
		"outcome":    outcome,
		"odds":       odds,
		"edge":       edge,
		"fraction":   fraction,
		"multiplier": multiplier,
		"stake":      stake,
	}).Info("Stake sized")
}

// LogStakePlaced logs a stake reserved against the bankroll.
func (al *AuditLogger) LogStakePlaced(kind string, amount, openExposure, balance float64) {
	al.WithFields(logrus.Fields{
		"kind":          kind,
		"amount":        amount,
		"open_exposure": openExposure,
		"balance":       balance,
	}).Info("Stake placed")
}

// LogBetSettled logs a settled bet and the resulting balance.
func (al *AuditLogger) LogBetSettled(result string, stake, odds, pnl, balance float64, consecutiveLosses int) {
	al.WithFields(logrus.Fields{
		"result":             result,
		"stake":              stake,
		"odds":               odds,
		"pnl":                pnl,
		"balance":            balance,
		"consecutive_losses": consecutiveLosses,
	}).Info("Bet settled")
}

// LogHalt logs a transition into the halted state.
func (al *AuditLogger) LogHalt(reason, detail string, snapshot map[string]interface{}) {
	al.WithFields(logrus.Fields{
		"reason":   reason,
		"detail":   detail,
		"snapshot": snapshot,
	}).Warn("Betting halted")
}

// LogResume logs a halt being cleared.
func (al *AuditLogger) LogResume(previousReason, trigger string) {
	al.WithFields(logrus.Fields{
		"previous_reason": previousReason,
		"trigger":         trigger,
	}).Info("Betting resumed")
}

// LogRollover logs a day or week boundary reset.
func (al *AuditLogger) LogRollover(period string, at time.Time, balance float64) {
	al.WithFields(logrus.Fields{
		"period":    period,
		"at":        at.UTC().Format(time.RFC3339),
		"balance":   balance,
		"timestamp": at.Unix(),
	}).Info("Bankroll period rolled over")
}
