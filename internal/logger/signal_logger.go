// Package logger provides value-detection logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// SignalLogger provides dedicated logging for value detection.
type SignalLogger struct {
	*logrus.Entry
}

// NewSignalLogger creates a new signal logger.
func NewSignalLogger(baseLogger *logrus.Logger) *SignalLogger {
	return &SignalLogger{
		Entry: baseLogger.WithField("component", "value"),
	}
}

// LogSignalEmitted logs an emitted value signal.
func (sl *SignalLogger) LogSignalEmitted(fixtureID, market, outcome, bookmaker, confidence string, probability, odds, edge float64, confirmations int, sharp bool) {
	sl.WithFields(logrus.Fields{
		"fixture_id":      fixtureID,
		"market":          market,
		"outcome":         outcome,
		"bookmaker":       bookmaker,
		"confidence":      confidence,
		"probability":     probability,
		"odds":            odds,
		"edge":            edge,
		"confirmations":   confirmations,
		"sharp_confirmed": sharp,
	}).Info("Value signal emitted")
}

// LogSignalRejected logs a candidate that failed a gate.
func (sl *SignalLogger) LogSignalRejected(fixtureID, market, outcome, gate string, edge float64) {
	sl.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"market":     market,
		"outcome":    outcome,
		"gate":       gate,
		"edge":       edge,
	}).Debug("Value candidate rejected")
}

// LogSharpVeto logs a candidate vetoed because sharp money disagrees.
func (sl *SignalLogger) LogSharpVeto(fixtureID, market, outcome, sharpBook string, gap float64) {
	sl.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"market":     market,
		"outcome":    outcome,
		"sharp_book": sharpBook,
		"gap":        gap,
	}).Info("Value candidate vetoed by sharp book")
}

// LogDegradedFairOdds logs a de-margining fallback.
func (sl *SignalLogger) LogDegradedFairOdds(fixtureID, market, method, fallback string, err error) {
	sl.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"market":     market,
		"method":     method,
		"fallback":   fallback,
		"error":      err,
	}).Warn("Fair odds degraded to fallback method")
}

// LogFixtureSkipped logs a fixture or market that could not be evaluated.
func (sl *SignalLogger) LogFixtureSkipped(fixtureID, market string, err error) {
	sl.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"market":     market,
		"error":      err,
	}).Warn("Skipped evaluation")
}

// LogScanCompleted logs a finished scan.
func (sl *SignalLogger) LogScanCompleted(fixtures, signals, failures int, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"fixtures":         fixtures,
		"signals":          signals,
		"failures":         failures,
		"scan_duration_ms": durationMs,
	}).Info("Value scan completed")
}

// LogExpressBuilt logs the outcome of accumulator construction.
func (sl *SignalLogger) LogExpressBuilt(poolSize, candidates, kept int, bestEdge float64) {
	sl.WithFields(logrus.Fields{
		"pool_size":  poolSize,
		"candidates": candidates,
		"kept":       kept,
		"best_edge":  bestEdge,
	}).Info("Express combos built")
}

// LogSystemBuilt logs a system bet.
func (sl *SignalLogger) LogSystemBuilt(shape string, combinations int, expectedEdge float64) {
	sl.WithFields(logrus.Fields{
		"shape":         shape,
		"combinations":  combinations,
		"expected_edge": expectedEdge,
	}).Info("System bet built")
}

// LogLineMovement logs a price move between two quote refreshes. Steam
// moves log at warn.
func (sl *SignalLogger) LogLineMovement(fixtureID, market, outcome, bookmaker, direction string, oldOdds, newOdds, change float64, steam bool) {
	entry := sl.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"market":     market,
		"outcome":    outcome,
		"bookmaker":  bookmaker,
		"direction":  direction,
		"old_odds":   oldOdds,
		"new_odds":   newOdds,
		"change":     change,
		"steam":      steam,
	})
	if steam {
		entry.Warn("Steam move detected")
		return
	}
	entry.Info("Line moved")
}
