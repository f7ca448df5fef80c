package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/bankroll"
	"github.com/yourusername/oddsedge/internal/health"
)

// Session binds an Advisor to one bankroll for the long-running mode. It
// is driven by the scheduler and read by the health server.
type Session struct {
	advisor *Advisor
	state   *bankroll.State
	logger  *logrus.Entry

	mu        sync.RWMutex
	last      *Recommendation
	scannedAt time.Time
	scanErr   error
}

// NewSession creates a session over state.
func NewSession(advisor *Advisor, state *bankroll.State, log *logrus.Logger) *Session {
	return &Session{
		advisor: advisor,
		state:   state,
		logger:  log.WithField("component", "session"),
	}
}

// Roll applies a day or week boundary to the session bankroll.
func (s *Session) Roll(now time.Time) {
	s.advisor.Bankroll().Roll(s.state, now)
}

// Rescan reloads the data source and recomputes the recommendation. A
// failed rescan keeps the previous recommendation and is reported as not
// ready until a later one succeeds.
func (s *Session) Rescan(ctx context.Context) error {
	rec, err := s.rescan(ctx)

	s.mu.Lock()
	s.scannedAt = time.Now()
	s.scanErr = err
	if err == nil {
		s.last = rec
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"singles":   len(rec.Singles),
		"expresses": len(rec.Expresses),
		"systems":   len(rec.Systems),
		"movements": len(rec.Movements),
		"failures":  len(rec.Failures),
		"halted":    rec.Halted != nil,
	}).Info("Recommendation updated")
	return nil
}

func (s *Session) rescan(ctx context.Context) (*Recommendation, error) {
	if _, err := s.advisor.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.advisor.Recommend(ctx, s.state)
}

// Last returns the most recent recommendation, nil before the first scan.
func (s *Session) Last() *Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// ScanState implements the health server's readiness view.
func (s *Session) ScanState() health.ScanState {
	_, loadedAt := s.advisor.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()
	state := health.ScanState{LoadedAt: loadedAt, LastScan: s.scannedAt, Err: s.scanErr}
	if s.last != nil {
		state.Signals = len(s.last.Singles)
		state.Failures = len(s.last.Failures)
		state.Halted = s.last.Halted != nil
	}
	return state
}

// Status implements the health server's bankroll view.
func (s *Session) Status() interface{} {
	return struct {
		Bankroll bankroll.Stats  `json:"bankroll"`
		Last     *Recommendation `json:"last_recommendation,omitempty"`
	}{s.advisor.Bankroll().Stats(s.state), s.Last()}
}
