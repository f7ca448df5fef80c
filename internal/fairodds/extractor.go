package fairodds

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/logger"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
)

// Extractor applies the configured method and falls back to multiplicative
// normalisation, marked degraded, when the root finder fails.
type Extractor struct {
	method        Method
	fallback      Method
	referenceBook string
	cache         *ConsensusCache
	logger        *logger.SignalLogger
}

// NewExtractor creates an extractor for the configured method.
func NewExtractor(cfg config.FairOddsConfig, log *logrus.Logger) (*Extractor, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	registry := NewRegistry(Bisector{MaxIterations: cfg.MaxIterations, Tolerance: cfg.Tolerance})
	method, err := registry.Get(cfg.Method)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		method:        method,
		fallback:      Multiplicative{},
		referenceBook: cfg.ReferenceBook,
		cache:         NewConsensusCache(time.Duration(cfg.ConsensusTTLSeconds) * time.Second),
		logger:        logger.NewSignalLogger(log),
	}, nil
}

// Method returns the active method.
func (e *Extractor) Method() Method {
	return e.method
}

// Cache returns the consensus memo.
func (e *Extractor) Cache() *ConsensusCache {
	return e.cache
}

// ResetConsensus drops every memoised consensus and returns the lookups
// counted since the previous reset.
func (e *Extractor) ResetConsensus() (hits, misses uint64) {
	hits, misses, _ = e.cache.Stats()
	e.cache.Clear()
	return hits, misses
}

// Fair de-margins one quote set. Invalid sets fail with a QuoteSetError;
// convergence failures degrade instead of failing.
func (e *Extractor) Fair(qs models.QuoteSet) (models.Distribution, error) {
	dist, err := e.method.Fair(qs)
	if err == nil {
		return dist, nil
	}
	if !errors.Is(err, models.ErrNoConvergence) {
		return models.Distribution{}, err
	}

	fallback, ferr := e.fallback.Fair(qs)
	if ferr != nil {
		return models.Distribution{}, ferr
	}
	metrics.RecordFairOddsFallback(e.method.Name())
	e.logger.LogDegradedFairOdds(qs.FixtureID, qs.Market.Key(), e.method.Name(), e.fallback.Name(), err)
	return fallback.AsDegraded(), nil
}

// Consensus returns the market's fair distribution for a fixture: the
// reference book's when configured and quoted, otherwise the average across
// every complete, valid book. Sets for other markets are ignored and invalid
// sets are skipped. The result is memoised per quote refresh.
func (e *Extractor) Consensus(fixtureID string, market models.Market, sets []models.QuoteSet) (models.Distribution, error) {
	usable := make([]models.QuoteSet, 0, len(sets))
	var latest time.Time
	for _, qs := range sets {
		if qs.FixtureID != fixtureID || qs.Market != market || !qs.Complete() {
			continue
		}
		usable = append(usable, qs)
		if ts := qs.UpdatedAt(); ts.After(latest) {
			latest = ts
		}
	}
	if len(usable) == 0 {
		return models.Distribution{}, &models.QuoteSetError{
			FixtureID: fixtureID,
			Market:    market.Key(),
			Reason:    "no complete quote set for market",
		}
	}

	key := ConsensusKey{
		FixtureID: fixtureID,
		Market:    market.Key(),
		Method:    e.method.Name(),
		Books:     len(usable),
		UpdatedAt: latest,
	}
	if dist, ok := e.cache.Get(key); ok {
		return dist, nil
	}

	dist, err := e.consensus(fixtureID, market, usable)
	if err != nil {
		return models.Distribution{}, err
	}
	e.cache.Set(key, dist)
	return dist, nil
}

func (e *Extractor) consensus(fixtureID string, market models.Market, sets []models.QuoteSet) (models.Distribution, error) {
	if e.referenceBook != "" {
		for _, qs := range sets {
			if qs.Bookmaker == e.referenceBook {
				dist, err := e.Fair(qs)
				if err != nil {
					return models.Distribution{}, err
				}
				return dist.WithSource("consensus:" + e.referenceBook), nil
			}
		}
	}

	totals := make(map[models.Outcome]float64, len(market.Outcomes()))
	used, degraded := 0, false
	var lastErr error
	for _, qs := range sets {
		dist, err := e.Fair(qs)
		if err != nil {
			lastErr = err
			e.logger.LogFixtureSkipped(fixtureID, market.Key(), fmt.Errorf("bookmaker %s: %w", qs.Bookmaker, err))
			continue
		}
		for outcome, p := range dist.Map() {
			totals[outcome] += p
		}
		degraded = degraded || dist.Degraded()
		used++
	}
	if used == 0 {
		return models.Distribution{}, lastErr
	}

	for outcome := range totals {
		totals[outcome] /= float64(used)
	}
	dist, err := models.Normalize(totals)
	if err != nil {
		return models.Distribution{}, err
	}
	dist = dist.WithSource("consensus:" + e.method.Name())
	if degraded {
		dist = dist.AsDegraded()
	}
	return dist, nil
}
