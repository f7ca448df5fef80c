package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/oddsedge/internal/bankroll"
	"github.com/yourusername/oddsedge/internal/models"
	"github.com/yourusername/oddsedge/internal/rating"
	"github.com/yourusername/oddsedge/internal/value"
)

// Bet pairs a signal with its stake
type Bet struct {
	Signal models.Signal  `json:"signal"`
	Stake  bankroll.Stake `json:"stake"`
}

// ExpressBet pairs an accumulator with its stake
type ExpressBet struct {
	Combo models.ExpressCombo `json:"combo"`
	Stake bankroll.Stake      `json:"stake"`
}

// SystemBet pairs a system with its stake
type SystemBet struct {
	System models.SystemBet `json:"system"`
	Stake  bankroll.Stake   `json:"stake"`
}

// FixturePreview is the scoreline view of a fixture carrying signals
type FixturePreview struct {
	FixtureID string `json:"fixture_id"`
	rating.Preview
}

// ScanFailure is a skipped fixture market
type ScanFailure struct {
	FixtureID string `json:"fixture_id"`
	Market    string `json:"market"`
	Error     string `json:"error"`
}

// Recommendation is the outcome of one scan against one bankroll.
// Bankroll is the state after every recommended stake is placed.
type Recommendation struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Fixtures    int                 `json:"fixtures"`
	Singles     []Bet               `json:"singles"`
	Expresses   []ExpressBet        `json:"expresses"`
	Systems     []SystemBet         `json:"systems"`
	Previews    []FixturePreview    `json:"previews,omitempty"`
	Movements   []value.Movement    `json:"line_movements,omitempty"`
	Failures    []ScanFailure       `json:"failures,omitempty"`
	Halted      *models.HaltedError `json:"halted,omitempty"`
	Bankroll    bankroll.Stats      `json:"bankroll"`
	Duration    string              `json:"duration"`
}

// Recommend scans the current snapshot, builds accumulators and systems and
// sizes everything in turn. Each stake is placed on a fork of state, so the
// next one is sized from what the batch leaves available; state itself is
// not changed. A halted bankroll still yields the signals with zero stakes
// and the halt recorded.
func (a *Advisor) Recommend(ctx context.Context, state *bankroll.State) (*Recommendation, error) {
	report, err := a.Scan(ctx)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{
		GeneratedAt: time.Now().UTC(),
		Fixtures:    report.Fixtures,
		Singles:     make([]Bet, 0, len(report.Signals)),
		Movements:   a.Movements(),
		Duration:    report.Duration.String(),
	}
	for _, f := range report.Failures {
		rec.Failures = append(rec.Failures, ScanFailure{FixtureID: f.FixtureID, Market: f.Market, Error: f.Err.Error()})
	}
	rec.Previews = a.previews(report.Signals)

	batch := a.bankroll.Fork(state)
	for _, signal := range report.Signals {
		stake, err := a.Size(batch, signal)
		if err := a.place(rec, batch, stake, err); err != nil {
			return nil, err
		}
		rec.Singles = append(rec.Singles, Bet{Signal: signal, Stake: stake})
	}

	combos := a.BuildExpresses(report.Signals)
	rec.Expresses = make([]ExpressBet, 0, len(combos))
	for _, combo := range combos {
		stake, err := a.SizeExpress(batch, combo)
		if err := a.place(rec, batch, stake, err); err != nil {
			return nil, err
		}
		rec.Expresses = append(rec.Expresses, ExpressBet{Combo: combo, Stake: stake})
	}

	systems := a.BuildSystems(report.Signals)
	rec.Systems = make([]SystemBet, 0, len(systems))
	for _, system := range systems {
		stake, err := a.SizeSystem(batch, system)
		if err := a.place(rec, batch, stake, err); err != nil {
			return nil, err
		}
		rec.Systems = append(rec.Systems, SystemBet{System: system, Stake: stake})
	}

	rec.Bankroll = a.bankroll.Stats(batch)
	return rec, nil
}

// place reserves a sized stake on the batch. Sizing errors go through
// halted first; zero stakes are not placed.
func (a *Advisor) place(rec *Recommendation, batch *bankroll.State, stake bankroll.Stake, sizeErr error) error {
	if err := a.halted(rec, sizeErr); err != nil || sizeErr != nil || stake.IsZero() {
		return err
	}
	return a.Place(batch, stake)
}

// previews lists the scoreline view of every fixture with a signal.
// Fixtures the model cannot price are left out.
func (a *Advisor) previews(signals []models.Signal) []FixturePreview {
	snap, _ := a.Snapshot()
	fixtures := make(map[string]models.Fixture, len(snap.Fixtures))
	for _, f := range snap.Fixtures {
		fixtures[f.ID] = f
	}

	var out []FixturePreview
	seen := make(map[string]bool)
	for _, signal := range signals {
		fixture, ok := fixtures[signal.FixtureID]
		if !ok || seen[signal.FixtureID] {
			continue
		}
		seen[signal.FixtureID] = true
		preview, err := a.Preview(fixture)
		if err != nil {
			a.logger.WithError(err).WithField("fixture_id", fixture.ID).Debug("Skipping fixture preview")
			continue
		}
		out = append(out, FixturePreview{FixtureID: fixture.ID, Preview: preview})
	}
	return out
}

// halted records a halt on rec and passes through any other error.
func (a *Advisor) halted(rec *Recommendation, err error) error {
	var halted *models.HaltedError
	if errors.As(err, &halted) {
		rec.Halted = halted
		return nil
	}
	return err
}
