package value

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/logger"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
)

// Movement directions
const (
	DirectionDrop = "drop"
	DirectionRise = "rise"
)

// Movement is a price change for one outcome at one bookmaker between two
// quote refreshes
type Movement struct {
	FixtureID string         `json:"fixture_id"`
	Market    string         `json:"market"`
	Bookmaker string         `json:"bookmaker"`
	Outcome   models.Outcome `json:"outcome"`
	OldOdds   float64        `json:"old_odds"`
	NewOdds   float64        `json:"new_odds"`
	Change    float64        `json:"change"`
	Direction string         `json:"direction"`
	Steam     bool           `json:"steam"`
}

// MovementDetector diffs quote snapshots. A drop counts as steam when the
// sharp book shortens or enough books shorten the same outcome together.
type MovementDetector struct {
	threshold  float64
	sharpBook  string
	steamBooks int
	logger     *logger.SignalLogger
}

// NewMovementDetector creates a detector from the value configuration.
func NewMovementDetector(cfg config.ValueConfig, log *logrus.Logger) (*MovementDetector, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &MovementDetector{
		threshold:  cfg.LineMoveThreshold,
		sharpBook:  cfg.SharpBook,
		steamBooks: cfg.SteamBooks,
		logger:     logger.NewSignalLogger(log),
	}, nil
}

type quoteKey struct {
	fixtureID string
	market    string
	bookmaker string
}

// Detect returns the moves of at least the threshold from previous to
// current, ordered by fixture, market, outcome and bookmaker. Quotes present
// on only one side are ignored.
func (d *MovementDetector) Detect(previous, current []models.QuoteSet) []Movement {
	before := make(map[quoteKey]models.QuoteSet, len(previous))
	for _, qs := range previous {
		before[quoteKey{qs.FixtureID, qs.Market.Key(), qs.Bookmaker}] = qs
	}

	var moves []Movement
	for _, qs := range current {
		key := quoteKey{qs.FixtureID, qs.Market.Key(), qs.Bookmaker}
		old, ok := before[key]
		if !ok {
			continue
		}
		for outcome, q := range qs.Quotes {
			prev, ok := old.Quotes[outcome]
			if !ok || prev.Odds <= 0 {
				continue
			}
			change := (q.Odds - prev.Odds) / prev.Odds
			if change > -d.threshold && change < d.threshold {
				continue
			}
			direction := DirectionRise
			if change < 0 {
				direction = DirectionDrop
			}
			moves = append(moves, Movement{
				FixtureID: qs.FixtureID,
				Market:    key.market,
				Bookmaker: qs.Bookmaker,
				Outcome:   outcome,
				OldOdds:   prev.Odds,
				NewOdds:   q.Odds,
				Change:    change,
				Direction: direction,
			})
		}
	}

	d.markSteam(moves)
	sort.Slice(moves, func(i, j int) bool {
		a, b := moves[i], moves[j]
		if a.FixtureID != b.FixtureID {
			return a.FixtureID < b.FixtureID
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Outcome != b.Outcome {
			return a.Outcome < b.Outcome
		}
		return a.Bookmaker < b.Bookmaker
	})

	for _, m := range moves {
		metrics.RecordLineMovement(m.Direction, m.Steam)
		d.logger.LogLineMovement(m.FixtureID, m.Market, string(m.Outcome), m.Bookmaker,
			m.Direction, m.OldOdds, m.NewOdds, m.Change, m.Steam)
	}
	return moves
}

func (d *MovementDetector) markSteam(moves []Movement) {
	type outcomeKey struct {
		fixtureID string
		market    string
		outcome   models.Outcome
	}
	drops := make(map[outcomeKey]int)
	sharp := make(map[outcomeKey]bool)
	for _, m := range moves {
		if m.Direction != DirectionDrop {
			continue
		}
		k := outcomeKey{m.FixtureID, m.Market, m.Outcome}
		drops[k]++
		if d.sharpBook != "" && strings.EqualFold(m.Bookmaker, d.sharpBook) {
			sharp[k] = true
		}
	}
	for i, m := range moves {
		if m.Direction != DirectionDrop {
			continue
		}
		k := outcomeKey{m.FixtureID, m.Market, m.Outcome}
		moves[i].Steam = sharp[k] || drops[k] >= d.steamBooks
	}
}
