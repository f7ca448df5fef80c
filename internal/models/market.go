package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MarketType identifies the family of a betting market
type MarketType string

// Supported market types
const (
	MarketMatchResult MarketType = "1x2"
	MarketTotals      MarketType = "totals"
	MarketBTTS        MarketType = "btts"
)

// Outcome is the label of one mutually exclusive result within a market
type Outcome string

// Outcome labels
const (
	OutcomeHome    Outcome = "home"
	OutcomeDraw    Outcome = "draw"
	OutcomeAway    Outcome = "away"
	OutcomeOver    Outcome = "over"
	OutcomeUnder   Outcome = "under"
	OutcomeBTTSYes Outcome = "btts_yes"
	OutcomeBTTSNo  Outcome = "btts_no"
)

// Market is a market type plus its line (only meaningful for totals)
type Market struct {
	Type MarketType `json:"type"`
	Line float64    `json:"line,omitempty"`
}

// MatchResultMarket returns the 1X2 market.
func MatchResultMarket() Market { return Market{Type: MarketMatchResult} }

// TotalsMarket returns an over/under market at the given goal line.
func TotalsMarket(line float64) Market { return Market{Type: MarketTotals, Line: line} }

// BTTSMarket returns the both-teams-to-score market.
func BTTSMarket() Market { return Market{Type: MarketBTTS} }

// Key returns the canonical string form, e.g. "1x2", "totals_2.5", "btts".
func (m Market) Key() string {
	if m.Type == MarketTotals {
		return fmt.Sprintf("%s_%s", m.Type, strconv.FormatFloat(m.Line, 'f', -1, 64))
	}
	return string(m.Type)
}

func (m Market) String() string { return m.Key() }

// Outcomes returns the mutually exclusive outcome labels of the market in display order.
func (m Market) Outcomes() []Outcome {
	switch m.Type {
	case MarketMatchResult:
		return []Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}
	case MarketTotals:
		return []Outcome{OutcomeOver, OutcomeUnder}
	case MarketBTTS:
		return []Outcome{OutcomeBTTSYes, OutcomeBTTSNo}
	default:
		return nil
	}
}

// HasOutcome reports whether o belongs to the market.
func (m Market) HasOutcome(o Outcome) bool {
	for _, candidate := range m.Outcomes() {
		if candidate == o {
			return true
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler so markets work as JSON map keys.
func (m Market) MarshalText() ([]byte, error) {
	return []byte(m.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Market) UnmarshalText(text []byte) error {
	parsed, err := ParseMarket(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMarket parses the canonical key produced by Market.Key.
func ParseMarket(key string) (Market, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	switch {
	case key == string(MarketMatchResult):
		return MatchResultMarket(), nil
	case key == string(MarketBTTS):
		return BTTSMarket(), nil
	case strings.HasPrefix(key, string(MarketTotals)+"_"):
		line, err := strconv.ParseFloat(strings.TrimPrefix(key, string(MarketTotals)+"_"), 64)
		if err != nil {
			return Market{}, fmt.Errorf("invalid totals line in market %q: %w", key, err)
		}
		if line <= 0 || line != float64(int(line))+0.5 {
			return Market{}, fmt.Errorf("totals line must be a positive half-goal line, got %q", key)
		}
		return TotalsMarket(line), nil
	default:
		return Market{}, fmt.Errorf("unknown market %q", key)
	}
}
