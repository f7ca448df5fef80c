package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/models"
)

func newTestDetector(t *testing.T, mutate func(*config.ValueConfig)) *MovementDetector {
	t.Helper()
	cfg := config.Default().Value
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := NewMovementDetector(cfg, newTestLogger())
	require.NoError(t, err)
	return d
}

func TestDetectMovement(t *testing.T) {
	tests := []struct {
		name          string
		previous      []models.QuoteSet
		current       []models.QuoteSet
		wantOutcome   models.Outcome
		wantDirection string
		wantSteam     bool
		wantMoves     int
	}{
		{
			name:          "drop at a soft book",
			previous:      []models.QuoteSet{matchOdds("f1", "bet365", 2.50, 3.4, 3.0)},
			current:       []models.QuoteSet{matchOdds("f1", "bet365", 2.20, 3.4, 3.0)},
			wantOutcome:   models.OutcomeHome,
			wantDirection: DirectionDrop,
			wantMoves:     1,
		},
		{
			name:          "rise",
			previous:      []models.QuoteSet{matchOdds("f1", "bet365", 2.50, 3.4, 3.0)},
			current:       []models.QuoteSet{matchOdds("f1", "bet365", 2.50, 3.4, 3.4)},
			wantOutcome:   models.OutcomeAway,
			wantDirection: DirectionRise,
			wantMoves:     1,
		},
		{
			name:          "sharp book drop is steam",
			previous:      []models.QuoteSet{matchOdds("f1", "Pinnacle", 2.50, 3.4, 3.0)},
			current:       []models.QuoteSet{matchOdds("f1", "Pinnacle", 2.25, 3.4, 3.0)},
			wantOutcome:   models.OutcomeHome,
			wantDirection: DirectionDrop,
			wantSteam:     true,
			wantMoves:     1,
		},
		{
			name:     "below the threshold",
			previous: []models.QuoteSet{matchOdds("f1", "bet365", 2.50, 3.4, 3.0)},
			current:  []models.QuoteSet{matchOdds("f1", "bet365", 2.40, 3.4, 3.0)},
		},
		{
			name:     "quote missing from the previous refresh",
			previous: []models.QuoteSet{matchOdds("f1", "bet365", 2.50, 3.4, 3.0)},
			current:  []models.QuoteSet{matchOdds("f1", "williamhill", 1.50, 3.4, 3.0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moves := newTestDetector(t, nil).Detect(tt.previous, tt.current)
			require.Len(t, moves, tt.wantMoves)
			if tt.wantMoves == 0 {
				return
			}
			m := moves[0]
			assert.Equal(t, tt.wantOutcome, m.Outcome)
			assert.Equal(t, tt.wantDirection, m.Direction)
			assert.Equal(t, tt.wantSteam, m.Steam)
			assert.InDelta(t, (m.NewOdds-m.OldOdds)/m.OldOdds, m.Change, 1e-12)
			assert.Equal(t, "f1", m.FixtureID)
		})
	}
}

func TestDetectSteamAcrossBooks(t *testing.T) {
	previous := []models.QuoteSet{
		matchOdds("f1", "bet365", 2.50, 3.4, 3.0),
		matchOdds("f1", "williamhill", 2.55, 3.3, 2.9),
		matchOdds("f1", "unibet", 2.45, 3.5, 3.1),
	}
	current := []models.QuoteSet{
		matchOdds("f1", "bet365", 2.20, 3.4, 3.0),
		matchOdds("f1", "williamhill", 2.25, 3.3, 2.9),
		matchOdds("f1", "unibet", 2.45, 3.5, 3.1),
	}

	tests := []struct {
		name       string
		steamBooks int
		wantSteam  bool
	}{
		{"two books are enough", 2, true},
		{"three books needed", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, func(c *config.ValueConfig) { c.SteamBooks = tt.steamBooks })
			moves := d.Detect(previous, current)
			require.Len(t, moves, 2)
			assert.Equal(t, "bet365", moves[0].Bookmaker)
			assert.Equal(t, "williamhill", moves[1].Bookmaker)
			for _, m := range moves {
				assert.Equal(t, DirectionDrop, m.Direction)
				assert.Equal(t, tt.wantSteam, m.Steam)
			}
		})
	}
}
