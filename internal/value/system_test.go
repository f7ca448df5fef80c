package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/models"
)

func newTestSystemBuilder(t *testing.T, mutate func(*config.SystemConfig)) *SystemBuilder {
	t.Helper()
	cfg := config.Default().System
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := NewSystemBuilder(cfg, newTestBuilder(t, nil), newTestLogger())
	require.NoError(t, err)
	return b
}

// independentLegs returns legs on separate leagues and days, so every pair
// carries only the leg-count discount.
func independentLegs(n int, p, odds float64) []models.Signal {
	day := time.Date(2024, 3, 9, 13, 0, 0, 0, time.UTC)
	leagues := []string{"epl", "liga", "serie_a", "bundesliga", "ligue_1", "eredivisie"}
	legs := make([]models.Signal, n)
	for i := range legs {
		legs[i] = leg("f"+string(rune('1'+i)), leagues[i], day.AddDate(0, 0, i), p, odds)
	}
	return legs
}

func TestSystem(t *testing.T) {
	b := newTestSystemBuilder(t, nil)

	tests := []struct {
		name       string
		legs       []models.Signal
		size       int
		wantOK     bool
		wantCombos int
		wantReturn float64
	}{
		// each double: 0.6^2 x 0.95 x 2.0^2
		{"two from three", independentLegs(3, 0.6, 2.0), 2, true, 3, 0.36 * 0.95 * 4.0},
		// each treble: 0.6^3 x 0.95^2 x 2.0^3
		{"three from four", independentLegs(4, 0.6, 2.0), 3, true, 4, 0.216 * 0.95 * 0.95 * 8.0},
		{"two from five", independentLegs(5, 0.6, 2.0), 2, true, 10, 0.36 * 0.95 * 4.0},
		{"size zero", independentLegs(3, 0.6, 2.0), 0, false, 0, 0},
		{"size equals legs", independentLegs(3, 0.6, 2.0), 3, false, 0, 0},
		{
			name: "shared fixture",
			legs: append(independentLegs(2, 0.6, 2.0),
				leg("f1", "epl", time.Date(2024, 3, 9, 13, 0, 0, 0, time.UTC), 0.3, 3.5)),
			size:   2,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, ok := b.System(tt.legs, tt.size)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Len(t, system.Combinations, tt.wantCombos)
			assert.InDelta(t, tt.wantReturn, system.ExpectedReturn, 1e-12)
			assert.InDelta(t, tt.wantReturn-1, system.ExpectedEdge, 1e-12)
			assert.InDelta(t, 0.6*float64(len(tt.legs)), system.ExpectedWins, 1e-12)
			for _, combo := range system.Combinations {
				assert.Len(t, combo.Legs, tt.size)
			}
		})
	}
}

func TestBuildSystems(t *testing.T) {
	day := time.Date(2024, 3, 9, 13, 0, 0, 0, time.UTC)
	signals := []models.Signal{
		leg("f1", "epl", day, 0.62, 2.0),
		leg("f2", "liga", day.AddDate(0, 0, 1), 0.60, 2.0),
		leg("f3", "serie_a", day.AddDate(0, 0, 2), 0.58, 2.0),
		leg("f4", "bundesliga", day.AddDate(0, 0, 3), 0.56, 2.0),
		leg("f1", "epl", day, 0.30, 3.6),                      // weaker signal on a used fixture
		leg("f5", "ligue_1", day.AddDate(0, 0, 4), 0.45, 2.6), // below the leg probability floor
	}

	t.Run("shapes filled by the best legs", func(t *testing.T) {
		b := newTestSystemBuilder(t, nil)
		systems := b.Build(signals)
		require.Len(t, systems, 2, "five-leg shapes need more legs")

		assert.Equal(t, "2/3", systems[0].Shape())
		assert.Equal(t, []string{"f1", "f2", "f3"}, systems[0].FixtureIDs())
		assert.Equal(t, "3/4", systems[1].Shape())
		assert.Len(t, systems[1].Combinations, 4)
		for _, system := range systems {
			assert.NotContains(t, system.FixtureIDs(), "f5")
			assert.Greater(t, system.ExpectedEdge, 0.0)
		}
	})

	t.Run("minimum expected edge", func(t *testing.T) {
		b := newTestSystemBuilder(t, func(c *config.SystemConfig) { c.MinExpectedEdge = 5 })
		assert.Empty(t, b.Build(signals))
	})

	t.Run("disabled", func(t *testing.T) {
		b := newTestSystemBuilder(t, func(c *config.SystemConfig) { c.Enabled = false })
		assert.Nil(t, b.Build(signals))
	})
}
