package weight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel_Defaults(t *testing.T) {
	m, err := NewModel(Config{})
	require.NoError(t, err)
	assert.Equal(t, V2, m.Version())
	assert.False(t, m.RoadClassPenalty())
}

func TestNewModel_UnknownVersion(t *testing.T) {
	_, err := NewModel(Config{Version: "v9"})
	assert.Error(t, err)
}

func TestFactors_V2Values(t *testing.T) {
	m := Default()

	safe, normal := m.Factors(5)
	assert.InDelta(t, 0.6, safe, 1e-9)
	assert.InDelta(t, 3.5, normal, 1e-9)

	safe, normal = m.Factors(10)
	assert.InDelta(t, 0.2, safe, 1e-9, "safe factor is floored")
	assert.InDelta(t, 6.0, normal, 1e-9)

	assert.InDelta(t, 60, m.Cost(100, true, 5), 1e-9)
	assert.InDelta(t, 350, m.Cost(100, false, 5), 1e-9)
}

func TestFactors_V1Values(t *testing.T) {
	m, err := NewModel(Config{Version: V1})
	require.NoError(t, err)

	safe, normal := m.Factors(10)
	assert.InDelta(t, 0.7, safe, 1e-9)
	assert.InDelta(t, 3.0, normal, 1e-9)
}

func TestClamp(t *testing.T) {
	m := Default()
	assert.Equal(t, MinLevel, m.Clamp(-4))
	assert.Equal(t, MinLevel, m.Clamp(0))
	assert.Equal(t, Level(7), m.Clamp(7))
	assert.Equal(t, MaxLevel, m.Clamp(42))

	safeOut, normalOut := m.Factors(42)
	safeMax, normalMax := m.Factors(MaxLevel)
	assert.Equal(t, safeMax, safeOut)
	assert.Equal(t, normalMax, normalOut)
}

func TestFactors_MonotonicPreference(t *testing.T) {
	for _, version := range []Version{V1, V2} {
		t.Run(string(version), func(t *testing.T) {
			m, err := NewModel(Config{Version: version})
			require.NoError(t, err)

			prevRatio := 0.0
			for l := MinLevel; l <= MaxLevel; l++ {
				safe, normal := m.Factors(l)
				assert.Greater(t, safe, 0.0)
				assert.LessOrEqual(t, safe, normal, "level %d", l)
				assert.LessOrEqual(t, m.Cost(250, true, l), m.Cost(250, false, l))

				ratio := safe / normal
				if l > MinLevel {
					assert.LessOrEqual(t, ratio, prevRatio, "ratio inverted at level %d", l)
				}
				prevRatio = ratio
			}
		})
	}
}

func TestEdgeCost_RoadClassPenalty(t *testing.T) {
	plain := Default()
	penal, err := NewModel(Config{RoadClassPenalty: true})
	require.NoError(t, err)

	assert.Equal(t, plain.Cost(100, true, 5), plain.EdgeCost(100, true, "cycleway", 5))
	assert.InDelta(t, 36, penal.EdgeCost(100, true, "cycleway", 5), 1e-9)
	assert.InDelta(t, 402.5, penal.EdgeCost(100, false, "residential", 5), 1e-9)
	assert.InDelta(t, 350, penal.EdgeCost(100, false, "primary", 5), 1e-9)
}

func TestTable(t *testing.T) {
	rows := Default().Table()
	require.Len(t, rows, 10)
	assert.Equal(t, MinLevel, rows[0].Level)
	assert.Equal(t, 60.0, rows[4].Safe100mCost)
	assert.Equal(t, 350.0, rows[4].Normal100mCost)
}
