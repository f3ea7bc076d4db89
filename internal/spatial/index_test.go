package spatial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikenavi/bikenavi/internal/geo"
)

func randomKyotoPoints(n int, seed int64) []geo.Point {
	r := rand.New(rand.NewSource(seed))
	pts := make([]geo.Point, n)
	for i := range pts {
		pts[i] = geo.Point{
			Lon: 135.60 + r.Float64()*0.30,
			Lat: 34.85 + r.Float64()*0.30,
		}
	}
	return pts
}

func bruteNearest(points []geo.Point, p geo.Point) Hit {
	best := Hit{Index: -1}
	for i, q := range points {
		d := geo.Haversine(p, q)
		if best.Index < 0 || d < best.Distance {
			best = Hit{Index: i, Distance: d}
		}
	}
	return best
}

func TestNewIndex_Empty(t *testing.T) {
	_, err := NewIndex(nil)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestNearest_OwnCoordinates(t *testing.T) {
	pts := randomKyotoPoints(500, 1)
	ix, err := NewIndex(pts)
	require.NoError(t, err)

	for i, p := range pts {
		hit := ix.Nearest(p)
		assert.Equal(t, 0.0, hit.Distance)
		assert.Equal(t, i, hit.Index)
	}
}

func TestNearest_MatchesLinearScan(t *testing.T) {
	pts := randomKyotoPoints(2000, 2)
	ix, err := NewIndex(pts)
	require.NoError(t, err)

	for _, q := range randomKyotoPoints(300, 3) {
		want := bruteNearest(pts, q)
		got := ix.Nearest(q)
		assert.Equal(t, want.Index, got.Index, "query %+v", q)
		assert.InDelta(t, want.Distance, got.Distance, 1e-9)
	}
}

func TestNearest_DuplicateCoordinatesPreferLowestIndex(t *testing.T) {
	p := geo.Point{Lon: 135.7588, Lat: 34.9858}
	ix, err := NewIndex([]geo.Point{{Lon: 135.70, Lat: 35.0}, p, p})
	require.NoError(t, err)

	assert.Equal(t, 1, ix.Nearest(p).Index)
}

func TestNearest_QueryOutsidePointCloud(t *testing.T) {
	pts := randomKyotoPoints(200, 4)
	ix, err := NewIndex(pts)
	require.NoError(t, err)

	q := geo.Point{Lon: 136.5, Lat: 35.5}
	assert.Equal(t, bruteNearest(pts, q).Index, ix.Nearest(q).Index)
}

func TestWithin_SortedAndBounded(t *testing.T) {
	pts := randomKyotoPoints(1000, 5)
	ix, err := NewIndex(pts)
	require.NoError(t, err)

	center := geo.Point{Lon: 135.75, Lat: 35.0}
	hits := ix.Within(center, 2000)

	expected := 0
	for _, p := range pts {
		if geo.Haversine(center, p) <= 2000 {
			expected++
		}
	}
	assert.Len(t, hits, expected)

	for i, h := range hits {
		assert.LessOrEqual(t, h.Distance, 2000.0)
		if i > 0 {
			assert.GreaterOrEqual(t, h.Distance, hits[i-1].Distance)
		}
	}
}

func TestNearestWithin(t *testing.T) {
	ix, err := NewIndex([]geo.Point{{Lon: 135.7588, Lat: 34.9858}})
	require.NoError(t, err)

	// Roughly 1.1 km north of the only point.
	q := geo.Point{Lon: 135.7588, Lat: 34.9958}

	_, ok := ix.NearestWithin(q, 500)
	assert.False(t, ok)

	hit, ok := ix.NearestWithin(q, 1500)
	assert.True(t, ok)
	assert.Equal(t, 0, hit.Index)
}
