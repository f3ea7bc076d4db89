package facility

import (
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/spatial"
)

// DefaultParkingMaxDistance is the distance cap used when none is given.
const DefaultParkingMaxDistance = 500.0

// ParkingMatcher finds parking lots near a point.
type ParkingMatcher struct {
	parkings []Parking
	index    *spatial.Index
}

// NewParkingMatcher indexes the given parking lots. An empty list yields a
// matcher that never finds anything.
func NewParkingMatcher(parkings []Parking) *ParkingMatcher {
	m := &ParkingMatcher{parkings: append([]Parking(nil), parkings...)}
	if len(parkings) == 0 {
		return m
	}
	points := make([]geo.Point, len(parkings))
	for i, p := range parkings {
		points[i] = p.Location
	}
	// NewIndex only fails on an empty slice.
	m.index, _ = spatial.NewIndex(points)
	return m
}

// Len returns the number of parking lots.
func (m *ParkingMatcher) Len() int {
	return len(m.parkings)
}

// Parkings returns a copy of the indexed parking lots.
func (m *ParkingMatcher) Parkings() []Parking {
	return append([]Parking(nil), m.parkings...)
}

// Nearest returns the parking lot closest to p together with its distance.
// A maxDistance of zero or less means no cap.
func (m *ParkingMatcher) Nearest(p geo.Point, maxDistance float64) (Parking, float64, error) {
	if m.index == nil {
		return Parking{}, 0, ErrNoParkingFound
	}

	if maxDistance <= 0 {
		hit := m.index.Nearest(p)
		return m.parkings[hit.Index], hit.Distance, nil
	}

	hit, ok := m.index.NearestWithin(p, maxDistance)
	if !ok {
		return Parking{}, 0, ErrNoParkingFound
	}
	return m.parkings[hit.Index], hit.Distance, nil
}
