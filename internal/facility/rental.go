package facility

import (
	"github.com/bikenavi/bikenavi/internal/geo"
)

// PairOptions are the availability thresholds for rental-pair selection.
type PairOptions struct {
	MinBikes int
	MinDocks int
}

// RentalPair is the chosen borrow and return stations.
type RentalPair struct {
	Borrow Station
	Return Station
}

// SelectRentalPair picks the station nearest to origin with at least
// MinBikes bikes, then the station nearest to destination with at least
// MinDocks free docks run by the same operator. Zero thresholds default to 1.
// When no borrow station qualifies the return side is not searched.
func SelectRentalPair(stations []Station, origin, destination geo.Point, opts PairOptions) (RentalPair, error) {
	if opts.MinBikes <= 0 {
		opts.MinBikes = 1
	}
	if opts.MinDocks <= 0 {
		opts.MinDocks = 1
	}

	borrow, ok := nearestStation(stations, origin, func(s *Station) bool {
		return s.BikesAvailable >= opts.MinBikes
	})
	if !ok {
		return RentalPair{}, ErrNoBorrowStation
	}

	ret, ok := nearestStation(stations, destination, func(s *Station) bool {
		return s.DocksAvailable >= opts.MinDocks && s.Operator == borrow.Operator
	})
	if !ok {
		return RentalPair{}, ErrNoReturnStation
	}

	return RentalPair{Borrow: borrow, Return: ret}, nil
}

// nearestStation returns the closest station accepted by keep.
func nearestStation(stations []Station, p geo.Point, keep func(*Station) bool) (Station, bool) {
	best := -1
	bestDist := 0.0
	for i := range stations {
		if !keep(&stations[i]) {
			continue
		}
		d := geo.Haversine(p, stations[i].Location)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return Station{}, false
	}
	return stations[best], true
}
