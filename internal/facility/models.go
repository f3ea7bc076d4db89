// Package facility provides parking lots and bike-share stations and the
// proximity rules used to pick them for a trip.
package facility

import (
	"errors"
	"fmt"
	"time"

	"github.com/bikenavi/bikenavi/internal/geo"
)

// Sentinel errors for facility lookups.
var (
	// ErrNoParkingFound indicates no parking lot satisfies the distance cap.
	ErrNoParkingFound = errors.New("no parking found near destination")
	// ErrNoStationAvailable indicates no station satisfies the availability rules.
	ErrNoStationAvailable = errors.New("no station available")
	// ErrNoBorrowStation indicates no station near the origin has enough bikes.
	ErrNoBorrowStation = fmt.Errorf("%w: no station with bikes to borrow", ErrNoStationAvailable)
	// ErrNoReturnStation indicates no station of the borrow operator has enough free docks.
	ErrNoReturnStation = fmt.Errorf("%w: no station of the same operator with free docks", ErrNoStationAvailable)
	// ErrParkingNotFound indicates a parking lot id does not exist.
	ErrParkingNotFound = errors.New("parking not found")
)

// Parking is a static bicycle parking lot.
type Parking struct {
	ID             string
	Name           string
	Location       geo.Point
	FeeDescription string
}

// Station is a snapshot of a bike-share station.
type Station struct {
	ID             string
	Name           string
	Operator       string
	Location       geo.Point
	Capacity       int
	BikesAvailable int
	DocksAvailable int
	IsRenting      bool
	IsReturning    bool
	LastReported   time.Time
}
