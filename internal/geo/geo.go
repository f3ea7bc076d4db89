// Package geo provides the great-circle primitives shared by routing,
// facility matching and voice guidance.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for all distance computations.
const EarthRadiusMeters = 6371000

// Point is a geographic position in (lon, lat) order.
type Point struct {
	Lon float64
	Lat float64
}

// String formats p as "lon,lat".
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat)
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dPhi := toRadians(b.Lat - a.Lat)
	dLambda := toRadians(b.Lon - a.Lon)

	sinDPhi := math.Sin(dPhi / 2)
	sinDLambda := math.Sin(dLambda / 2)

	h := sinDPhi*sinDPhi + math.Cos(phi1)*math.Cos(phi2)*sinDLambda*sinDLambda
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial bearing from a to b in degrees.
// 0 is north, angles grow clockwise, and the result is in [0, 360).
func Bearing(a, b Point) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dLambda := toRadians(b.Lon - a.Lon)

	x := math.Sin(dLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	deg := toDegrees(math.Atan2(x, y))
	return math.Mod(deg+360, 360)
}

// AngleDiff returns the unsigned difference between two bearings, in [0, 180].
func AngleDiff(b1, b2 float64) float64 {
	d := math.Abs(b1 - b2)
	return math.Min(d, 360-d)
}

// BearingChange returns the signed change from before to after, normalized
// to [-180, 180]. Positive values turn clockwise (right).
func BearingChange(before, after float64) float64 {
	change := after - before
	if change > 180 {
		change -= 360
	} else if change < -180 {
		change += 360
	}
	return change
}

// PathLength returns the summed haversine length of a polyline.
func PathLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}

// CumulativeDistances returns the distance from points[0] to every vertex.
// The first element is always 0.
func CumulativeDistances(points []Point) []float64 {
	if len(points) == 0 {
		return nil
	}
	cum := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cum[i] = cum[i-1] + Haversine(points[i-1], points[i])
	}
	return cum
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
