// Package polyline converts route geometry to and from Google's encoded
// polyline format (precision 5) for clients that prefer it over GeoJSON.
package polyline

import (
	"fmt"

	gopolyline "github.com/twpayne/go-polyline"

	"github.com/bikenavi/bikenavi/internal/geo"
)

// Encode encodes points. The format stores latitude first.
func Encode(points []geo.Point) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(gopolyline.EncodeCoords(coords))
}

// Decode decodes an encoded polyline.
func Decode(encoded string) ([]geo.Point, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, rest, err := gopolyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}

	points := make([]geo.Point, len(coords))
	for i, c := range coords {
		points[i] = geo.Point{Lon: c[1], Lat: c[0]}
	}
	return points, nil
}
