package geo

import "math"

// MinBBoxMargin is the smallest margin, in degrees, added around a route
// bounding box on each axis.
const MinBBoxMargin = 0.005

// BBox is an axis-aligned box in degrees.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// KyotoServiceArea is the area served by the navigation API.
var KyotoServiceArea = BBox{
	MinLon: 135.60,
	MinLat: 34.85,
	MaxLon: 135.90,
	MaxLat: 35.15,
}

// Contains reports whether p lies inside the box, edges included.
func (b BBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// ExpandedBBox returns the box spanned by a and b, padded on each axis by
// marginRatio times the span, but never less than MinBBoxMargin.
func ExpandedBBox(a, b Point, marginRatio float64) BBox {
	minLon, maxLon := math.Min(a.Lon, b.Lon), math.Max(a.Lon, b.Lon)
	minLat, maxLat := math.Min(a.Lat, b.Lat), math.Max(a.Lat, b.Lat)

	lonMargin := math.Max((maxLon-minLon)*marginRatio, MinBBoxMargin)
	latMargin := math.Max((maxLat-minLat)*marginRatio, MinBBoxMargin)

	return BBox{
		MinLon: minLon - lonMargin,
		MinLat: minLat - latMargin,
		MaxLon: maxLon + lonMargin,
		MaxLat: maxLat + latMargin,
	}
}

// RadiusBBox returns a box guaranteed to contain every point within
// radiusMeters of center. The box may be larger than strictly needed.
func RadiusBBox(center Point, radiusMeters float64) BBox {
	angular := radiusMeters / EarthRadiusMeters
	latDelta := toDegrees(angular)

	// Longitude degrees shrink with latitude; widen using the latitude
	// farthest from the equator inside the band.
	maxAbsLat := math.Min(math.Abs(center.Lat)+latDelta, 89.9)
	cosLat := math.Cos(toRadians(maxAbsLat))
	lonDelta := 180.0
	if s := math.Sin(angular) / cosLat; cosLat > 1e-9 && s < 1 && angular < math.Pi/2 {
		lonDelta = toDegrees(math.Asin(s))
	}

	return BBox{
		MinLon: center.Lon - lonDelta,
		MinLat: center.Lat - latDelta,
		MaxLon: center.Lon + lonDelta,
		MaxLat: center.Lat + latDelta,
	}
}
