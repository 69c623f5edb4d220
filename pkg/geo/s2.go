package geo

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

func toS2Point(c Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

// ProjectPointToLineCoord returns the point on the great-circle edge (pointA, pointB)
// closest to snap.
func ProjectPointToLineCoord(pointA Coordinate, pointB Coordinate,
	snap Coordinate) Coordinate {
	if pointA == pointB {
		return pointA
	}
	projection := s2.Project(toS2Point(snap), toS2Point(pointA), toS2Point(pointB))
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// return in meter
func PointLinePerpendicularDistance(pointA Coordinate, pointB Coordinate,
	snap Coordinate) float64 {
	projectionPoint := ProjectPointToLineCoord(pointA, pointB, snap)

	dist := CalculateHaversineDistance(snap.GetLat(), snap.GetLon(), projectionPoint.GetLat(), projectionPoint.GetLon())

	return dist * 1000
}

type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

const minBoundsSpanDeg = 1e-6

var validLatRange = r1.Interval{Lo: -math.Pi / 2, Hi: math.Pi / 2}

// RouteBounds returns the lat/lon rectangle covering the polyline through coords (edges
// are great-circle arcs), grown by bufferRatio of its span on every side. Latitude is
// clamped to [-90, 90]. When the route crosses the antimeridian MinLon > MaxLon.
func RouteBounds(coords []Coordinate, bufferRatio float64) Bounds {
	if len(coords) == 0 {
		return Bounds{}
	}

	rb := s2.NewRectBounder()
	for _, c := range coords {
		rb.AddPoint(toS2Point(c))
	}
	rect := rb.RectBound()

	size := rect.Size()
	latSpan := max(size.Lat, s1.Angle(minBoundsSpanDeg)*s1.Degree)
	lonSpan := max(size.Lng, s1.Angle(minBoundsSpanDeg)*s1.Degree)
	rect = s2.Rect{
		Lat: rect.Lat.Expanded(float64(latSpan) * bufferRatio).Intersection(validLatRange),
		Lng: rect.Lng.Expanded(float64(lonSpan) * bufferRatio),
	}

	return Bounds{
		MinLat: rect.Lo().Lat.Degrees(),
		MaxLat: rect.Hi().Lat.Degrees(),
		MinLon: rect.Lo().Lng.Degrees(),
		MaxLon: rect.Hi().Lng.Degrees(),
	}
}
