package geo

import (
	"math"

	"github.com/lintang-b-s/drivesim/pkg/util"
)

/*
BearingTo. initial bearing of the great circle from p1 to p2, in [0, 360).
https://www.movable-type.co.uk/scripts/latlong.html
*/
func BearingTo(p1Lat, p1Lon, p2Lat, p2Lon float64) float64 {

	dLon := util.DegreeToRadians(p2Lon - p1Lon)

	lat1 := util.DegreeToRadians(p1Lat)
	lat2 := util.DegreeToRadians(p2Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Mod(util.RadiansToDegree(math.Atan2(y, x))+360, 360.0)

	return brng
}

// Bearing returns the initial compass bearing from a to b. It is 0 when a == b.
func Bearing(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	return NormalizeBearing(BearingTo(a.Lat, a.Lon, b.Lat, b.Lon))
}

// NormalizeBearing wraps deg into [0, 360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(math.Mod(deg, 360)+360, 360)
	if b >= 360 {
		// math.Mod of a tiny negative value can round up to 360
		b = 0
	}
	return b
}
