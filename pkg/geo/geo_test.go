package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func randomCoordinate(rd *rand.Rand) Coordinate {
	return NewCoordinate(-80+rd.Float64()*160, -180+rd.Float64()*360)
}

func angleDiff(a, b float64) float64 {
	d := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	return math.Min(d, 360-d)
}

func TestDistanceProperties(t *testing.T) {
	rd := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		a := randomCoordinate(rd)
		b := randomCoordinate(rd)

		ab := Distance(a, b)
		ba := Distance(b, a)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.InDelta(t, ab, ba, 1e-6)
		assert.Greater(t, ab, 0.0)
		assert.Equal(t, 0.0, Distance(a, a))
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// one degree of longitude on the equator
	got := Distance(NewCoordinate(0, 0), NewCoordinate(0, 1))
	assert.InDelta(t, 111.195, got, 0.01)
}

func TestDestinationRoundTrip(t *testing.T) {
	rd := rand.New(rand.NewSource(7))

	for i := 0; i < 1000; i++ {
		origin := NewCoordinate(-70+rd.Float64()*140, -180+rd.Float64()*360)
		bearing := rd.Float64() * 360
		dist := rd.Float64() * 10000

		dest := Destination(origin, bearing, dist)
		require.True(t, dest.Valid(), "destination %v out of range", dest)
		assert.InDelta(t, dist, Distance(origin, dest), 1e-6*math.Max(1, dist))
	}
}

func TestDestinationZeroDistance(t *testing.T) {
	origin := NewCoordinate(12.5, 99.1)
	assert.Equal(t, origin, Destination(origin, 123, 0))
}

func TestBearingRoundTrip(t *testing.T) {
	rd := rand.New(rand.NewSource(11))

	for i := 0; i < 1000; i++ {
		origin := NewCoordinate(-60+rd.Float64()*120, -180+rd.Float64()*360)
		bearing := rd.Float64() * 360
		dist := 1 + rd.Float64()*2000

		dest := Destination(origin, bearing, dist)
		got := Bearing(origin, dest)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 360.0)
		assert.InDelta(t, 0, angleDiff(got, bearing), 1e-6)
	}
}

func TestBearing(t *testing.T) {
	testCases := []struct {
		name string
		a, b Coordinate
		want float64
	}{
		{name: "north", a: NewCoordinate(0, 0), b: NewCoordinate(1, 0), want: 0},
		{name: "east", a: NewCoordinate(0, 0), b: NewCoordinate(0, 1), want: 90},
		{name: "south", a: NewCoordinate(1, 0), b: NewCoordinate(0, 0), want: 180},
		{name: "west", a: NewCoordinate(0, 1), b: NewCoordinate(0, 0), want: 270},
		{name: "same point", a: NewCoordinate(5, 5), b: NewCoordinate(5, 5), want: 0},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Bearing(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNormalizeBearing(t *testing.T) {
	testCases := []struct {
		in, want float64
	}{
		{in: 0, want: 0},
		{in: 360, want: 0},
		{in: -90, want: 270},
		{in: 725, want: 5},
		{in: -1e-18, want: 0},
	}

	for _, tt := range testCases {
		got := NormalizeBearing(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9)
		assert.Less(t, got, 360.0)
	}
}

func TestUnitConversion(t *testing.T) {
	assert.InDelta(t, 1.609344, MilesToKm(1), 1e-12)
	assert.InDelta(t, 10, KmToMiles(MilesToKm(10)), 1e-12)
}

func TestCoordinateValid(t *testing.T) {
	assert.True(t, NewCoordinate(45, 90).Valid())
	assert.False(t, NewCoordinate(91, 0).Valid())
	assert.False(t, NewCoordinate(0, -181).Valid())
	assert.False(t, NewCoordinate(math.NaN(), 0).Valid())
}

func TestPointLinePerpendicularDistance(t *testing.T) {
	a := NewCoordinate(0, 0)
	b := NewCoordinate(0, 1)

	onLine := NewCoordinate(0, 0.5)
	assert.InDelta(t, 0, PointLinePerpendicularDistance(a, b, onLine), 1)

	// 0.01 degree north of the equator is ~1112 m
	off := NewCoordinate(0.01, 0.5)
	assert.InDelta(t, 1112, PointLinePerpendicularDistance(a, b, off), 5)

	proj := ProjectPointToLineCoord(a, b, off)
	assert.InDelta(t, 0, proj.Lat, 1e-6)
	assert.InDelta(t, 0.5, proj.Lon, 1e-6)
}

func TestRouteBounds(t *testing.T) {
	coords := []Coordinate{NewCoordinate(10, 20), NewCoordinate(12, 24), NewCoordinate(11, 22)}
	b := RouteBounds(coords, 0.05)

	for _, c := range coords {
		assert.LessOrEqual(t, b.MinLat, c.Lat)
		assert.GreaterOrEqual(t, b.MaxLat, c.Lat)
		assert.LessOrEqual(t, b.MinLon, c.Lon)
		assert.GreaterOrEqual(t, b.MaxLon, c.Lon)
	}
	// 5% of the 4 degree longitude span on each side
	assert.InDelta(t, 20.0-0.2, b.MinLon, 1e-6)
	assert.InDelta(t, 24.0+0.2, b.MaxLon, 1e-6)
	assert.Less(t, b.MinLat, 10.0-0.09)
	assert.Greater(t, b.MaxLat, 12.0+0.09)

	assert.Equal(t, Bounds{}, RouteBounds(nil, 0.05))
}

func TestRouteBoundsClampsLatitude(t *testing.T) {
	b := RouteBounds([]Coordinate{NewCoordinate(-89.5, 10), NewCoordinate(89.5, 10)}, 0.05)

	assert.InDelta(t, -90.0, b.MinLat, 1e-9)
	assert.InDelta(t, 90.0, b.MaxLat, 1e-9)
}

func TestRouteBoundsAcrossAntimeridian(t *testing.T) {
	b := RouteBounds([]Coordinate{NewCoordinate(10, 179.5), NewCoordinate(10, -179.5)}, 0)

	assert.InDelta(t, 179.5, b.MinLon, 1e-6)
	assert.InDelta(t, -179.5, b.MaxLon, 1e-6)
}

func TestPolylineRoundTrip(t *testing.T) {
	path := []Coordinate{NewCoordinate(38.5, -120.2), NewCoordinate(40.7, -120.95), NewCoordinate(43.252, -126.453)}
	encoded := PolylineFromCoords(path)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", encoded)

	decoded, err := CoordsFromPolyline(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(path))
	for i := range path {
		assert.InDelta(t, path[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, path[i].Lon, decoded[i].Lon, 1e-5)
	}
}
