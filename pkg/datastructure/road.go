package datastructure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lintang-b-s/drivesim/pkg/geo"
)

var (
	ErrSegmentIndexOutOfRange = errors.New("segment index out of range")
	ErrRouteNotFound          = errors.New("route not found")
)

// Unit is the measurement system of a route: distances in km or mi, speed limits in
// km/h or mph.
type Unit uint8

const (
	UnitKilometers Unit = iota
	UnitMiles
)

func (u Unit) String() string {
	switch u {
	case UnitKilometers:
		return "kilometers"
	case UnitMiles:
		return "miles"
	}
	return "unknown"
}

func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "km", "kilometers", "metric":
		return UnitKilometers, nil
	case "mi", "miles", "imperial":
		return UnitMiles, nil
	}
	return 0, fmt.Errorf("unknown unit %q", s)
}

// toKilometers is the factor converting a quantity in u to km (or km/h).
func (u Unit) toKilometers() float64 {
	if u == UnitMiles {
		return geo.MilesToKmRate
	}
	return 1
}

// RoadSegment is one leg of a route. Bearing and distance are derived from the endpoints
// when the segment is created.
type RoadSegment struct {
	from       geo.Coordinate
	to         geo.Coordinate
	speedLimit float64
	bearing    float64
	distance   float64
}

// NewRoadSegment builds a segment whose distance and speed limit are expressed in unit.
func NewRoadSegment(from, to geo.Coordinate, speedLimit float64, unit Unit) RoadSegment {
	km := geo.Distance(from, to)
	return RoadSegment{
		from:       from,
		to:         to,
		speedLimit: speedLimit,
		bearing:    geo.Bearing(from, to),
		distance:   km / unit.toKilometers(),
	}
}

func (s RoadSegment) From() geo.Coordinate {
	return s.from
}

func (s RoadSegment) To() geo.Coordinate {
	return s.to
}

func (s RoadSegment) SpeedLimit() float64 {
	return s.speedLimit
}

func (s RoadSegment) Bearing() float64 {
	return s.bearing
}

func (s RoadSegment) Distance() float64 {
	return s.distance
}

func (s RoadSegment) scaled(factor float64) RoadSegment {
	s.distance *= factor
	s.speedLimit *= factor
	return s
}
