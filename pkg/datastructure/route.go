package datastructure

import (
	"fmt"

	"github.com/lintang-b-s/drivesim/pkg/geo"
)

// Route is an ordered, immutable sequence of road segments. Insertion order is traversal
// order.
type Route struct {
	segments []RoadSegment
	unit     Unit
}

func NewRoute(segments []RoadSegment, unit Unit) *Route {
	segs := make([]RoadSegment, len(segments))
	copy(segs, segments)
	return &Route{
		segments: segs,
		unit:     unit,
	}
}

func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.segments)
}

func (r *Route) Unit() Unit {
	return r.unit
}

// Segment panics with ErrSegmentIndexOutOfRange when i is outside [0, Len()).
func (r *Route) Segment(i int) RoadSegment {
	if i < 0 || i >= r.Len() {
		panic(fmt.Errorf("%w: %d not in [0, %d)", ErrSegmentIndexOutOfRange, i, r.Len()))
	}
	return r.segments[i]
}

func (r *Route) Segments() []RoadSegment {
	segs := make([]RoadSegment, r.Len())
	if r != nil {
		copy(segs, r.segments)
	}
	return segs
}

func (r *Route) Start() geo.Coordinate {
	return r.Segment(0).From()
}

func (r *Route) Destination() geo.Coordinate {
	return r.Segment(r.Len() - 1).To()
}

// Coordinates returns every waypoint of the route, start first.
func (r *Route) Coordinates() []geo.Coordinate {
	if r.Len() == 0 {
		return nil
	}
	coords := make([]geo.Coordinate, 0, r.Len()+1)
	for _, s := range r.segments {
		coords = append(coords, s.From())
	}
	return append(coords, r.Destination())
}

func (r *Route) TotalDistance() float64 {
	total := 0.0
	for i := 0; i < r.Len(); i++ {
		total += r.segments[i].Distance()
	}
	return total
}

// Normalize returns the route expressed in kilometers. A route already in kilometers is
// returned unchanged, so converting twice is impossible.
func (r *Route) Normalize() *Route {
	if r == nil || r.unit == UnitKilometers {
		return r
	}
	factor := r.unit.toKilometers()
	segs := make([]RoadSegment, len(r.segments))
	for i, s := range r.segments {
		segs[i] = s.scaled(factor)
	}
	return &Route{segments: segs, unit: UnitKilometers}
}

// Remaining returns the distance left from segment index with traveled already covered
// on it, and the time needed at the posted speed limits in hours.
func (r *Route) Remaining(index int, traveled float64) (float64, float64) {
	dist, hours := 0.0, 0.0
	for i := max(index, 0); i < r.Len(); i++ {
		s := r.segments[i]
		left := s.Distance()
		if i == index {
			left = max(left-traveled, 0)
		}
		dist += left
		if s.SpeedLimit() > 0 {
			hours += left / s.SpeedLimit()
		}
	}
	return dist, hours
}
