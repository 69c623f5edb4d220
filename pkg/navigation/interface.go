package navigation

import (
	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
)

var (
	ErrRouteNotFound          = da.ErrRouteNotFound
	ErrSegmentIndexOutOfRange = da.ErrSegmentIndexOutOfRange
)

// RouteSource produces routes in its own native unit.
type RouteSource interface {
	Generate(start, destination geo.Coordinate) (*da.Route, error)
}

// Provider is the navigation capability the driving engine corrects against. All
// distances and speeds it returns are in kilometers and km/h.
type Provider interface {
	// Navigate resolves and binds a route. A nil route with ErrRouteNotFound means no path.
	Navigate(start, destination geo.Coordinate) (*da.Route, error)
	// Bind accepts a route (converting units if needed) and returns the bound route.
	Bind(route *da.Route) *da.Route
	Route() *da.Route

	GetSpeedCorrection(segmentIndex int, currentSpeed float64) float64
	GetBearingCorrection(segmentIndex int, currentBearing float64) float64
	GetDistance(segmentIndex int) float64

	// PollCorrection is called once per tick. ok is false while navigation is unavailable.
	PollCorrection(segmentIndex int, currentSpeed, currentBearing float64) (sample da.CorrectionSample, ok bool)
	// ResetLink restores availability at the start of a segment.
	ResetLink()
}
