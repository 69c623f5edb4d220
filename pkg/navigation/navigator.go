package navigation

import (
	"sync/atomic"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"go.uber.org/zap"
)

// Navigator is the always-available provider. It adapts a RouteSource to the engine's
// canonical units when a route is accepted, never per tick.
type Navigator struct {
	source    RouteSource
	corrector corrector
	strategy  Strategy
	log       *zap.Logger

	route atomic.Pointer[da.Route]
}

func NewNavigator(source RouteSource, strategy Strategy, log *zap.Logger) *Navigator {
	return &Navigator{
		source:    source,
		corrector: newCorrector(strategy),
		strategy:  strategy,
		log:       log,
	}
}

func (n *Navigator) Strategy() Strategy {
	return n.strategy
}

func (n *Navigator) Navigate(start, destination geo.Coordinate) (*da.Route, error) {
	route, err := n.source.Generate(start, destination)
	if err != nil {
		return nil, err
	}
	if route == nil || route.Len() == 0 {
		return nil, ErrRouteNotFound
	}
	return n.Bind(route), nil
}

func (n *Navigator) Bind(route *da.Route) *da.Route {
	normalized := route.Normalize()
	n.route.Store(normalized)
	if normalized != nil {
		n.log.Debug("route bound", zap.Int("segments", normalized.Len()),
			zap.Float64("distance_km", normalized.TotalDistance()),
			zap.String("source_unit", route.Unit().String()))
	}
	return normalized
}

func (n *Navigator) Route() *da.Route {
	return n.route.Load()
}

func (n *Navigator) GetSpeedCorrection(segmentIndex int, currentSpeed float64) float64 {
	route := n.route.Load()
	if route == nil {
		return 0
	}
	return n.corrector.corrections(route.Segment(segmentIndex), currentSpeed, 0).SpeedDelta
}

func (n *Navigator) GetBearingCorrection(segmentIndex int, currentBearing float64) float64 {
	route := n.route.Load()
	if route == nil {
		return 0
	}
	return n.corrector.corrections(route.Segment(segmentIndex), 0, currentBearing).BearingDelta
}

func (n *Navigator) GetDistance(segmentIndex int) float64 {
	route := n.route.Load()
	if route == nil {
		return 0
	}
	return route.Segment(segmentIndex).Distance()
}

func (n *Navigator) PollCorrection(segmentIndex int, currentSpeed, currentBearing float64) (da.CorrectionSample, bool) {
	route := n.route.Load()
	if route == nil {
		return da.CorrectionSample{}, true
	}
	return n.corrector.corrections(route.Segment(segmentIndex), currentSpeed, currentBearing), true
}

func (n *Navigator) ResetLink() {}
