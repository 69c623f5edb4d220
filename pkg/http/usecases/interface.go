package usecases

import (
	"context"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/engine/driving"
	"github.com/lintang-b-s/drivesim/pkg/geo"
)

type DrivingEngine interface {
	State() da.VehicleState
	Route() *da.Route
	UpdateRoute(route *da.Route) error
	Reset(route *da.Route)
	GoRoute(ctx context.Context) <-chan driving.Result
	Stop()
}

type RouteGenerator interface {
	Generate(start, destination geo.Coordinate) (*da.Route, error)
}
