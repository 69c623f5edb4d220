package controllers

import (
	"context"

	"github.com/lintang-b-s/drivesim/pkg/geo"
	"github.com/lintang-b-s/drivesim/pkg/http/usecases"
)

type JourneyService interface {
	NewJourney(origin, destination *geo.Coordinate) (*usecases.Journey, error)
	Start(ctx context.Context) (bool, error)
	Stop()
	State() usecases.JourneyState
	Journey(id string) (*usecases.Journey, error)
	Current() (*usecases.Journey, error)
}
