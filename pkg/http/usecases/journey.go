package usecases

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/engine/driving"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"github.com/lintang-b-s/drivesim/pkg/spatialindex"
	"github.com/lintang-b-s/drivesim/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// boundsBuffer pads a journey's bounds so the route does not touch the edge of a view.
const boundsBuffer = 0.05

type Journey struct {
	ID          string
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Route       *da.Route
	Polyline    string
	Bounds      geo.Bounds
	CreatedAt   time.Time
}

type JourneyState struct {
	da.VehicleState
	JourneyID      string
	NearestSegment int
	// Deviation is the distance in meters from the nearest route segment.
	Deviation float64
	OffRoute  bool
}

type JourneyService struct {
	log            *zap.Logger
	engine         DrivingEngine
	generator      RouteGenerator
	box            *da.BoundingBox
	offRouteRadius float64

	mu      sync.Mutex
	rd      *rand.Rand
	current *Journey
	driving chan struct{}

	index   atomic.Pointer[spatialindex.Rtree]
	history *lru.Cache[string, *Journey]
}

func NewJourneyService(log *zap.Logger, engine DrivingEngine, generator RouteGenerator, box *da.BoundingBox,
	rd *rand.Rand, historySize int, offRouteRadius float64) (*JourneyService, error) {
	history, err := lru.New[string, *Journey](historySize)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "journey history")
	}
	return &JourneyService{
		log:            log,
		engine:         engine,
		generator:      generator,
		box:            box,
		rd:             rd,
		offRouteRadius: offRouteRadius,
		history:        history,
	}, nil
}

// NewJourney stops the vehicle, generates a route between origin and destination (random
// points inside the service's bounding box when nil) and binds it to the engine.
func (js *JourneyService) NewJourney(origin, destination *geo.Coordinate) (*Journey, error) {
	js.mu.Lock()
	defer js.mu.Unlock()

	from, to := js.endpoint(origin), js.endpoint(destination)
	if !from.Valid() || !to.Valid() {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid journey endpoints %v -> %v", from, to)
	}

	route, err := js.generator.Generate(from, to)
	if err != nil {
		if errors.Is(err, da.ErrRouteNotFound) {
			return nil, util.WrapErrorf(err, util.ErrNotFound, "no route from %v to %v", from, to)
		}
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "%s", util.MessageInternalServerError)
	}

	if err := js.engine.UpdateRoute(route); err != nil {
		return nil, err
	}
	js.waitDrive()
	bound := js.engine.Route()
	coords := bound.Coordinates()
	journey := &Journey{
		ID:          uuid.NewString(),
		Origin:      from,
		Destination: to,
		Route:       bound,
		Polyline:    geo.PolylineFromCoords(coords),
		Bounds:      geo.RouteBounds(coords, boundsBuffer),
		CreatedAt:   time.Now(),
	}
	js.current = journey
	js.history.Add(journey.ID, journey)
	js.index.Store(spatialindex.BuildSegmentIndex(bound, js.offRouteRadius, js.log))

	js.log.Info("new journey", zap.String("id", journey.ID), zap.Int("segments", bound.Len()),
		zap.Float64("distance_km", bound.TotalDistance()))
	return journey, nil
}

func (js *JourneyService) endpoint(c *geo.Coordinate) geo.Coordinate {
	if c != nil {
		return *c
	}
	return js.box.RandomCoordinate(js.rd)
}

// Start drives the current journey on the engine worker. It reports false when the vehicle
// is already driving.
func (js *JourneyService) Start(ctx context.Context) (bool, error) {
	js.mu.Lock()
	defer js.mu.Unlock()

	if js.current == nil {
		return false, util.WrapErrorf(nil, util.ErrNotFound, "no journey to drive, create one first")
	}
	if js.driving != nil {
		select {
		case <-js.driving:
		default:
			return false, nil
		}
	}

	done := make(chan struct{})
	js.driving = done
	go js.awaitDrive(js.current.ID, js.engine.GoRoute(context.WithoutCancel(ctx)), done)
	return true, nil
}

func (js *JourneyService) awaitDrive(id string, resc <-chan driving.Result, done chan struct{}) {
	res := <-resc
	close(done)
	if res.Err != nil {
		js.log.Error("drive failed", zap.String("journey", id), zap.Error(res.Err))
		return
	}
	js.log.Info("drive finished", zap.String("journey", id), zap.String("outcome", res.Outcome.String()))
}

// Stop cancels the drive, waits for the worker and puts the vehicle back at the start of
// the current route.
func (js *JourneyService) Stop() {
	js.mu.Lock()
	defer js.mu.Unlock()

	js.engine.Stop()
	js.waitDrive()
	js.engine.Reset(nil)
}

// waitDrive blocks until the last started drive has been observed as finished.
func (js *JourneyService) waitDrive() {
	if js.driving != nil {
		<-js.driving
		js.driving = nil
	}
}

func (js *JourneyService) State() JourneyState {
	state := JourneyState{
		VehicleState:   js.engine.State(),
		NearestSegment: -1,
	}

	js.mu.Lock()
	if js.current != nil {
		state.JourneyID = js.current.ID
	}
	js.mu.Unlock()

	idx := js.index.Load()
	if idx == nil {
		return state
	}
	segment, deviation, ok := idx.NearestSegment(state.Position)
	state.NearestSegment = segment
	state.Deviation = deviation
	state.OffRoute = !ok
	return state
}

func (js *JourneyService) Journey(id string) (*Journey, error) {
	journey, ok := js.history.Get(id)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "journey %s not found", id)
	}
	return journey, nil
}

func (js *JourneyService) Current() (*Journey, error) {
	js.mu.Lock()
	defer js.mu.Unlock()
	if js.current == nil {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "no journey yet")
	}
	return js.current, nil
}
