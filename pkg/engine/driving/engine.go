package driving

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"github.com/lintang-b-s/drivesim/pkg/navigation"
	"github.com/lintang-b-s/drivesim/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

type Config struct {
	// TickInterval paces the tick loop in wall-clock time. Zero disables pacing.
	TickInterval      time.Duration
	BearingDriftRatio float64
	SpeedDriftRatio   float64
	SpeedScaleFactor  float64
	TicksPerHour      float64
}

func DefaultConfig() Config {
	return Config{
		TickInterval:      50 * time.Millisecond,
		BearingDriftRatio: 0.05,
		SpeedDriftRatio:   0.075,
		SpeedScaleFactor:  2400.0,
		TicksPerHour:      72000.0,
	}
}

type Outcome uint8

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeNoRoute
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeNoRoute:
		return "no_route"
	}
	return "unknown"
}

type Result struct {
	Outcome Outcome
	Err     error
}

// Engine owns the vehicle. All vehicle fields below the handoff block are written only by
// the goroutine currently holding the drive slot; readers go through State.
type Engine struct {
	cfg Config
	nav navigation.Provider
	log *zap.Logger
	rd  *rand.Rand

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	route        *da.Route
	position     geo.Coordinate
	speed        float64
	bearing      float64
	index        int
	traveled     float64
	tick         uint64
	isDriving    bool
	phase        da.Phase
	navAvailable bool

	snapshot atomic.Pointer[da.VehicleState]
}

func NewEngine(cfg Config, nav navigation.Provider, rd *rand.Rand, log *zap.Logger) *Engine {
	e := &Engine{
		cfg:          cfg,
		nav:          nav,
		log:          log,
		rd:           rd,
		phase:        da.PhaseIdle,
		navAvailable: true,
	}
	if route := nav.Route(); route.Len() > 0 {
		e.route = route
		e.position = route.Start()
	}
	e.publish()
	return e
}

// State returns the latest published snapshot. Safe to call from any goroutine.
func (e *Engine) State() da.VehicleState {
	return *e.snapshot.Load()
}

func (e *Engine) Route() *da.Route {
	return e.nav.Route()
}

// acquire cancels the drive in flight, waits for it to return, then hands the drive slot
// to the caller. release must be called when the caller is done mutating the vehicle.
func (e *Engine) acquire(ctx context.Context) (context.Context, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done

	return runCtx, func() {
		cancel()
		close(done)
	}
}

func (e *Engine) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel, e.done = nil, nil
}

// Stop cancels the drive in flight, if any, and returns once it has stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// StartDriving places the vehicle at start, resolves a route to destination through the
// navigation provider and drives it. A missing route is reported as OutcomeNoRoute; a
// cancelled ctx as OutcomeCancelled.
func (e *Engine) StartDriving(ctx context.Context, start, destination geo.Coordinate) (Outcome, error) {
	runCtx, release := e.acquire(ctx)
	defer release()
	return e.startDriving(runCtx, start, destination)
}

// DriveRoute drives the bound route from its first coordinate.
func (e *Engine) DriveRoute(ctx context.Context) (Outcome, error) {
	runCtx, release := e.acquire(ctx)
	defer release()
	return e.driveRoute(runCtx)
}

// Go runs StartDriving on a background worker. The previous drive has stopped by the time
// Go returns.
func (e *Engine) Go(ctx context.Context, start, destination geo.Coordinate) <-chan Result {
	return e.launch(ctx, func(runCtx context.Context) (Outcome, error) {
		return e.startDriving(runCtx, start, destination)
	})
}

// GoRoute runs DriveRoute on a background worker.
func (e *Engine) GoRoute(ctx context.Context) <-chan Result {
	return e.launch(ctx, e.driveRoute)
}

func (e *Engine) launch(ctx context.Context, drive func(context.Context) (Outcome, error)) <-chan Result {
	runCtx, release := e.acquire(ctx)
	resc := make(chan Result, 1)
	go func() {
		defer release()
		outcome, err := drive(runCtx)
		resc <- Result{Outcome: outcome, Err: err}
	}()
	return resc
}

// Reset stops any drive and binds route (the current one when nil), leaving the vehicle
// idle at the route's first coordinate.
func (e *Engine) Reset(route *da.Route) {
	_, release := e.acquire(context.Background())
	defer release()

	if route == nil {
		route = e.nav.Route()
	}
	e.bind(route)
	e.log.Debug("engine reset", zap.Int("segments", e.route.Len()))
}

// UpdateRoute stops any drive and binds a new route.
func (e *Engine) UpdateRoute(route *da.Route) error {
	if route.Len() == 0 {
		return util.WrapErrorf(navigation.ErrRouteNotFound, util.ErrBadParamInput, "cannot bind an empty route")
	}

	_, release := e.acquire(context.Background())
	defer release()

	e.bind(route)
	e.log.Debug("route updated", zap.Int("segments", e.route.Len()),
		zap.Float64("distance_km", e.route.TotalDistance()))
	return nil
}

func (e *Engine) bind(route *da.Route) {
	if route != nil {
		route = e.nav.Bind(route)
	}
	e.route = route
	e.index = 0
	e.traveled = 0
	e.tick = 0
	e.speed = 0
	e.bearing = 0
	e.isDriving = false
	e.phase = da.PhaseIdle
	e.navAvailable = true
	if route.Len() > 0 {
		e.position = route.Start()
	}
	e.publish()
}

func (e *Engine) startDriving(ctx context.Context, start, destination geo.Coordinate) (Outcome, error) {
	e.log.Debug("starting self-driving car", zap.Any("start", start), zap.Any("destination", destination))

	e.position = start
	e.isDriving = true
	e.phase = da.PhaseDriving

	// the driving phase is published once a route is bound
	route, err := e.nav.Navigate(start, destination)
	if err != nil || route.Len() == 0 {
		e.isDriving = false
		e.phase = da.PhaseIdle
		e.publish()
		if err == nil || errors.Is(err, navigation.ErrRouteNotFound) {
			e.log.Debug("no route found, not driving", zap.Error(err))
			return OutcomeNoRoute, nil
		}
		return OutcomeNoRoute, util.WrapErrorf(err, util.ErrInternalServerError, "navigate")
	}

	e.route = route
	e.index = 0
	e.traveled = 0
	e.tick = 0
	e.publish()
	return e.drive(ctx)
}

func (e *Engine) driveRoute(ctx context.Context) (Outcome, error) {
	route := e.nav.Route()
	if route.Len() == 0 {
		return OutcomeNoRoute, nil
	}
	e.bind(route)

	e.isDriving = true
	e.phase = da.PhaseDriving
	e.publish()
	return e.drive(ctx)
}

func (e *Engine) drive(ctx context.Context) (Outcome, error) {
	for e.index < e.route.Len() {
		if !e.travelSegment(ctx) {
			e.isDriving = false
			e.phase = da.PhaseCancelled
			e.publish()
			e.log.Debug("drive cancelled", zap.Int("segment", e.index), zap.Uint64("tick", e.tick))
			return OutcomeCancelled, nil
		}
		e.index++
		e.traveled = 0
	}

	e.isDriving = false
	e.phase = da.PhaseCompleted
	e.publish()
	e.log.Debug("destination reached", zap.Int("segments", e.route.Len()), zap.Uint64("ticks", e.tick))
	return OutcomeCompleted, nil
}

// travelSegment runs the tick loop over the active segment. It returns false when ctx was
// cancelled before the segment was covered.
func (e *Engine) travelSegment(ctx context.Context) bool {
	e.nav.ResetLink()
	e.navAvailable = true
	e.traveled = 0

	e.speed += e.nav.GetSpeedCorrection(e.index, e.speed)
	e.bearing = geo.NormalizeBearing(e.bearing + e.nav.GetBearingCorrection(e.index, e.bearing))
	distance := e.nav.GetDistance(e.index)

	for e.traveled < distance {
		if util.StopConcurrentOperation(ctx) {
			return false
		}

		e.applyCorrection()

		step := e.speed * e.cfg.SpeedScaleFactor / e.cfg.TicksPerHour
		step = util.ClampFloat(step, 0, distance-e.traveled)

		e.position = geo.Destination(e.position, e.bearing, step)
		e.traveled += step
		e.tick++

		e.drift()
		e.publish()

		if !e.sleep(ctx) {
			return false
		}
	}
	return true
}

func (e *Engine) applyCorrection() {
	sample, ok := e.nav.PollCorrection(e.index, e.speed, e.bearing)
	if ok != e.navAvailable {
		if ok {
			e.log.Debug("navigation restored", zap.Int("segment", e.index), zap.Uint64("tick", e.tick))
		} else {
			e.log.Debug("navigation lost", zap.Int("segment", e.index), zap.Uint64("tick", e.tick))
		}
	}
	e.navAvailable = ok
	if !ok {
		return
	}
	e.speed += sample.SpeedDelta
	e.bearing = geo.NormalizeBearing(e.bearing + sample.BearingDelta)
}

// drift multiplies bearing and speed by independent factors in [1-p, 1+p].
func (e *Engine) drift() {
	e.bearing = geo.NormalizeBearing(e.bearing * (1 + e.driftFactor(e.cfg.BearingDriftRatio)))
	e.speed *= 1 + e.driftFactor(e.cfg.SpeedDriftRatio)
}

func (e *Engine) driftFactor(ratio float64) float64 {
	return e.rd.Float64()*(ratio*2) - ratio
}

func (e *Engine) sleep(ctx context.Context) bool {
	if e.cfg.TickInterval <= 0 {
		return true
	}
	timer := time.NewTimer(e.cfg.TickInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) publish() {
	state := &da.VehicleState{
		Position:            e.position,
		Speed:               e.speed,
		Bearing:             e.bearing,
		ActiveSegmentIndex:  e.index,
		SegmentCount:        e.route.Len(),
		IsDriving:           e.isDriving,
		Phase:               e.phase,
		NavigationAvailable: e.navAvailable,
		Tick:                e.tick,
		SegmentTraveled:     e.traveled,
	}
	if e.route.Len() > 0 {
		dist, hours := e.route.Remaining(e.index, e.traveled)
		state.RemainingDistance = dist
		state.RemainingTime = util.HoursToMinutes(hours)
	}
	e.snapshot.Store(state)
}
