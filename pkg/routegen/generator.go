package routegen

import (
	"fmt"
	"sync"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/geo"
	"github.com/lintang-b-s/drivesim/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

type Config struct {
	MinSegments         int
	MaxSegments         int
	MaxBearingDeviation float64 // degrees
	MinStep             float64 // in Unit
	SpeedLimits         []float64
	Unit                da.Unit
}

func DefaultConfig() Config {
	return Config{
		MinSegments:         5,
		MaxSegments:         9,
		MaxBearingDeviation: 45.0,
		MinStep:             1.0,
		SpeedLimits:         []float64{20, 30, 35, 50, 60, 75, 80},
		Unit:                da.UnitMiles,
	}
}

// Generator synthesizes a route between two points: a random number of legs, each
// heading roughly toward the destination, then a final leg straight onto it.
type Generator struct {
	cfg Config
	log *zap.Logger

	mu sync.Mutex
	rd *rand.Rand
}

func NewGenerator(cfg Config, rd *rand.Rand, log *zap.Logger) (*Generator, error) {
	if cfg.MinSegments < 1 || cfg.MaxSegments < cfg.MinSegments {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid segment range [%d, %d]",
			cfg.MinSegments, cfg.MaxSegments)
	}
	if len(cfg.SpeedLimits) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "no speed limits configured")
	}
	for _, s := range cfg.SpeedLimits {
		if s <= 0 {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "speed limit must be positive, got %v", s)
		}
	}
	if cfg.MinStep <= 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "min step must be positive, got %v", cfg.MinStep)
	}
	return &Generator{
		cfg: cfg,
		rd:  rd,
		log: log,
	}, nil
}

func (g *Generator) Unit() da.Unit {
	return g.cfg.Unit
}

// Generate returns at least one segment for any pair of valid coordinates. Distances and
// speed limits are in the generator's unit.
func (g *Generator) Generate(start, destination geo.Coordinate) (*da.Route, error) {
	if !start.Valid() || !destination.Valid() {
		return nil, fmt.Errorf("%w: invalid endpoints %v -> %v", da.ErrRouteNotFound, start, destination)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	kmPerUnit := geo.MilesToKm(1)
	if g.cfg.Unit == da.UnitKilometers {
		kmPerUnit = 1
	}

	n := g.cfg.MinSegments + g.rd.Intn(g.cfg.MaxSegments-g.cfg.MinSegments+1)
	segments := make([]da.RoadSegment, 0, n)

	current := start
	remaining := geo.Distance(start, destination) / kmPerUnit

	for i := 0; i < n-1; i++ {
		upper := remaining / 2
		if upper <= g.cfg.MinStep {
			// too close for another waypoint, finish with the direct leg
			break
		}

		step := g.cfg.MinStep + g.rd.Float64()*(upper-g.cfg.MinStep)
		bearing := g.randomizeBearing(geo.Bearing(current, destination))
		waypoint := geo.Destination(current, bearing, step*kmPerUnit)

		segments = append(segments, da.NewRoadSegment(current, waypoint, g.randomSpeedLimit(), g.cfg.Unit))
		current = waypoint
		remaining = geo.Distance(current, destination) / kmPerUnit
	}

	segments = append(segments, da.NewRoadSegment(current, destination, g.randomSpeedLimit(), g.cfg.Unit))

	g.log.Debug("generated route", zap.Int("segments", len(segments)), zap.Int("planned", n),
		zap.String("unit", g.cfg.Unit.String()))

	return da.NewRoute(segments, g.cfg.Unit), nil
}

func (g *Generator) randomizeBearing(bearing float64) float64 {
	offset := (g.rd.Float64()*2 - 1) * g.cfg.MaxBearingDeviation
	return geo.NormalizeBearing(bearing + offset)
}

func (g *Generator) randomSpeedLimit() float64 {
	return g.cfg.SpeedLimits[g.rd.Intn(len(g.cfg.SpeedLimits))]
}
