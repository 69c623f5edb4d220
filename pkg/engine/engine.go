package engine

import (
	"time"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/engine/driving"
	"github.com/lintang-b-s/drivesim/pkg/navigation"
	"github.com/lintang-b-s/drivesim/pkg/routegen"
	"github.com/lintang-b-s/drivesim/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Engine wires a route generator, a navigation provider and the driving engine that
// corrects against it.
type Engine struct {
	generator     *routegen.Generator
	navigator     navigation.Provider
	drivingEngine *driving.Engine
	seed          uint64
}

func (e *Engine) GetDrivingEngine() *driving.Engine {
	return e.drivingEngine
}

func (e *Engine) GetGenerator() *routegen.Generator {
	return e.generator
}

func (e *Engine) GetNavigator() navigation.Provider {
	return e.navigator
}

func (e *Engine) Seed() uint64 {
	return e.seed
}

func NewEngine(cfg util.Config, logger *zap.Logger) (*Engine, error) {
	seed := uint64(cfg.Seed)
	if cfg.Seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	logger.Info("Starting self-driving simulation engine...", zap.Uint64("seed", seed))

	unit, err := da.ParseUnit(cfg.ProviderUnit)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "provider unit")
	}
	strategy, err := navigation.ParseStrategy(cfg.NavigationStrategy)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "navigation strategy")
	}

	genCfg := routegen.DefaultConfig()
	genCfg.MinSegments = cfg.MinSegments
	genCfg.MaxSegments = cfg.MaxSegments
	genCfg.MaxBearingDeviation = cfg.MaxBearingDeviation
	genCfg.MinStep = cfg.MinStep
	genCfg.Unit = unit

	// every component draws from its own stream so one seed reproduces the whole run
	generator, err := routegen.NewGenerator(genCfg, rand.New(rand.NewSource(seed)), logger)
	if err != nil {
		return nil, err
	}

	var navigator navigation.Provider = navigation.NewNavigator(generator, strategy, logger)
	if cfg.NavigationOutage {
		navigator = navigation.NewIntermittent(navigator, rand.New(rand.NewSource(seed+1)), cfg.OutageChance, logger)
	}
	logger.Info("Navigation provider ready", zap.String("strategy", strategy.String()),
		zap.Bool("outage", cfg.NavigationOutage), zap.String("unit", unit.String()))

	drivingEngine := driving.NewEngine(driving.Config{
		TickInterval:      cfg.TickInterval,
		BearingDriftRatio: cfg.BearingDriftRatio,
		SpeedDriftRatio:   cfg.SpeedDriftRatio,
		SpeedScaleFactor:  cfg.SpeedScaleFactor,
		TicksPerHour:      cfg.TicksPerHour,
	}, navigator, rand.New(rand.NewSource(seed+2)), logger)

	return &Engine{
		generator:     generator,
		navigator:     navigator,
		drivingEngine: drivingEngine,
		seed:          seed,
	}, nil
}
