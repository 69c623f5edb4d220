package main

import (
	"context"
	"flag"

	da "github.com/lintang-b-s/drivesim/pkg/datastructure"
	"github.com/lintang-b-s/drivesim/pkg/engine"
	"github.com/lintang-b-s/drivesim/pkg/http"
	"github.com/lintang-b-s/drivesim/pkg/http/usecases"
	"github.com/lintang-b-s/drivesim/pkg/logger"
	"github.com/lintang-b-s/drivesim/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	autoStart = flag.Bool("auto_start", false, "start driving the first journey right away")
)

func main() {
	flag.Parse()
	cfg, err := util.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	simEngine, err := engine.NewEngine(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build engine", zap.Error(err))
	}

	box := da.NewBoundingBox(cfg.JourneyMinLat, cfg.JourneyMinLon, cfg.JourneyMaxLat, cfg.JourneyMaxLon)
	journeyService, err := usecases.NewJourneyService(logger, simEngine.GetDrivingEngine(), simEngine.GetGenerator(),
		box, rand.New(rand.NewSource(simEngine.Seed()+3)), cfg.HistorySize, cfg.OffRouteRadius)
	if err != nil {
		logger.Fatal("failed to build journey service", zap.Error(err))
	}

	journey, err := journeyService.NewJourney(nil, nil)
	if err != nil {
		logger.Fatal("failed to create the first journey", zap.Error(err))
	}

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	if *autoStart {
		if _, err := journeyService.Start(ctx); err != nil {
			logger.Error("failed to start driving", zap.String("journey", journey.ID), zap.Error(err))
		}
	}

	api := http.NewServer(logger)
	go func() {
		if err := api.Use(ctx, logger, cfg, journeyService); err != nil {
			logger.Error("server stopped with error", zap.Error(err))
		}
	}()

	signal := http.GracefulShutdown()

	logger.Info("drivesim server stopped", zap.String("signal", signal.String()))
	cleanup()
	journeyService.Stop()
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
