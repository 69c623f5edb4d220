package http

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	http_router "github.com/lintang-b-s/drivesim/pkg/http/router"
	"github.com/lintang-b-s/drivesim/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/drivesim/pkg/http/server"
	"github.com/lintang-b-s/drivesim/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use serves the API, the websocket stream and its proxy until ctx is cancelled or one of
// them fails.
func (s *Server) Use(
	ctx context.Context,
	log *zap.Logger,

	cfg util.Config,
	journeyService controllers.JourneyService,
) error {
	config := http_server.Config{
		Port:           cfg.APIPort,
		WebsocketPort:  cfg.WebsocketPort,
		ProxyPort:      cfg.ProxyPort,
		Timeout:        cfg.APITimeout,
		StreamInterval: cfg.StreamInterval,
		UseRateLimit:   cfg.UseRateLimit,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}

	server := http_router.NewAPI(log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(
			gctx, config, log,
			journeyService,
		)
	})

	g.Go(func() error {
		<-gctx.Done()
		journeyService.Stop()
		log.Info("vehicle stopped")
		return nil
	})

	return g.Wait()
}

// GracefulShutdown blocks until SIGINT or SIGTERM arrives.
func GracefulShutdown() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}
