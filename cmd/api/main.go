package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/shared/config"
	"truebalance/internal/shared/logging"
	"truebalance/internal/shared/telemetry"
)

func main() {
	logger := logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if err := run(logger); err != nil {
		logger.WithError(err).Fatal("Application error")
	}
}

func run(logger *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Server.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		}, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logger.WithError(err).Error("Telemetry shutdown failed")
			}
		}()
	}

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	handler := SetupRoutes(deps, cfg, logger)
	srv, redirectSrv, errc := StartServers(NewServerConfigFromConfig(handler, cfg), logger)

	select {
	case <-ctx.Done():
	case err := <-errc:
		GracefulShutdown(srv, redirectSrv, 30*time.Second, logger)
		return err
	}

	GracefulShutdown(srv, redirectSrv, 30*time.Second, logger)
	return nil
}
