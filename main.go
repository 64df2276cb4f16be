package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/pkg/config"
	"github.com/FACorreiaa/gurume/internal/pkg/logger"
	"github.com/FACorreiaa/gurume/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zapLogger, err := logger.Init(cfg.Log.Level, zap.String("service", cfg.Observability.ServiceName), zap.String("version", version))
	if zapLogger == nil {
		return err
	}
	if err != nil {
		zapLogger.Warn("Logger configured with fallback level", zap.Error(err))
	}
	defer func() { _ = zapLogger.Sync() }()

	otelShutdown, err := server.InitObservability(cfg.Observability, version, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			zapLogger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	srv, err := server.New(context.Background(), cfg, zapLogger)
	if err != nil {
		return err
	}
	defer srv.Close()

	router := server.SetupRouter(srv.App(), cfg.Observability.ServiceName, zapLogger)
	srv.SetRouter(router)

	server.StartPprofServer(cfg.Observability.PprofAddr, zapLogger)

	httpServer := srv.HTTPServer()

	done := make(chan struct{})
	go server.GracefulShutdown(httpServer, zapLogger, done)

	zapLogger.Info("Server starting", zap.String("port", cfg.ServerPort), zap.Bool("demo", cfg.DemoMode()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Error("Server error", zap.Error(err))
		return err
	}

	<-done
	zapLogger.Info("Graceful shutdown complete")

	return nil
}
