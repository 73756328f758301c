package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jo-hoe/woundtrack/internal/backend"
	"github.com/jo-hoe/woundtrack/internal/backend/objectstore"
	"github.com/jo-hoe/woundtrack/internal/common"
	"github.com/jo-hoe/woundtrack/internal/core"
	frontend "github.com/jo-hoe/woundtrack/internal/frontend"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("woundtrack server stopped: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, _ := core.ConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	coreService, err := core.NewCoreService(config, registry)
	if err != nil {
		return fmt.Errorf("failed to initialize core service: %w", err)
	}
	uploader, err := newUploader(config)
	if err != nil {
		_ = coreService.Close(context.Background())
		return err
	}

	server := newServer()
	backend.NewAPIService(config, coreService, uploader, registry).SetRoutes(server)
	frontend.NewFrontendService(config, coreService).SetRoutes(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on :%d (platform=%s)", config.Port, config.Platform)
		serveErr <- server.Start(fmt.Sprintf(":%d", config.Port))
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = coreService.Close(context.Background())
			return fmt.Errorf("http server error: %w", err)
		}
	case <-ctx.Done():
		log.Printf("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// The camera is released even when the HTTP shutdown times out.
	return errors.Join(server.Shutdown(shutdownCtx), coreService.Close(shutdownCtx))
}

func newServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      func(c echo.Context) bool { return c.Path() == "/probe" },
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRoutePath: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.String("route", v.RoutePath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())
	e.Validator = &common.GenericEchoValidator{}
	return e
}

// newUploader returns a nil uploader when remote storage is disabled,
// leaving the upload endpoint to answer 503.
func newUploader(config *core.ServiceConfig) (*objectstore.Uploader, error) {
	storeConfig := config.RemoteStorage.ObjectStoreConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := objectstore.New(ctx, storeConfig)
	if errors.Is(err, objectstore.ErrDisabled) {
		slog.Info("remote storage disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote storage: %w", err)
	}
	slog.Info("remote storage initialized", "driver", store.Driver(), "bucket", storeConfig.Bucket)
	return objectstore.NewUploader(store, storeConfig.KeyPrefix, storeConfig.MaxUploadBytes), nil
}
