// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/tracklab/calsys/internal/api"
	"github.com/tracklab/calsys/internal/conf"
	"github.com/tracklab/calsys/internal/datastore"
	"github.com/tracklab/calsys/internal/logging"
	"github.com/tracklab/calsys/internal/security"
)

const shutdownTimeout = 10 * time.Second

// Command returns the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the calsys HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}
}

func runServer(settings *conf.Settings) error {
	logger := logging.ForService("server")

	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Main.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "server", level)
		if err != nil {
			logger.Warn("Failed to open log file, continuing with stdout only",
				"path", settings.Main.Log.Path, "error", err)
		} else {
			logger = fileLogger
			defer func() {
				if err := closeLog(); err != nil {
					logging.Error("Failed to close log file", "error", err)
				}
			}()
		}
	}

	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no calsys database engine enabled")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening calsys store: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Error("Failed to close calsys store", "error", err)
		}
	}()

	users, err := datastore.NewUserStore(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := users.Close(); err != nil {
			logger.Error("Failed to close auth store", "error", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	sessions := security.NewManager(settings)
	api.New(e, ds, users, settings, sessions)

	address := settings.WebServer.Host + ":" + settings.WebServer.Port
	errChan := make(chan error, 1)
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	logger.Info("Server started", "address", address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// requestLogger logs each request through the structured logger.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	})
}
