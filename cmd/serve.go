package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpadapter "ordertrack/internal/adapters/in/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scene streams and the tracking jobs",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg := LoadConfig(v)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(c.Context(), cfg, slog.Default())
		},
	}

	serve.Flags().String("http-port", "", "HTTP listen port")
	serve.Flags().String("store", "", "order store: postgres or memory")
	serve.Flags().Bool("simulation-enabled", false, "move partners along simulated legs")
	_ = v.BindPFlag("HTTP_PORT", serve.Flags().Lookup("http-port"))
	_ = v.BindPFlag("STORE", serve.Flags().Lookup("store"))
	_ = v.BindPFlag("SIMULATION_ENABLED", serve.Flags().Lookup("simulation-enabled"))
	return serve
}

func serve(parent context.Context, cfg Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewCompositionRoot(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("Shutdown incomplete", "error", closeErr)
		}
	}()

	if err = app.Start(ctx); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.WARN)
	e.Use(middleware.Recover())
	httpadapter.NewServer(app.Tracker, logger).Register(e)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTPPort, "store", cfg.Store,
			"simulation", cfg.SimulationEnabled)
		serveErr <- e.Start(fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort))
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
