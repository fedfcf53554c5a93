// Package main is the entry point for the Heliotherm bridge service.
// It initializes all components and manages the application lifecycle.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tsoiks/heliotherm-bridge/internal/adapter/config"
	"github.com/tsoiks/heliotherm-bridge/internal/adapter/modbus"
	"github.com/tsoiks/heliotherm-bridge/internal/adapter/mqtt"
	"github.com/tsoiks/heliotherm-bridge/internal/api"
	"github.com/tsoiks/heliotherm-bridge/internal/coordinator"
	"github.com/tsoiks/heliotherm-bridge/internal/health"
	"github.com/tsoiks/heliotherm-bridge/internal/metrics"
	"github.com/tsoiks/heliotherm-bridge/pkg/logging"
)

const (
	serviceName    = "heliotherm-bridge"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration first: logging settings come from it.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(serviceName, serviceVersion, logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	logger.Info().Str("env", cfg.Environment).Msg("Starting Heliotherm bridge")

	metricsRegistry := metrics.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register catalog: built-in Heliotherm map unless a custom one is
	// configured.
	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load register catalog")
	}
	logger.Info().Int("fields", catalog.Len()).Msg("Register catalog loaded")

	// Modbus connection manager. No connection is made yet; the first
	// poll cycle dials.
	conn, err := modbus.NewConn(modbus.Config{
		Address:        cfg.Heatpump.Address(),
		UnitID:         byte(cfg.Heatpump.UnitID),
		ConnectTimeout: cfg.Heatpump.ConnectTimeout,
		RequestTimeout: cfg.Heatpump.RequestTimeout,
	}, logger, metricsRegistry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create connection manager")
	}

	coord := coordinator.New(coordinator.Config{
		ReadOnly:     cfg.Heatpump.ReadOnly,
		WriteTimeout: cfg.Heatpump.RequestTimeout,
	}, catalog, conn, logger, metricsRegistry)
	defer coord.Shutdown()

	if cfg.Heatpump.ReadOnly {
		logger.Info().Msg("Read-only mode active: all writes will be rejected")
	}

	// Optional MQTT snapshot publishing.
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		mqttPublisher = mqtt.NewPublisher(mqtt.Config{
			BrokerURL:      cfg.MQTT.BrokerURL,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			QoS:            cfg.MQTT.QoS,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
		}, logger, metricsRegistry)

		if err := mqttPublisher.Connect(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
		}
		defer mqttPublisher.Disconnect()

		coord.SetPublisher(mqttPublisher)
		logger.Info().Str("broker", cfg.MQTT.BrokerURL).Msg("MQTT snapshot publishing enabled")
	}

	// Start the poll loop. A failed first refresh is logged but does not
	// abort startup: the device may simply be rebooting, and readiness
	// reflects the missing snapshot until a cycle succeeds.
	runner := coordinator.NewRunner(coordinator.RunnerConfig{
		Interval:            cfg.Polling.Interval,
		FirstRefreshTimeout: cfg.Polling.FirstRefreshTimeout,
	}, coord, logger)
	if err := runner.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial poll cycle failed; service starts degraded")
	}
	defer runner.Stop()

	// Health checks and HTTP server.
	healthChecker := health.NewChecker(health.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
	})
	healthChecker.AddCheck("coordinator", coord)
	if mqttPublisher != nil {
		healthChecker.AddCheck("mqtt", mqttPublisher)
	}

	apiHandler := api.NewHandler(coord, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthChecker.HealthHandler)
	mux.HandleFunc("/health/live", healthChecker.LivenessHandler)
	mux.HandleFunc("/health/ready", healthChecker.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", apiHandler.StatusHandler(serviceName, serviceVersion))
	mux.HandleFunc("/api/snapshot", apiHandler.SnapshotHandler)
	mux.HandleFunc("/api/write", apiHandler.WriteHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	logger.Info().
		Str("heatpump", cfg.Heatpump.Address()).
		Dur("interval", cfg.Polling.Interval).
		Bool("read_only", cfg.Heatpump.ReadOnly).
		Int("http_port", cfg.HTTP.Port).
		Msg("Heliotherm bridge started successfully")

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the poll loop before the transport goes away.
	runner.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	// Coordinator shutdown and MQTT disconnect are handled by defer.
	logger.Info().Msg("Heliotherm bridge shutdown complete")
}
