// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/health"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/network"
	"github.com/opd-ai/go-facebreak/pkg/render"
	"github.com/opd-ai/go-facebreak/pkg/resource"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file (.json or .toml)")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	preset := flag.String("preset", "", "Board preset to apply")
	trace := flag.Bool("trace", false, "Log every rendered frame at debug level")
	flag.Parse()

	// Create default configuration file if requested
	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	gameConfig, err := config.LoadConfigWithPreset(*configPath, *preset)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}

	// Apply environment variable overrides
	if err := config.ApplyEnvironmentOverrides(gameConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}
	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Invalid environment configuration", err)
		os.Exit(1)
	}

	game, err := engine.NewGame(gameConfig)
	if err != nil {
		logger.Error(ctx, "Failed to create game", err)
		os.Exit(1)
	}
	game.SetLogger(logger)

	var onFrame engine.FrameFunc
	if *trace {
		tracer := render.NewNullRenderer(logger)
		onFrame = func(state *engine.GameState, _ engine.TickResult) {
			render.Draw(tracer, state)
		}
	}
	runner := engine.NewRunner(game, gameConfig.Rules.TickRate, onFrame)

	server, err := network.NewServer(runner, network.ServerOptions{
		ReadTimeout:  envConfig.ReadTimeout,
		WriteTimeout: envConfig.WriteTimeout,
		Logger:       logger,
	})
	if err != nil {
		logger.Error(ctx, "Failed to create server", err)
		os.Exit(1)
	}

	manager := resource.NewResourceManager(envConfig, logger)

	// Setup health checks
	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewEngineHealthCheck(runner.LastTick, 10*runner.Interval()+time.Second))
	healthChecker.AddCheck(health.NewTrackingHealthCheck(game.LastDetection, func() bool {
		s := game.Status()
		return s == engine.StatusCountdown || s == engine.StatusRunning
	}, 5*time.Second))
	healthChecker.AddCheck(health.NewNetworkHealthCheck(server.Address))
	healthChecker.AddCheck(resource.NewResourceHealthCheck(manager))
	healthChecker.AddCheck(health.NewMemoryHealthCheck(int64(envConfig.MaxMemoryMB), nil))

	var detector *network.DetectorClient
	if url := gameConfig.Tracking.DetectorURL; url != "" {
		breaker := network.NewBreaker("detector", envConfig, logger)
		detector = network.NewDetectorClient(url, breaker, game.Mailbox, network.DetectorOptions{
			Interval:      time.Duration(gameConfig.Tracking.PollIntervalMs) * time.Millisecond,
			Timeout:       envConfig.DetectorTimeout,
			RightKeypoint: gameConfig.Tracking.RightKeypoint,
			LeftKeypoint:  gameConfig.Tracking.LeftKeypoint,
			Logger:        logger,
		})
		healthChecker.AddCheck(health.NewBreakerHealthCheck("detector", breaker))
	}

	// Start health check HTTP server
	healthPort := "8080"
	if envPort := os.Getenv("FACEBREAK_HEALTH_PORT"); envPort != "" {
		if _, err := strconv.Atoi(envPort); err == nil {
			healthPort = envPort
		}
	}
	healthMux := http.NewServeMux()
	healthChecker.Routes(healthMux)
	healthServer := &http.Server{
		Addr:         ":" + healthPort,
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "Starting health check server",
			"port", healthPort,
		)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()

	if err := manager.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	address := gameConfig.Network.ListenAddress
	logger.Info(ctx, "Starting server",
		"address", address,
		"max_clients", gameConfig.Network.MaxClients,
		"session", game.SessionID(),
	)

	tasks := map[string]resource.Task{
		"runner": runner.Run,
		"server": func(ctx context.Context) error {
			return server.ListenAndServe(ctx, address, nil)
		},
	}
	if detector != nil {
		tasks["detector"] = detector.Run
	}
	for name, task := range tasks {
		if err := manager.Go(name, task); err != nil {
			logger.Error(ctx, "Failed to start task", err, "task", name)
			os.Exit(1)
		}
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.Info(ctx, "Shutting down server", "signal", sig.String())
	case <-manager.Context().Done():
		if err := manager.Err(); err != nil {
			logger.Error(ctx, "Server task failed", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), envConfig.ShutdownTimeout)

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Health check server shutdown failed", err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Resource manager shutdown failed", err)
		exitCode = 1
	}
	cancel()
	os.Exit(exitCode)
}
