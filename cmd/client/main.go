// cmd/client/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-facebreak/pkg/audio"
	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/render"
	engorender "github.com/opd-ai/go-facebreak/pkg/render/engo"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file (.json or .toml)")
	preset := flag.String("preset", "", "Board preset to apply (local play only)")
	serverAddr := flag.String("server", "", "Server address; empty plays locally")
	mouse := flag.Bool("mouse", true, "Drive the paddle with the mouse")
	sound := flag.Bool("sound", true, "Play sound effects")
	volume := flag.Float64("volume", 0.5, "Sound volume (0-1)")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode")
	width := flag.Int("width", 1024, "Window width")
	height := flag.Int("height", 768, "Window height")
	flag.Parse()

	var session *render.Session
	var err error
	if *serverAddr == "" {
		gameConfig, err := config.LoadConfigWithPreset(*configPath, *preset)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
		if err := config.ApplyEnvironmentOverrides(gameConfig); err != nil {
			logger.Error(ctx, "Failed to apply environment configuration", err)
			os.Exit(1)
		}
		session, err = render.StartLocal(ctx, gameConfig, logger)
		if err != nil {
			logger.Error(ctx, "Failed to start game", err)
			os.Exit(1)
		}
	} else {
		logger.Info(ctx, "Connecting to server", "address", *serverAddr)
		session, err = render.Connect(ctx, *serverAddr, *mouse, logger)
		if err != nil {
			logger.Error(ctx, "Failed to connect to server", err, "address", *serverAddr)
			os.Exit(1)
		}
		logger.Info(ctx, "Connected to server")
	}

	player := audio.NewPlayer(*volume, logger)
	var onFrame func(state *engine.GameState)
	if *sound {
		if err := player.Initialize(); err != nil {
			logger.Warn(ctx, "Sound disabled", "error", err.Error())
		}
		if session.Events != nil {
			player.Attach(session.Events)
		} else {
			onFrame = player.Observe
		}
	}

	go func() {
		if err := <-session.Done(); !render.IsShutdown(err) {
			logger.Error(ctx, "Session ended", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		session.Close()
		player.Close()
		os.Exit(0)
	}()

	scene := engorender.NewGameScene(session.Buffer, session.Controls, engorender.SceneOptions{
		Mouse:   *mouse,
		OnFrame: onFrame,
		OnExit: func() {
			session.Close()
			player.Close()
		},
		Logger: logger,
	})

	engo.Run(engo.RunOptions{
		Title:      "FaceBreak",
		Width:      *width,
		Height:     *height,
		Fullscreen: *fullscreen,
		VSync:      true,
	}, scene)
}
