// pkg/render/session.go
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/event"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/network"
)

// Session is a game a front end draws and drives: either a runner in this
// process or a connection to a server.
type Session struct {
	Buffer   *StateBuffer
	Controls Controls
	// Events is the local session's bus; nil for remote sessions
	Events *event.Bus

	cancel context.CancelFunc
	done   chan error
	closer func()
}

// StartLocal runs a new game in this process until ctx is cancelled or
// Close is called.
func StartLocal(ctx context.Context, cfg *config.GameConfig, logger *logging.Logger) (*Session, error) {
	game, err := engine.NewGame(cfg)
	if err != nil {
		return nil, err
	}
	game.SetLogger(logger)

	buf := &StateBuffer{}
	buf.Set(game.GetGameState())
	runner := engine.NewRunner(game, game.Config.Rules.TickRate, func(state *engine.GameState, _ engine.TickResult) {
		buf.Set(state)
	})

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		Buffer:   buf,
		Controls: LocalControls{Runner: runner},
		Events:   game.EventBus,
		cancel:   cancel,
		done:     make(chan error, 1),
	}
	go func() { s.done <- runner.Run(ctx) }()
	return s, nil
}

// Connect joins the server at address as a watcher and controller, and
// as a tracker when track is set.
func Connect(ctx context.Context, address string, track bool, logger *logging.Logger) (*Session, error) {
	client, err := network.NewClient(address, network.ClientOptions{Logger: logger})
	if err != nil {
		return nil, err
	}

	controller, err := client.DialController(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}
	remote := RemoteControls{Controller: controller}
	if track {
		if remote.Tracker, err = client.DialTracker(ctx); err != nil {
			controller.Close()
			return nil, fmt.Errorf("connect to %s: %w", address, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		Buffer:   &StateBuffer{},
		Controls: remote,
		cancel:   cancel,
		done:     make(chan error, 1),
		closer: func() {
			controller.Close()
			if remote.Tracker != nil {
				remote.Tracker.Close()
			}
		},
	}
	go func() { s.done <- client.Watch(ctx, s.Buffer.Set) }()
	return s, nil
}

// Done delivers the runner's or watcher's result once it stops, so a
// front end notices a server going away.
func (s *Session) Done() <-chan error {
	return s.done
}

// Close stops the runner or closes the connections
func (s *Session) Close() {
	s.cancel()
	if s.closer != nil {
		s.closer()
	}
}

// IsShutdown reports whether err only means the session was closed
func IsShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
