// pkg/engine/runner.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/logging"
)

// ErrUnknownCommand is returned for control commands the session does not know
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind names a session control action
type CommandKind string

// Control commands accepted by the runner
const (
	CommandStart  CommandKind = "start"
	CommandPause  CommandKind = "pause"
	CommandResume CommandKind = "resume"
	CommandToggle CommandKind = "toggle"
	CommandReset  CommandKind = "reset"
	CommandResize CommandKind = "resize"
	CommandFlip   CommandKind = "flip"
)

// Command is a control request applied between ticks
type Command struct {
	Kind   CommandKind `json:"command"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
}

// ParseCommandKind validates a command name
func ParseCommandKind(s string) (CommandKind, error) {
	kind := CommandKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case CommandStart, CommandPause, CommandResume, CommandToggle,
		CommandReset, CommandResize, CommandFlip:
		return kind, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownCommand)
}

// Apply executes cmd against the game. State-machine misuse is not an
// error; only unknown commands and rejected resizes are.
func (g *Game) Apply(cmd Command) error {
	switch cmd.Kind {
	case CommandStart:
		g.Start()
	case CommandPause:
		g.Pause()
	case CommandResume:
		g.Resume()
	case CommandToggle:
		g.TogglePause()
	case CommandReset:
		g.Reset()
	case CommandResize:
		return g.Resize(cmd.Width, cmd.Height)
	case CommandFlip:
		g.ToggleMirror()
	default:
		return fmt.Errorf("%q: %w", cmd.Kind, ErrUnknownCommand)
	}
	return nil
}

// FrameFunc receives the snapshot and result of every tick
type FrameFunc func(state *GameState, result TickResult)

// Runner drives one Game from a single goroutine at a fixed tick rate.
// Commands are queued and applied between ticks, never during one.
type Runner struct {
	game     *Game
	commands chan Command
	interval time.Duration
	onFrame  FrameFunc
	logger   *logging.Logger

	ticks    atomic.Uint64
	lastTick atomic.Int64
}

// commandQueueSize bounds the number of pending control commands
const commandQueueSize = 64

// NewRunner creates a runner ticking tickRate times per second. onFrame may be nil.
func NewRunner(game *Game, tickRate int, onFrame FrameFunc) *Runner {
	if tickRate <= 0 {
		tickRate = 60
	}
	return &Runner{
		game:     game,
		commands: make(chan Command, commandQueueSize),
		interval: time.Second / time.Duration(tickRate),
		onFrame:  onFrame,
		logger:   game.Logger.With("component", "runner"),
	}
}

// Game returns the driven session
func (r *Runner) Game() *Game {
	return r.game
}

// Submit queues a command without blocking; false means the queue is full
func (r *Runner) Submit(cmd Command) bool {
	select {
	case r.commands <- cmd:
		return true
	default:
		return false
	}
}

// Ticks returns how many ticks have run
func (r *Runner) Ticks() uint64 {
	return r.ticks.Load()
}

// LastTick returns when the most recent tick finished; zero before the first
func (r *Runner) LastTick() time.Time {
	ns := r.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Interval returns the time between ticks
func (r *Runner) Interval() time.Duration {
	return r.interval
}

// Run ticks the game until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info(ctx, "runner started", "interval", r.interval.String(), "session", r.game.SessionID())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "runner stopped", "ticks", r.ticks.Load())
			return ctx.Err()
		case cmd := <-r.commands:
			if err := r.game.Apply(cmd); err != nil {
				r.logger.Warn(ctx, "command rejected", "command", string(cmd.Kind), "error", err.Error())
			}
		case <-ticker.C:
			r.step()
		}
	}
}

func (r *Runner) step() {
	result := r.game.Update()
	r.ticks.Add(1)
	r.lastTick.Store(time.Now().UnixNano())

	if r.onFrame != nil {
		r.onFrame(r.game.GetGameState(), result)
	}
}
