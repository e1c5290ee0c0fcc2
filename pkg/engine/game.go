// pkg/engine/game.go
package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/event"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
)

// Game owns one play session: the world, the lives and score counters and
// the Idle/Countdown/Running/Paused/Over state machine.
//
// Every exported method takes the session lock, so a Game may be shared
// between a driving loop and readers. Events are published after the lock
// is released and handlers may call back into the Game.
type Game struct {
	Config   *config.GameConfig
	World    *World
	EventBus *event.Bus
	Mailbox  *tracking.Mailbox
	Mapper   tracking.Mapper
	Logger   *logging.Logger

	mu            sync.RWMutex
	ctx           context.Context
	status        Status
	outcome       Outcome
	score         int
	lives         int
	countdown     int
	detections    int
	currentTick   uint64
	lastUpdate    time.Time
	lastDetection time.Time
}

// NewGame creates an idle session for the given configuration
func NewGame(cfg *config.GameConfig) (*Game, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	world, err := NewWorld(cfg)
	if err != nil {
		return nil, err
	}

	return &Game{
		Config:   cfg,
		World:    world,
		EventBus: event.NewEventBus(),
		Mailbox:  tracking.NewMailbox(),
		Mapper:   tracking.Mapper{Mirror: cfg.Tracking.Mirror},
		Logger:   logging.Discard(),
		ctx:      logging.WithCorrelationID(context.Background(), ""),
		lives:    cfg.Rules.Lives,
	}, nil
}

// SetLogger replaces the session logger
func (g *Game) SetLogger(l *logging.Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Logger = l.With("component", "engine")
}

// SessionID returns the correlation id attached to this session's logs
func (g *Game) SessionID() string {
	return logging.GetCorrelationID(g.ctx)
}

// Start serves the ball and enters the countdown. Only valid from Idle.
func (g *Game) Start() bool {
	g.mu.Lock()
	if g.status != StatusIdle {
		g.mu.Unlock()
		return false
	}

	g.World.Serve()
	g.World.ParkPaddle()
	g.countdown = g.Config.Rules.CountdownTicks
	g.detections = 0
	g.outcome = OutcomeNone
	g.status = StatusCountdown
	g.lastUpdate = time.Now()
	evt := event.NewStateEvent(event.GameStarted, g, g.score, g.lives)
	g.mu.Unlock()

	g.Logger.Info(g.ctx, "session started", "lives", evt.Lives, "countdown", g.Config.Rules.CountdownTicks)
	g.EventBus.Publish(evt)
	return true
}

// Pause freezes a running session
func (g *Game) Pause() bool {
	return g.transition(StatusRunning, StatusPaused, event.GamePaused)
}

// Resume continues a paused session
func (g *Game) Resume() bool {
	return g.transition(StatusPaused, StatusRunning, event.GameResumed)
}

// TogglePause pauses a running session or resumes a paused one
func (g *Game) TogglePause() bool {
	if g.Pause() {
		return true
	}
	return g.Resume()
}

func (g *Game) transition(from, to Status, t event.Type) bool {
	g.mu.Lock()
	if g.status != from {
		g.mu.Unlock()
		return false
	}
	g.status = to
	g.lastUpdate = time.Now()
	evt := event.NewStateEvent(t, g, g.score, g.lives)
	g.mu.Unlock()

	g.Logger.Debug(g.ctx, "state changed", "from", from.String(), "to", to.String())
	g.EventBus.Publish(evt)
	return true
}

// Reset abandons the session from any non-idle state: score and lives go
// back to their initial values, every brick is revived and the ball and
// paddle return home.
func (g *Game) Reset() bool {
	g.mu.Lock()
	if g.status == StatusIdle {
		g.mu.Unlock()
		return false
	}

	g.score = 0
	g.lives = g.Config.Rules.Lives
	g.countdown = 0
	g.detections = 0
	g.outcome = OutcomeNone
	g.status = StatusIdle
	g.World.Board.Reset()
	g.World.Home()
	evt := event.NewStateEvent(event.GameReset, g, g.score, g.lives)
	g.mu.Unlock()

	g.Logger.Info(g.ctx, "session reset")
	g.EventBus.Publish(evt)
	return true
}

// Resize adapts the session to a new field size. Invalid sizes return an
// error and leave the session untouched; repeating a size is a no-op.
func (g *Game) Resize(width, height float64) error {
	g.mu.Lock()
	changed, err := g.World.Resize(width, height)
	g.mu.Unlock()

	if err != nil {
		g.Logger.Warn(g.ctx, "resize rejected", "width", width, "height", height, "error", err.Error())
		return err
	}
	if changed {
		g.Logger.Debug(g.ctx, "field resized", "width", width, "height", height)
		g.EventBus.Publish(event.NewResizeEvent(g, width, height))
	}
	return nil
}

// SetMirror turns horizontal mirroring of tracking input on or off
func (g *Game) SetMirror(mirror bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Mapper.Mirror = mirror
}

// ToggleMirror flips mirroring and returns the new setting
func (g *Game) ToggleMirror() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Mapper.Mirror = !g.Mapper.Mirror
	return g.Mapper.Mirror
}

// Update advances the game by the wall-clock time since the previous update
func (g *Game) Update() TickResult {
	return g.Tick(g.calculateDeltaTime())
}

// calculateDeltaTime returns the seconds since the last update. The first
// call returns zero.
func (g *Game) calculateDeltaTime() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if g.lastUpdate.IsZero() {
		g.lastUpdate = now
		return 0
	}
	deltaTime := now.Sub(g.lastUpdate).Seconds()
	g.lastUpdate = now
	return deltaTime
}

// Tick advances the session by dt seconds. Pending tracking input is
// applied first, then the countdown or the physics step runs depending on
// the current state.
func (g *Game) Tick(dt float64) TickResult {
	g.mu.Lock()
	var events []event.Event
	var res TickResult

	g.currentTick++
	if g.status != StatusIdle {
		res.Tracked = g.applyTracking()
	}

	switch g.status {
	case StatusCountdown:
		events = g.tickCountdown(&res, events)
	case StatusRunning:
		events = g.tickRunning(dt, &res, events)
	}
	res.Status = g.status
	g.mu.Unlock()

	for _, e := range events {
		g.EventBus.Publish(e)
	}
	return res
}

// applyTracking moves the paddle to the latest detection, if one arrived.
// Unusable detections are logged and the paddle keeps its position.
func (g *Game) applyTracking() bool {
	d, ok := g.Mailbox.Take()
	if !ok {
		return false
	}

	mouth, err := tracking.MouthCenter(d, g.Config.Tracking.RightKeypoint, g.Config.Tracking.LeftKeypoint)
	if err != nil {
		g.Logger.Debug(g.ctx, "detection ignored", "error", err.Error())
		return false
	}

	field := tracking.Size{Width: g.World.FieldWidth, Height: g.World.FieldHeight}
	target, err := g.Mapper.Map(mouth, d.Frame(), field)
	if err != nil {
		g.Logger.Debug(g.ctx, "detection ignored", "error", err.Error())
		return false
	}

	if g.Config.Paddle.LockY {
		target.Y = g.World.PaddleHome().Y
	}
	g.World.Paddle.MoveTo(target)
	if g.Config.Paddle.Clamp {
		g.World.Paddle.ClampX(g.World.FieldWidth)
	}

	g.detections++
	g.lastDetection = time.Now()
	return true
}

// tickCountdown finishes the countdown once it has run out and enough
// detections have arrived for the paddle to be under control.
func (g *Game) tickCountdown(res *TickResult, events []event.Event) []event.Event {
	if g.countdown > 0 {
		g.countdown--
	}
	if g.countdown > 0 || g.detections < g.Config.Rules.TrackingWarmup {
		return events
	}

	g.status = StatusRunning
	res.CountdownFinished = true
	return append(events, event.NewStateEvent(event.CountdownFinished, g, g.score, g.lives))
}

func (g *Game) tickRunning(dt float64, res *TickResult, events []event.Event) []event.Event {
	dt = g.clampDeltaTime(dt)
	step := g.World.Step(dt)

	res.Destroyed = step.Destroyed
	res.LifeLost = step.LifeLost
	res.PaddleHit = step.PaddleHit

	for _, b := range step.Bricks {
		g.score++
		events = append(events, event.NewBrickEvent(g, uint64(b.ID), b.Column, b.Row, g.score))
	}

	if step.LifeLost {
		g.lives--
		events = append(events, event.NewLifeEvent(g, g.lives))
		g.Logger.Info(g.ctx, "life lost", "remaining", g.lives, "score", g.score)
		if g.lives == 0 {
			return g.endGame(OutcomeLost, res, events)
		}
		g.World.Serve()
	}

	if g.score >= g.World.Board.Len() {
		return g.endGame(OutcomeWon, res, events)
	}
	return events
}

// clampDeltaTime caps dt at MaxDeltaTime; negative and NaN steps become zero
func (g *Game) clampDeltaTime(dt float64) float64 {
	if !(dt > 0) {
		return 0
	}
	return math.Min(dt, g.Config.Rules.MaxDeltaTime)
}

// endGame must be called with the lock held
func (g *Game) endGame(outcome Outcome, res *TickResult, events []event.Event) []event.Event {
	g.status = StatusOver
	g.outcome = outcome
	res.Outcome = outcome
	g.World.Ball.Velocity = g.World.Ball.Velocity.Scale(0)

	g.Logger.Info(g.ctx, "session over", "outcome", outcome.String(), "score", g.score)
	return append(events, event.NewEndEvent(g, outcome == OutcomeWon, g.score))
}

// Observable counters

// Score returns the number of bricks destroyed this session
func (g *Game) Score() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.score
}

// Lives returns the remaining lives
func (g *Game) Lives() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lives
}

// Status returns the current state
func (g *Game) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Outcome returns how the session ended, or OutcomeNone while it runs
func (g *Game) Outcome() Outcome {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.outcome
}

// Countdown returns the ticks left before play begins
func (g *Game) Countdown() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.countdown
}

// CurrentTick returns the number of ticks processed
func (g *Game) CurrentTick() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentTick
}

// LastDetection returns when tracking input last moved the paddle
func (g *Game) LastDetection() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastDetection
}

// Mirror reports whether tracking input is mirrored
func (g *Game) Mirror() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Mapper.Mirror
}
