// pkg/engine/game_test.go
package engine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/event"
	"github.com/opd-ai/go-facebreak/pkg/physics"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
)

const frame = 1.0 / 60.0

// newTestGame returns a game on the default 800x600 field without the
// tracking warm-up, so the countdown alone gates play.
func newTestGame(t *testing.T, mutate func(*config.GameConfig)) *Game {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Rules.TrackingWarmup = 0
	if mutate != nil {
		mutate(cfg)
	}
	game, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame() error = %v", err)
	}
	return game
}

// startRunning starts the game and ticks through the countdown
func startRunning(t *testing.T, game *Game) {
	t.Helper()
	if !game.Start() {
		t.Fatal("Start() = false from Idle")
	}
	for i := 0; i < 100 && game.Status() == StatusCountdown; i++ {
		game.Tick(frame)
	}
	if game.Status() != StatusRunning {
		t.Fatalf("Status() = %v after countdown, expected running", game.Status())
	}
}

func TestNewGame(t *testing.T) {
	game := newTestGame(t, nil)

	if game.Status() != StatusIdle {
		t.Errorf("Status() = %v, expected idle", game.Status())
	}
	if game.Lives() != 3 {
		t.Errorf("Lives() = %d, expected 3", game.Lives())
	}
	if game.Score() != 0 {
		t.Errorf("Score() = %d, expected 0", game.Score())
	}
	if game.World.Board.Len() != 50 {
		t.Errorf("Board.Len() = %d, expected 50", game.World.Board.Len())
	}
	if game.World.DeathLine != 540 {
		t.Errorf("DeathLine = %v, expected 540", game.World.DeathLine)
	}
	if len(game.SessionID()) != 36 {
		t.Errorf("SessionID() = %q, expected a UUID", game.SessionID())
	}
}

func TestNewGame_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ball.Radius = 0
	if _, err := NewGame(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("NewGame() error = %v, expected ErrInvalidConfig", err)
	}

	cfg = config.DefaultConfig()
	cfg.Board.Palette = []string{"not-a-colour"}
	if _, err := NewGame(cfg); err == nil {
		t.Error("NewGame() with a bad palette should fail")
	}
}

func TestGame_Countdown(t *testing.T) {
	game := newTestGame(t, nil)

	if !game.Start() {
		t.Fatal("Start() = false")
	}
	if game.Status() != StatusCountdown || game.Countdown() != 3 {
		t.Fatalf("after Start: status %v countdown %d", game.Status(), game.Countdown())
	}

	ballBefore := game.World.Ball.Position
	for i := 1; i <= 2; i++ {
		res := game.Tick(frame)
		if res.Status != StatusCountdown || res.CountdownFinished {
			t.Fatalf("tick %d: %+v, expected countdown", i, res)
		}
	}
	if !game.World.Ball.Position.Equals(ballBefore) {
		t.Error("ball moved during the countdown")
	}

	res := game.Tick(frame)
	if res.Status != StatusRunning || !res.CountdownFinished {
		t.Errorf("third tick: %+v, expected running", res)
	}

	// serve velocity from the configuration
	expected := physics.Vector2D{X: 300, Y: -300}
	if !game.World.Ball.Velocity.Equals(expected) {
		t.Errorf("ball velocity = %v, expected %v", game.World.Ball.Velocity, expected)
	}
}

func TestGame_TrackingWarmup(t *testing.T) {
	game := newTestGame(t, func(c *config.GameConfig) {
		c.Rules.TrackingWarmup = 3
		c.Rules.CountdownTicks = 1
	})
	game.Start()

	game.Tick(frame)
	if game.Status() != StatusCountdown {
		t.Fatalf("Status() = %v without detections, expected countdown", game.Status())
	}

	track := tracking.Size{Width: 640, Height: 480}
	for i := 1; i <= 3; i++ {
		game.Mailbox.Post(tracking.PointDetection(track.Center(), track, tracking.RightMouthCorner, tracking.LeftMouthCorner))
		res := game.Tick(frame)
		if !res.Tracked {
			t.Fatalf("detection %d not applied", i)
		}
		if i < 3 && res.Status != StatusCountdown {
			t.Fatalf("detection %d: status %v, expected countdown", i, res.Status)
		}
		if i == 3 && !res.CountdownFinished {
			t.Fatalf("detection %d: countdown did not finish", i)
		}
	}
}

func TestGame_StartAndResetParkPaddle(t *testing.T) {
	game := newTestGame(t, nil)
	home := game.World.PaddleHome()
	away := physics.Vector2D{X: 90, Y: 300}

	game.World.Paddle.MoveTo(away)
	game.Start()
	if !game.World.Paddle.Position.Equals(home) {
		t.Errorf("paddle after Start = %v, expected home %v", game.World.Paddle.Position, home)
	}
	if !game.World.Ball.Position.Equals(game.World.Center()) || !game.World.Ball.Velocity.Equals(game.World.ServeVelocity()) {
		t.Errorf("ball after Start = %v moving %v, expected a serve from the center",
			game.World.Ball.Position, game.World.Ball.Velocity)
	}

	game.World.Paddle.MoveTo(away)
	game.Reset()
	if !game.World.Paddle.Position.Equals(home) {
		t.Errorf("paddle after Reset = %v, expected home %v", game.World.Paddle.Position, home)
	}
	if !game.World.Ball.Velocity.IsZero() {
		t.Errorf("ball velocity after Reset = %v, expected zero", game.World.Ball.Velocity)
	}
}

func TestGame_TrackingMovesPaddle(t *testing.T) {
	game := newTestGame(t, nil)
	track := tracking.Size{Width: 640, Height: 480}

	post := func(p physics.Vector2D) {
		game.Mailbox.Post(tracking.PointDetection(p, track, tracking.RightMouthCorner, tracking.LeftMouthCorner))
	}

	// ignored while idle
	post(physics.Vector2D{X: 160, Y: 360})
	game.Tick(frame)
	if !game.World.Paddle.Position.Equals(game.World.PaddleHome()) {
		t.Errorf("paddle moved while idle: %v", game.World.Paddle.Position)
	}

	game.Start()
	game.Tick(frame)
	expected := physics.Vector2D{X: 200, Y: 450}
	if !game.World.Paddle.Position.ApproxEquals(expected, 1e-9) {
		t.Errorf("paddle = %v, expected %v", game.World.Paddle.Position, expected)
	}

	game.SetMirror(true)
	post(physics.Vector2D{X: 160, Y: 360})
	game.Tick(frame)
	expected = physics.Vector2D{X: 600, Y: 450}
	if !game.World.Paddle.Position.ApproxEquals(expected, 1e-9) {
		t.Errorf("mirrored paddle = %v, expected %v", game.World.Paddle.Position, expected)
	}

	// no new detection keeps the last position
	game.Tick(frame)
	if !game.World.Paddle.Position.ApproxEquals(expected, 1e-9) {
		t.Errorf("paddle moved without a detection: %v", game.World.Paddle.Position)
	}

	// malformed detection is ignored
	game.Mailbox.Post(tracking.Detection{Keypoints: []tracking.Keypoint{{X: 1, Y: 1}}, FrameWidth: 640, FrameHeight: 480})
	if res := game.Tick(frame); res.Tracked {
		t.Error("malformed detection reported as tracked")
	}
	game.Mailbox.Post(tracking.PointDetection(physics.Vector2D{X: 1, Y: 1}, tracking.Size{}, tracking.RightMouthCorner, tracking.LeftMouthCorner))
	if res := game.Tick(frame); res.Tracked {
		t.Error("detection with an empty frame reported as tracked")
	}
	if !game.World.Paddle.Position.ApproxEquals(expected, 1e-9) {
		t.Errorf("paddle moved on a bad detection: %v", game.World.Paddle.Position)
	}
}

func TestGame_TrackingLockYAndClamp(t *testing.T) {
	game := newTestGame(t, func(c *config.GameConfig) {
		c.Paddle.LockY = true
		c.Paddle.Clamp = true
	})
	game.Start()

	track := tracking.Size{Width: 640, Height: 480}
	game.Mailbox.Post(tracking.PointDetection(physics.Vector2D{X: 0, Y: 0}, track, tracking.RightMouthCorner, tracking.LeftMouthCorner))
	game.Tick(frame)

	expected := physics.Vector2D{X: 60, Y: 550}
	if !game.World.Paddle.Position.ApproxEquals(expected, 1e-9) {
		t.Errorf("paddle = %v, expected %v", game.World.Paddle.Position, expected)
	}
}

func TestGame_MisuseIsNoOp(t *testing.T) {
	game := newTestGame(t, nil)

	if game.Pause() {
		t.Error("Pause() from idle returned true")
	}
	if game.Resume() {
		t.Error("Resume() from idle returned true")
	}
	if game.TogglePause() {
		t.Error("TogglePause() from idle returned true")
	}
	if game.Reset() {
		t.Error("Reset() from idle returned true")
	}
	if game.Status() != StatusIdle {
		t.Fatalf("Status() = %v, expected idle", game.Status())
	}

	startRunning(t, game)
	if game.Start() {
		t.Error("Start() while running returned true")
	}
	if game.Resume() {
		t.Error("Resume() while running returned true")
	}
	if game.Status() != StatusRunning {
		t.Errorf("Status() = %v, expected running", game.Status())
	}
}

func TestGame_PauseResume(t *testing.T) {
	game := newTestGame(t, nil)
	startRunning(t, game)

	if !game.Pause() {
		t.Fatal("Pause() = false while running")
	}
	before := game.World.Ball.Position
	for i := 0; i < 10; i++ {
		game.Tick(frame)
	}
	if !game.World.Ball.Position.Equals(before) {
		t.Error("ball moved while paused")
	}

	if !game.TogglePause() || game.Status() != StatusRunning {
		t.Fatalf("TogglePause() did not resume, status %v", game.Status())
	}
	if !game.TogglePause() || game.Status() != StatusPaused {
		t.Fatalf("TogglePause() did not pause, status %v", game.Status())
	}
	if !game.Resume() {
		t.Fatal("Resume() = false while paused")
	}
	game.Tick(frame)
	if game.World.Ball.Position.Equals(before) {
		t.Error("ball did not move after resume")
	}
}

func TestGame_DeltaTimeClamp(t *testing.T) {
	game := newTestGame(t, nil)
	startRunning(t, game)

	start := game.World.Ball.Position
	game.Tick(10) // clamped to MaxDeltaTime 0.05
	expected := start.Add(physics.Vector2D{X: 15, Y: -15})
	if !game.World.Ball.Position.ApproxEquals(expected, 1e-9) {
		t.Errorf("ball = %v after a long frame, expected %v", game.World.Ball.Position, expected)
	}

	for _, dt := range []float64{-1, 0, math.NaN()} {
		before := game.World.Ball.Position
		game.Tick(dt)
		if !game.World.Ball.Position.Equals(before) {
			t.Errorf("Tick(%v) moved the ball", dt)
		}
	}
}

func TestGame_ResetFromEveryState(t *testing.T) {
	states := []struct {
		name  string
		setup func(*testing.T, *Game)
	}{
		{"countdown", func(t *testing.T, g *Game) { g.Start() }},
		{"running", func(t *testing.T, g *Game) { startRunning(t, g) }},
		{"paused", func(t *testing.T, g *Game) { startRunning(t, g); g.Pause() }},
		{"over", func(t *testing.T, g *Game) { startRunning(t, g); loseAllLives(t, g) }},
	}

	for _, tt := range states {
		t.Run(tt.name, func(t *testing.T) {
			game := newTestGame(t, nil)
			tt.setup(t, game)
			game.World.Board.At(7).Destroy()

			if !game.Reset() {
				t.Fatal("Reset() = false")
			}
			if game.Status() != StatusIdle || game.Outcome() != OutcomeNone {
				t.Errorf("after Reset: status %v outcome %v", game.Status(), game.Outcome())
			}
			if game.Score() != 0 || game.Lives() != 3 {
				t.Errorf("after Reset: score %d lives %d", game.Score(), game.Lives())
			}
			if game.World.Board.Remaining() != 50 {
				t.Errorf("Remaining() = %d after Reset, expected 50", game.World.Board.Remaining())
			}
			if !game.World.Ball.Position.Equals(game.World.Center()) || !game.World.Ball.Velocity.IsZero() {
				t.Errorf("ball not home: %v %v", game.World.Ball.Position, game.World.Ball.Velocity)
			}
			if !game.Start() {
				t.Error("Start() after Reset returned false")
			}
		})
	}
}

func TestGame_Resize(t *testing.T) {
	game := newTestGame(t, nil)
	resized := 0
	game.EventBus.Subscribe(event.FieldResized, func(event.Event) { resized++ })

	game.World.Board.At(3).Destroy()

	if err := game.Resize(1024, 768); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if err := game.Resize(1024, 768); err != nil {
		t.Fatalf("repeated Resize() error = %v", err)
	}

	if resized != 1 {
		t.Errorf("FieldResized published %d times, expected 1", resized)
	}
	if math.Abs(game.World.DeathLine-691.2) > 1e-9 {
		t.Errorf("DeathLine = %v, expected 691.2", game.World.DeathLine)
	}
	if !game.World.Board.At(3).Destroyed {
		t.Error("Resize revived a destroyed brick")
	}
	if game.World.Board.Layout().Height != 192 {
		t.Errorf("board height = %v, expected 192", game.World.Board.Layout().Height)
	}

	invalid := [][2]float64{{0, 600}, {800, -1}, {math.NaN(), 600}, {math.Inf(1), 600}, {100, 600}}
	for _, size := range invalid {
		if err := game.Resize(size[0], size[1]); !errors.Is(err, entity.ErrInvalidArgument) {
			t.Errorf("Resize(%v, %v) error = %v, expected ErrInvalidArgument", size[0], size[1], err)
		}
	}
	if game.World.FieldWidth != 1024 || game.World.FieldHeight != 768 {
		t.Errorf("rejected resize changed the field to %vx%v", game.World.FieldWidth, game.World.FieldHeight)
	}
}

func TestGame_ToggleMirror(t *testing.T) {
	game := newTestGame(t, func(c *config.GameConfig) { c.Tracking.Mirror = true })
	if !game.Mirror() {
		t.Fatal("Mirror() = false, expected the configured value")
	}
	if game.ToggleMirror() {
		t.Error("ToggleMirror() = true, expected false")
	}
	if game.Mirror() {
		t.Error("Mirror() = true after toggle")
	}
}

func TestGame_Events(t *testing.T) {
	game := newTestGame(t, nil)

	counts := make(map[event.Type]int)
	for _, typ := range []event.Type{
		event.GameStarted, event.GamePaused, event.GameResumed,
		event.GameReset, event.CountdownFinished,
	} {
		typ := typ
		game.EventBus.Subscribe(typ, func(e event.Event) {
			// handlers may read the game while events are delivered
			_ = game.Score()
			counts[e.GetType()]++
		})
	}

	startRunning(t, game)
	game.Pause()
	game.Pause()
	game.Resume()
	game.Reset()

	expected := map[event.Type]int{
		event.GameStarted:       1,
		event.CountdownFinished: 1,
		event.GamePaused:        1,
		event.GameResumed:       1,
		event.GameReset:         1,
	}
	for typ, n := range expected {
		if counts[typ] != n {
			t.Errorf("%s published %d times, expected %d", typ, counts[typ], n)
		}
	}
}

func TestGame_Update(t *testing.T) {
	game := newTestGame(t, nil)
	res := game.Update()
	if res.Status != StatusIdle {
		t.Errorf("Update() status = %v, expected idle", res.Status)
	}
	if game.CurrentTick() != 1 {
		t.Errorf("CurrentTick() = %d, expected 1", game.CurrentTick())
	}
}

func TestGame_Snapshot(t *testing.T) {
	game := newTestGame(t, nil)
	game.World.Board.At(0).Destroy()

	state := game.GetGameState()
	if state.Status != "idle" || state.Outcome != "none" {
		t.Errorf("snapshot status %q outcome %q", state.Status, state.Outcome)
	}
	if len(state.Bricks) != 50 || state.Remaining() != 49 {
		t.Errorf("snapshot has %d bricks, %d remaining", len(state.Bricks), state.Remaining())
	}
	if c := state.Bricks[0].Color; len(c) != 7 || c[0] != '#' {
		t.Errorf("brick colour %q is not #rrggbb", state.Bricks[0].Color)
	}
	if state.Field.DeathLine != 540 || state.Ball.Radius != 25 || state.Paddle.Width != 120 {
		t.Errorf("unexpected geometry in snapshot: %+v %+v %+v", state.Field, state.Ball, state.Paddle)
	}

	// the snapshot is detached from the live session
	state.Bricks[1].Destroyed = true
	if game.World.Board.At(1).Destroyed {
		t.Error("modifying the snapshot changed the board")
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded GameState
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.Bricks[0].Destroyed != true || decoded.Lives != 3 {
		t.Errorf("decoded snapshot lost data: %+v", decoded.Bricks[0])
	}
}

func TestStatusAndOutcomeStrings(t *testing.T) {
	tests := []struct {
		got, expected string
	}{
		{StatusIdle.String(), "idle"},
		{StatusCountdown.String(), "countdown"},
		{StatusRunning.String(), "running"},
		{StatusPaused.String(), "paused"},
		{StatusOver.String(), "over"},
		{Status(42).String(), "unknown"},
		{OutcomeNone.String(), "none"},
		{OutcomeWon.String(), "won"},
		{OutcomeLost.String(), "lost"},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("String() = %q, expected %q", tt.got, tt.expected)
		}
	}
}
