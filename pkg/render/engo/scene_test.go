// pkg/render/engo/scene_test.go
package engo

import (
	"errors"
	"testing"
	"time"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/render"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
)

// recordingControls captures what the input system sends
type recordingControls struct {
	commands   []engine.CommandKind
	detections []tracking.Detection
	err        error
}

func (c *recordingControls) Command(cmd engine.Command) error {
	c.commands = append(c.commands, cmd.Kind)
	return c.err
}

func (c *recordingControls) Track(d tracking.Detection) error {
	c.detections = append(c.detections, d)
	return c.err
}

func TestNewGameScene(t *testing.T) {
	scene := NewGameScene(&render.StateBuffer{}, &recordingControls{}, SceneOptions{Logger: logging.Discard()})

	if scene.Type() != "FaceBreak" {
		t.Errorf("Type() = %q", scene.Type())
	}
	if scene.assets == nil || scene.camera == nil {
		t.Error("scene assets or camera not created")
	}
}

func TestFrameSystem(t *testing.T) {
	var buf render.StateBuffer
	r, _ := newTestRenderer()
	var seen []uint64
	fs := NewFrameSystem(&buf, r, func(s *engine.GameState) { seen = append(seen, s.Tick) })

	fs.Update(0.016)
	if fs.Drawn() != 0 {
		t.Fatal("drew without a snapshot")
	}

	state := testState()
	state.Tick = 7
	buf.Set(state)
	fs.Update(0.016)
	fs.Update(0.016)

	if fs.Drawn() != 1 || r.Frames() != 1 {
		t.Errorf("Drawn() = %d Frames() = %d, a snapshot should be drawn once", fs.Drawn(), r.Frames())
	}
	if len(seen) != 1 || seen[0] != 7 {
		t.Errorf("OnFrame saw %v", seen)
	}
}

func TestInputSystem_PressKey(t *testing.T) {
	controls := &recordingControls{}
	is := NewInputSystem(controls, NewCamera(), &render.StateBuffer{}, logging.Discard())

	is.PressKey(' ', nil)
	is.PressKey(' ', &engine.GameState{Status: "running"})
	is.PressKey('m', nil)
	is.PressKey('x', nil)

	expected := []engine.CommandKind{engine.CommandStart, engine.CommandToggle, engine.CommandFlip}
	if len(controls.commands) != len(expected) {
		t.Fatalf("commands = %v, expected %v", controls.commands, expected)
	}
	for i := range expected {
		if controls.commands[i] != expected[i] {
			t.Errorf("command %d = %q, expected %q", i, controls.commands[i], expected[i])
		}
	}

	controls.err = errors.New("offline")
	is.PressKey('r', nil) // logged, not fatal
}

func TestInputSystem_MovePointer(t *testing.T) {
	controls := &recordingControls{}
	camera := NewCamera()
	camera.SetWindow(1600, 1200)
	is := NewInputSystem(controls, camera, &render.StateBuffer{}, logging.Discard())

	now := time.Unix(50, 0)
	is.MovePointer(engo.Point{X: 800, Y: 1000}, testState(), now)
	is.MovePointer(engo.Point{X: 820, Y: 1000}, testState(), now.Add(time.Millisecond))

	if len(controls.detections) != 1 {
		t.Fatalf("detections = %d, expected 1 (second one throttled)", len(controls.detections))
	}
	center, err := tracking.MouthCenter(controls.detections[0], tracking.RightMouthCorner, tracking.LeftMouthCorner)
	if err != nil {
		t.Fatalf("MouthCenter() error = %v", err)
	}
	if center.X != 400 || center.Y != 500 {
		t.Errorf("pointer landed at %v, expected the field point (400, 500)", center)
	}
}

func TestBanner(t *testing.T) {
	tests := []struct {
		status   string
		outcome  string
		expected string
	}{
		{"idle", "none", "press space to start"},
		{"countdown", "none", "2"},
		{"running", "none", ""},
		{"paused", "none", "paused, space to resume"},
		{"over", "won", "you won! space to play again"},
		{"over", "lost", "game over, space to play again"},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.outcome, func(t *testing.T) {
			state := &engine.GameState{Status: tt.status, Outcome: tt.outcome, Countdown: 2}
			if got := Banner(state); got != tt.expected {
				t.Errorf("Banner() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestHUD_WithoutFont(t *testing.T) {
	sys := newFakeSystem()
	hud := NewHUD(sys, nil)
	state := testState()
	state.Status = "idle"

	hud.Update(state, 800, 600)

	if len(sys.render) != 0 {
		t.Error("HUD without a font should not add text sprites")
	}
	if hud.BannerText() != "press space to start" {
		t.Errorf("BannerText() = %q", hud.BannerText())
	}
	if hud.StatusText() != "score 0/2  lives 3  idle" {
		t.Errorf("StatusText() = %q", hud.StatusText())
	}
}
