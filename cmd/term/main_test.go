// cmd/term/main_test.go
package main

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/physics"
	"github.com/opd-ai/go-facebreak/pkg/render"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
)

// recordingControls captures what the terminal sends
type recordingControls struct {
	commands   []engine.CommandKind
	detections []tracking.Detection
}

func (c *recordingControls) Command(cmd engine.Command) error {
	c.commands = append(c.commands, cmd.Kind)
	return nil
}

func (c *recordingControls) Track(d tracking.Detection) error {
	c.detections = append(c.detections, d)
	return nil
}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen.Init() error = %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(40, 21)
	return screen
}

// newRecordedTerminal wires a terminal to a fixed snapshot and recording controls
func newRecordedTerminal(t *testing.T, status string) (*terminal, *recordingControls) {
	t.Helper()
	controls := &recordingControls{}
	buf := &render.StateBuffer{}
	buf.Set(&engine.GameState{
		Status: status,
		Lives:  3,
		Field:  engine.FieldState{Width: 800, Height: 600, DeathLine: 540},
	})
	session := &render.Session{Buffer: buf, Controls: controls}
	return newTerminal(newSimScreen(t), session, logging.Discard()), controls
}

func TestTerminal_Keys(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		key      rune
		expected engine.CommandKind
	}{
		{"start", "idle", ' ', engine.CommandStart},
		{"pause", "running", ' ', engine.CommandToggle},
		{"restart", "over", ' ', engine.CommandReset},
		{"mirror", "running", 'm', engine.CommandFlip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, controls := newRecordedTerminal(t, tt.status)
			if !term.handleEvent(tcell.NewEventKey(tcell.KeyRune, tt.key, tcell.ModNone)) {
				t.Fatal("key should not quit")
			}
			if len(controls.commands) != 1 || controls.commands[0] != tt.expected {
				t.Errorf("commands = %v, expected [%s]", controls.commands, tt.expected)
			}
		})
	}
}

func TestTerminal_Quit(t *testing.T) {
	term, controls := newRecordedTerminal(t, "running")

	if term.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("q should quit")
	}
	if term.handleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("escape should quit")
	}
	if len(controls.commands) != 0 {
		t.Errorf("quitting sent %v", controls.commands)
	}
}

func TestTerminal_MouseTracks(t *testing.T) {
	term, controls := newRecordedTerminal(t, "running")
	term.draw()

	// cell (20, 11) is the field center on a 40x21 screen
	term.handleEvent(tcell.NewEventMouse(20, 11, tcell.ButtonNone, tcell.ModNone))

	if len(controls.detections) != 1 {
		t.Fatalf("detections = %d, expected 1", len(controls.detections))
	}
	center, err := tracking.MouthCenter(controls.detections[0], tracking.RightMouthCorner, tracking.LeftMouthCorner)
	if err != nil {
		t.Fatalf("MouthCenter() error = %v", err)
	}
	if !center.ApproxEquals(physics.Vector2D{X: 410, Y: 315}, 1e-9) {
		t.Errorf("pointer at %v, expected the cell center (410, 315)", center)
	}
}

func TestTerminal_DrawOncePerSnapshot(t *testing.T) {
	term, _ := newRecordedTerminal(t, "idle")
	var frames int
	term.onFrame = func(*engine.GameState) { frames++ }

	term.draw()
	term.draw()
	if frames != 1 {
		t.Errorf("onFrame ran %d times, expected once per snapshot", frames)
	}

	term.handleEvent(tcell.NewEventResize(40, 21))
	term.draw()
	if frames != 2 {
		t.Error("a resize should redraw the current snapshot")
	}
}

func TestTerminal_LocalSession(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules.TrackingWarmup = 0
	session, err := render.StartLocal(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("StartLocal() error = %v", err)
	}
	defer session.Close()
	term := newTerminal(newSimScreen(t), session, logging.Discard())

	term.handleEvent(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone))

	deadline := time.Now().Add(3 * time.Second)
	for {
		if s, _ := session.Buffer.Latest(); s.Status != "idle" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("space did not start the local game")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
