// pkg/render/engo/input.go
package engo

import (
	"context"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/render"
)

// StateSource hands out the latest snapshot and its sequence number
type StateSource interface {
	Latest() (*engine.GameState, uint64)
}

type keyBinding struct {
	button string
	key    rune
	keys   []engo.Key
}

var keyBindings = []keyBinding{
	{"action", ' ', []engo.Key{engo.KeySpace}},
	{"reset", 'r', []engo.Key{engo.KeyR}},
	{"mirror", 'm', []engo.Key{engo.KeyM}},
	{"pause", 'p', []engo.Key{engo.KeyP, engo.KeyEscape}},
}

// SetupInputBindings registers the game's buttons with engo
func SetupInputBindings() {
	for _, b := range keyBindings {
		engo.Input.RegisterButton(b.button, b.keys...)
	}
}

// InputSystem turns key presses into session commands and, when enabled,
// the mouse pointer into tracking detections.
type InputSystem struct {
	controls render.Controls
	camera   *Camera
	source   StateSource
	pointer  *render.PointerTracker
	logger   *logging.Logger

	// Mouse makes the pointer drive the paddle
	Mouse bool
}

// NewInputSystem creates an input system sending to controls
func NewInputSystem(controls render.Controls, camera *Camera, source StateSource, logger *logging.Logger) *InputSystem {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &InputSystem{
		controls: controls,
		camera:   camera,
		source:   source,
		pointer:  render.NewPointerTracker(render.DefaultPointerInterval),
		logger:   logger.With("component", "input"),
	}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(ecs.BasicEntity) {}

// Update polls the bound buttons and the mouse
func (is *InputSystem) Update(float32) {
	state, _ := is.source.Latest()
	for _, b := range keyBindings {
		if engo.Input.Button(b.button).JustPressed() {
			is.PressKey(b.key, state)
		}
	}
	if is.Mouse {
		is.MovePointer(engo.Point{X: engo.Input.Mouse.X, Y: engo.Input.Mouse.Y}, state, time.Now())
	}
}

// PressKey sends the command bound to key, if any
func (is *InputSystem) PressKey(key rune, state *engine.GameState) {
	status := engine.StatusIdle.String()
	if state != nil {
		status = state.Status
	}
	cmd, ok := render.CommandForKey(key, status)
	if !ok {
		return
	}
	if err := is.controls.Command(cmd); err != nil {
		is.logger.Warn(context.Background(), "command failed", "command", string(cmd.Kind), "error", err.Error())
	}
}

// MovePointer sends a detection for a pointer at canvas position p
func (is *InputSystem) MovePointer(p engo.Point, state *engine.GameState, now time.Time) {
	d, ok := is.pointer.Detection(is.camera.ScreenToWorld(p), state, now)
	if !ok {
		return
	}
	if err := is.controls.Track(d); err != nil {
		is.logger.Debug(context.Background(), "pointer detection dropped", "error", err.Error())
	}
}
