// pkg/render/controls.go
package render

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/network"
	"github.com/opd-ai/go-facebreak/pkg/physics"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
)

// ErrCommandQueueFull is returned when a local runner cannot take more commands
var ErrCommandQueueFull = errors.New("command queue full")

// Controls is how a front end drives a session, whether it runs in this
// process or on a server.
type Controls interface {
	Command(cmd engine.Command) error
	Track(d tracking.Detection) error
}

// LocalControls drives a runner in the same process
type LocalControls struct {
	Runner *engine.Runner
}

// Command implements Controls
func (c LocalControls) Command(cmd engine.Command) error {
	if !c.Runner.Submit(cmd) {
		return ErrCommandQueueFull
	}
	return nil
}

// Track implements Controls
func (c LocalControls) Track(d tracking.Detection) error {
	c.Runner.Game().Mailbox.Post(d)
	return nil
}

// RemoteControls drives a session over the network. Either connection may
// be nil, which makes the matching method a no-op.
type RemoteControls struct {
	Tracker    *network.Tracker
	Controller *network.Controller
}

// Command implements Controls
func (c RemoteControls) Command(cmd engine.Command) error {
	if c.Controller == nil {
		return nil
	}
	_, err := c.Controller.Send(cmd)
	return err
}

// Track implements Controls
func (c RemoteControls) Track(d tracking.Detection) error {
	if c.Tracker == nil {
		return nil
	}
	return c.Tracker.Send(d)
}

// CommandForKey maps the shared key bindings to a command for the current
// status. Space starts, pauses and resumes, and restarts a finished game.
func CommandForKey(key rune, status string) (engine.Command, bool) {
	switch key {
	case ' ':
		switch status {
		case engine.StatusIdle.String():
			return engine.Command{Kind: engine.CommandStart}, true
		case engine.StatusOver.String():
			return engine.Command{Kind: engine.CommandReset}, true
		default:
			return engine.Command{Kind: engine.CommandToggle}, true
		}
	case 'r', 'R':
		return engine.Command{Kind: engine.CommandReset}, true
	case 'm', 'M':
		return engine.Command{Kind: engine.CommandFlip}, true
	case 'p', 'P':
		return engine.Command{Kind: engine.CommandToggle}, true
	}
	return engine.Command{}, false
}

// StateBuffer holds the most recent snapshot for a render loop. Writers
// are the runner or a network watcher; the reader is the frame loop.
type StateBuffer struct {
	latest atomic.Pointer[engine.GameState]
	seq    atomic.Uint64
}

// Set stores state as the latest snapshot
func (b *StateBuffer) Set(state *engine.GameState) {
	if state == nil {
		return
	}
	b.latest.Store(state)
	b.seq.Add(1)
}

// Latest returns the newest snapshot and its sequence number; nil before the first
func (b *StateBuffer) Latest() (*engine.GameState, uint64) {
	return b.latest.Load(), b.seq.Load()
}

// PointerTracker turns a pointer on the play field into detections, so
// the paddle can be driven without a camera.
type PointerTracker struct {
	Interval time.Duration

	last    time.Time
	lastPos physics.Vector2D
}

// DefaultPointerInterval limits pointer detections to roughly 30 per second
const DefaultPointerInterval = 33 * time.Millisecond

// NewPointerTracker creates a tracker sending at most one detection per interval
func NewPointerTracker(interval time.Duration) *PointerTracker {
	if interval <= 0 {
		interval = DefaultPointerInterval
	}
	return &PointerTracker{Interval: interval}
}

// Detection builds a detection for a pointer at p in field coordinates.
// The field doubles as the tracking frame, and a mirrored session gets a
// pre-flipped point so the paddle stays under the pointer. ok is false
// while throttled or when the pointer has not moved.
func (t *PointerTracker) Detection(p physics.Vector2D, state *engine.GameState, now time.Time) (tracking.Detection, bool) {
	if state == nil || now.Sub(t.last) < t.Interval {
		return tracking.Detection{}, false
	}
	if !t.last.IsZero() && p.Equals(t.lastPos) {
		return tracking.Detection{}, false
	}
	t.last, t.lastPos = now, p

	frame := tracking.Size{Width: state.Field.Width, Height: state.Field.Height}
	if state.Mirror {
		p.X = frame.Width - p.X
	}
	return tracking.PointDetection(p, frame, tracking.RightMouthCorner, tracking.LeftMouthCorner), true
}
