// pkg/render/renderer.go
package render

import (
	"context"
	"image/color"
	"sync/atomic"

	"github.com/opd-ai/go-facebreak/pkg/board"
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/logging"
)

// FieldSizer is implemented by renderers that scale the play field to
// their own surface.
type FieldSizer interface {
	SetField(width, height float64)
}

// StatusRenderer is implemented by renderers that show score, lives and
// session status.
type StatusRenderer interface {
	RenderStatus(state *engine.GameState)
}

// Draw renders one frame of a snapshot: live bricks, then the paddle, then
// the ball.
func Draw(r entity.Renderer, state *engine.GameState) {
	if state == nil {
		return
	}
	if fs, ok := r.(FieldSizer); ok {
		fs.SetField(state.Field.Width, state.Field.Height)
	}

	scene := SceneFromState(state)
	r.Clear()
	for _, b := range scene.Bricks {
		b.Render(r)
	}
	scene.Paddle.Render(r)
	scene.Ball.Render(r)
	if sr, ok := r.(StatusRenderer); ok {
		sr.RenderStatus(state)
	}
	r.Present()
}

// Scene holds throwaway entities rebuilt from a snapshot, so renderers
// written against entity types can draw remote sessions too.
type Scene struct {
	Ball   *entity.Ball
	Paddle *entity.Paddle
	Bricks []*entity.Brick
}

// SceneFromState rebuilds the drawable entities of state
func SceneFromState(state *engine.GameState) *Scene {
	s := &Scene{
		Ball: &entity.Ball{
			BaseEntity: entity.BaseEntity{
				Position: state.Ball.Position,
				Velocity: state.Ball.Velocity,
				Width:    2 * state.Ball.Radius,
				Height:   2 * state.Ball.Radius,
			},
			Radius: state.Ball.Radius,
		},
		Paddle: &entity.Paddle{
			BaseEntity: entity.BaseEntity{
				Position: state.Paddle.Position,
				Width:    state.Paddle.Width,
				Height:   state.Paddle.Height,
			},
		},
		Bricks: make([]*entity.Brick, len(state.Bricks)),
	}

	for i, b := range state.Bricks {
		c, err := board.ParseColor(b.Color)
		if err != nil {
			c = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
		}
		s.Bricks[i] = &entity.Brick{
			BaseEntity: entity.BaseEntity{
				ID:       b.ID,
				Position: b.Position,
				Width:    b.Width,
				Height:   b.Height,
			},
			Column:    b.Column,
			Row:       b.Row,
			Color:     c,
			Destroyed: b.Destroyed,
		}
	}
	return s
}

// NullRenderer logs every draw call at debug level. The headless server
// uses it to trace frames.
type NullRenderer struct {
	logger *logging.Logger
	frames atomic.Uint64
}

// NewNullRenderer creates a NullRenderer. A nil logger uses the default.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger.With("component", "renderer")}
}

// Frames returns the number of presented frames
func (d *NullRenderer) Frames() uint64 {
	return d.frames.Load()
}

// Clear implements entity.Renderer.
func (d *NullRenderer) Clear() {
	d.logger.Debug(context.Background(), "Clear called")
}

// Present implements entity.Renderer.
func (d *NullRenderer) Present() {
	n := d.frames.Add(1)
	d.logger.Debug(context.Background(), "Present called", "frame", n)
}

// RenderBall implements entity.Renderer.
func (d *NullRenderer) RenderBall(ball *entity.Ball) {
	ctx := context.Background()
	if ball == nil {
		d.logger.Debug(ctx, "RenderBall called with nil ball")
		return
	}
	d.logger.Debug(ctx, "RenderBall called",
		"x", ball.Position.X,
		"y", ball.Position.Y,
		"radius", ball.Radius,
	)
}

// RenderPaddle implements entity.Renderer.
func (d *NullRenderer) RenderPaddle(paddle *entity.Paddle) {
	ctx := context.Background()
	if paddle == nil {
		d.logger.Debug(ctx, "RenderPaddle called with nil paddle")
		return
	}
	d.logger.Debug(ctx, "RenderPaddle called",
		"x", paddle.Position.X,
		"y", paddle.Position.Y,
		"width", paddle.Width,
	)
}

// RenderBrick implements entity.Renderer.
func (d *NullRenderer) RenderBrick(brick *entity.Brick) {
	ctx := context.Background()
	if brick == nil {
		d.logger.Debug(ctx, "RenderBrick called with nil brick")
		return
	}
	d.logger.Debug(ctx, "RenderBrick called",
		"brick_id", uint64(brick.ID),
		"column", brick.Column,
		"row", brick.Row,
	)
}
