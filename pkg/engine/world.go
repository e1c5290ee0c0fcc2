// pkg/engine/world.go
package engine

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-facebreak/pkg/board"
	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// World holds the ball, the paddle and the brick field of one session
// together with the field geometry they move in.
type World struct {
	Ball        *entity.Ball
	Paddle      *entity.Paddle
	Board       *board.Board
	FieldWidth  float64
	FieldHeight float64
	DeathLine   float64

	cfg *config.GameConfig
}

// StepResult is the outcome of one physics step
type StepResult struct {
	Destroyed int
	Bricks    []*entity.Brick
	LifeLost  bool
	PaddleHit bool
}

// NewWorld builds a world for the configured field size. The ball rests at
// the field center and the paddle at its home position.
func NewWorld(cfg *config.GameConfig) (*World, error) {
	w, h := cfg.Field.Width, cfg.Field.Height
	if err := checkFieldSize(w, h); err != nil {
		return nil, err
	}

	palette, err := board.ParsePalette(cfg.Board.Palette)
	if err != nil {
		return nil, err
	}
	b, err := board.New(boardLayout(cfg, w, h), palette)
	if err != nil {
		return nil, err
	}

	ball, err := entity.NewBall(physics.Vector2D{X: w / 2, Y: h / 2}, cfg.Ball.Radius)
	if err != nil {
		return nil, err
	}

	paddle, err := entity.NewPaddle(paddleHome(cfg, w, h), cfg.Paddle.Width, cfg.Paddle.Height)
	if err != nil {
		return nil, err
	}
	paddle.SpinFactor = cfg.Paddle.SpinFactor

	return &World{
		Ball:        ball,
		Paddle:      paddle,
		Board:       b,
		FieldWidth:  w,
		FieldHeight: h,
		DeathLine:   cfg.DeathLine(h),
		cfg:         cfg,
	}, nil
}

func checkFieldSize(w, h float64) error {
	if !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return fmt.Errorf("field size %vx%v: %w", w, h, entity.ErrInvalidArgument)
	}
	return nil
}

func boardLayout(cfg *config.GameConfig, w, h float64) board.Layout {
	return board.Layout{
		Columns:     cfg.Board.Columns,
		Rows:        cfg.Board.Rows,
		Width:       w,
		Height:      cfg.Field.BoardHeightRatio * h,
		SidePadding: cfg.Board.SidePadding,
		TopPadding:  cfg.Board.TopPadding,
		Gap:         cfg.Board.Gap,
	}
}

func paddleHome(cfg *config.GameConfig, w, h float64) physics.Vector2D {
	return physics.Vector2D{X: w / 2, Y: h - cfg.Paddle.BottomOffset}
}

// Center returns the middle of the field
func (w *World) Center() physics.Vector2D {
	return physics.Vector2D{X: w.FieldWidth / 2, Y: w.FieldHeight / 2}
}

// PaddleHome returns where the paddle rests between sessions
func (w *World) PaddleHome() physics.Vector2D {
	return paddleHome(w.cfg, w.FieldWidth, w.FieldHeight)
}

// ServeVelocity is the configured initial ball velocity
func (w *World) ServeVelocity() physics.Vector2D {
	return physics.Vector2D{X: w.cfg.Ball.VelocityX, Y: w.cfg.Ball.VelocityY}
}

// Serve puts the ball back at the field center with the serve velocity
func (w *World) Serve() {
	w.Ball.Serve(w.Center(), w.ServeVelocity())
}

// ParkPaddle moves the paddle to its home position
func (w *World) ParkPaddle() {
	w.Paddle.MoveTo(w.PaddleHome())
}

// Home parks the ball at the center and the paddle at its home position
func (w *World) Home() {
	w.Ball.Serve(w.Center(), physics.Zero())
	w.ParkPaddle()
}

// Step advances the ball by dt and resolves it against the field walls,
// the bricks and the paddle, in that order.
func (w *World) Step(dt float64) StepResult {
	var res StepResult

	res.LifeLost = w.Ball.Update(dt, w.FieldWidth, w.FieldHeight, w.DeathLine)

	res.Bricks = w.Board.Strike(w.Ball)
	res.Destroyed = len(res.Bricks)

	if w.Paddle.CollidesWithBall(w.Ball) {
		normal := w.Paddle.CollisionNormal(w.Ball)
		if !normal.IsZero() {
			w.Ball.Collision(normal)
			res.PaddleHit = true
		}
	}
	return res
}

// Resize re-derives the board area and the death line for a new field
// size and scales the paddle into it. Destroyed bricks stay destroyed and resizing to
// the current size changes nothing. It reports whether anything changed.
func (w *World) Resize(width, height float64) (bool, error) {
	if err := checkFieldSize(width, height); err != nil {
		return false, err
	}
	if width == w.FieldWidth && height == w.FieldHeight {
		return false, nil
	}

	layout := boardLayout(w.cfg, width, height)
	if err := w.Board.Resize(layout.Width, layout.Height); err != nil {
		return false, err
	}

	// the paddle keeps its relative place, so a shrink never strands it
	// outside the field before the next detection
	p := w.Paddle.Position
	p.X = p.X * width / w.FieldWidth
	p.Y = p.Y * height / w.FieldHeight

	w.FieldWidth = width
	w.FieldHeight = height
	w.DeathLine = w.cfg.DeathLine(height)

	if w.cfg.Paddle.LockY {
		p.Y = w.PaddleHome().Y
	}
	w.Paddle.MoveTo(p)
	w.Paddle.ClampX(width)
	return true, nil
}
