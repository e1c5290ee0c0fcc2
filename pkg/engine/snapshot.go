// pkg/engine/snapshot.go
package engine

import (
	"fmt"
	"image/color"

	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// GameState represents a snapshot of the game state. It shares nothing with
// the live session and is safe to hand to other goroutines.
type GameState struct {
	Tick      uint64       `json:"tick"`
	Status    string       `json:"status"`
	Outcome   string       `json:"outcome"`
	Score     int          `json:"score"`
	Lives     int          `json:"lives"`
	Countdown int          `json:"countdown"`
	Mirror    bool         `json:"mirror"`
	Field     FieldState   `json:"field"`
	Ball      BallState    `json:"ball"`
	Paddle    PaddleState  `json:"paddle"`
	Bricks    []BrickState `json:"bricks"`
}

// FieldState represents the play field geometry
type FieldState struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	DeathLine float64 `json:"deathLine"`
}

// BallState represents a snapshot of the ball
type BallState struct {
	Position physics.Vector2D `json:"position"`
	Velocity physics.Vector2D `json:"velocity"`
	Radius   float64          `json:"radius"`
}

// PaddleState represents a snapshot of the paddle
type PaddleState struct {
	Position physics.Vector2D `json:"position"`
	Width    float64          `json:"width"`
	Height   float64          `json:"height"`
}

// BrickState represents a snapshot of one brick
type BrickState struct {
	ID        entity.ID        `json:"id"`
	Column    int              `json:"column"`
	Row       int              `json:"row"`
	Position  physics.Vector2D `json:"position"`
	Width     float64          `json:"width"`
	Height    float64          `json:"height"`
	Destroyed bool             `json:"destroyed"`
	Color     string           `json:"color"`
}

// Remaining counts the live bricks in the snapshot
func (s *GameState) Remaining() int {
	n := 0
	for _, b := range s.Bricks {
		if !b.Destroyed {
			n++
		}
	}
	return n
}

// GetGameState returns a snapshot of the current game state
func (g *Game) GetGameState() *GameState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.createGameStateSnapshot()
}

// createGameStateSnapshot must be called with the lock held
func (g *Game) createGameStateSnapshot() *GameState {
	w := g.World
	return &GameState{
		Tick:      g.currentTick,
		Status:    g.status.String(),
		Outcome:   g.outcome.String(),
		Score:     g.score,
		Lives:     g.lives,
		Countdown: g.countdown,
		Mirror:    g.Mapper.Mirror,
		Field: FieldState{
			Width:     w.FieldWidth,
			Height:    w.FieldHeight,
			DeathLine: w.DeathLine,
		},
		Ball: BallState{
			Position: w.Ball.Position,
			Velocity: w.Ball.Velocity,
			Radius:   w.Ball.Radius,
		},
		Paddle: PaddleState{
			Position: w.Paddle.Position,
			Width:    w.Paddle.Width,
			Height:   w.Paddle.Height,
		},
		Bricks: g.getBrickStates(),
	}
}

// getBrickStates creates a snapshot of the brick arena in index order
func (g *Game) getBrickStates() []BrickState {
	bricks := g.World.Board.Bricks()
	states := make([]BrickState, len(bricks))
	for i, b := range bricks {
		states[i] = BrickState{
			ID:        b.ID,
			Column:    b.Column,
			Row:       b.Row,
			Position:  b.Position,
			Width:     b.Width,
			Height:    b.Height,
			Destroyed: b.Destroyed,
			Color:     hexColor(b.Color),
		}
	}
	return states
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
