// pkg/entity/paddle.go
package entity

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// DefaultSpinFactor is how strongly an off-center strike steers the rebound
const DefaultSpinFactor = 0.2

// Paddle is the player's kinematic rectangle. It has no physics of its own;
// its center is moved every frame from tracking input.
type Paddle struct {
	BaseEntity
	SpinFactor float64
}

// NewPaddle creates a paddle centered at position
func NewPaddle(position physics.Vector2D, width, height float64) (*Paddle, error) {
	p := &Paddle{
		BaseEntity: BaseEntity{
			ID:       GenerateID(),
			Position: position,
		},
		SpinFactor: DefaultSpinFactor,
	}
	if err := p.SetSize(width, height); err != nil {
		return nil, fmt.Errorf("paddle: %w", err)
	}
	return p, nil
}

// MoveTo places the paddle's center
func (p *Paddle) MoveTo(center physics.Vector2D) {
	p.Position = center
}

// ClampX keeps the paddle horizontally inside [0, fieldWidth]
func (p *Paddle) ClampX(fieldWidth float64) {
	half := p.Width / 2
	if fieldWidth <= p.Width {
		p.Position.X = fieldWidth / 2
		return
	}
	p.Position.X = math.Max(half, math.Min(p.Position.X, fieldWidth-half))
}

// SpinDelta returns the horizontal strike offset of the ball relative to the
// paddle center, in half-widths, clamped to [-1, 1]. Positive means the ball
// hit left of center.
func (p *Paddle) SpinDelta(ball *Ball) float64 {
	half := p.Width / 2
	if half == 0 {
		return 0
	}
	delta := (p.Position.X - ball.Position.X) / half
	return math.Max(-1, math.Min(1, delta))
}

// CollisionNormal bends the rectangle normal sideways for strikes from above,
// in proportion to how far off center the ball landed.
func (p *Paddle) CollisionNormal(ball *Ball) physics.Vector2D {
	normal := p.BaseEntity.CollisionNormal(ball)
	if normal.IsZero() || ball.Position.Y >= p.Bounds().Top() {
		return normal
	}
	normal.X = -p.SpinDelta(ball) * p.SpinFactor
	return normal.Normalize()
}

// Render draws the paddle
func (p *Paddle) Render(r Renderer) {
	r.RenderPaddle(p)
}
