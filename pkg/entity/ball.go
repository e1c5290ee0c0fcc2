// pkg/entity/ball.go
package entity

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// Ball is the single moving circle in play
type Ball struct {
	BaseEntity
	Radius float64
}

// NewBall creates a ball centered at position. The radius must be positive.
func NewBall(position physics.Vector2D, radius float64) (*Ball, error) {
	b := &Ball{
		BaseEntity: BaseEntity{
			ID:       GenerateID(),
			Position: position,
		},
	}
	if err := b.SetRadius(radius); err != nil {
		return nil, err
	}
	return b, nil
}

// SetRadius changes the radius and keeps width and height in sync
func (b *Ball) SetRadius(radius float64) error {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return fmt.Errorf("ball radius %v: %w", radius, ErrInvalidArgument)
	}
	b.Radius = radius
	b.Width = 2 * radius
	b.Height = 2 * radius
	return nil
}

// Circle returns the ball's collision shape
func (b *Ball) Circle() physics.Circle {
	return physics.Circle{Center: b.Position, Radius: b.Radius}
}

// Update advances the ball by dt seconds inside a field of the given size and
// reports whether the advanced position lies below deathLineY.
//
// Wall contact is resolved before the move and again after it, so the center
// always ends up within [r, W-r] x [r, H-r]. The death check uses the raw
// advanced position, before it is pulled back inside the field.
func (b *Ball) Update(dt, fieldWidth, fieldHeight, deathLineY float64) bool {
	b.confine(fieldWidth, fieldHeight)

	b.Position = b.Position.Add(b.Velocity.Scale(dt))
	crossed := b.Position.Y > deathLineY

	b.confine(fieldWidth, fieldHeight)
	return crossed
}

// confine snaps the ball onto any wall it touches and turns the matching
// velocity component back into the field. A zero component never bounces.
func (b *Ball) confine(fieldWidth, fieldHeight float64) {
	r := b.Radius

	if b.Position.X-r <= 0 {
		b.Position.X = r
		if b.Velocity.X < 0 {
			b.Velocity.X = -b.Velocity.X
		}
	} else if b.Position.X+r >= fieldWidth {
		b.Position.X = fieldWidth - r
		if b.Velocity.X > 0 {
			b.Velocity.X = -b.Velocity.X
		}
	}

	if b.Position.Y-r <= 0 {
		b.Position.Y = r
		if b.Velocity.Y < 0 {
			b.Velocity.Y = -b.Velocity.Y
		}
	} else if b.Position.Y+r >= fieldHeight {
		b.Position.Y = fieldHeight - r
		if b.Velocity.Y > 0 {
			b.Velocity.Y = -b.Velocity.Y
		}
	}
}

// Collision reflects the velocity about normal. A zero normal means no contact.
func (b *Ball) Collision(normal physics.Vector2D) {
	if normal.IsZero() {
		return
	}
	b.Velocity = physics.Reflect(b.Velocity, normal)
}

// Serve places the ball at position with the given velocity
func (b *Ball) Serve(position, velocity physics.Vector2D) {
	b.Position = position
	b.Velocity = velocity
}

// Render draws the ball
func (b *Ball) Render(r Renderer) {
	r.RenderBall(b)
}
