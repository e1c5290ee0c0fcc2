// pkg/entity/entity.go
package entity

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// ErrInvalidArgument is returned when an entity is constructed or resized
// with impossible geometry.
var ErrInvalidArgument = errors.New("invalid argument")

// ID is a unique identifier for an entity
type ID uint64

var nextID atomic.Uint64

// GenerateID returns a process-wide unique entity ID
func GenerateID() ID {
	return ID(nextID.Add(1))
}

// Entity is the capability shared by every object on the play field.
// Position is always the geometric center of the shape.
type Entity interface {
	GetID() ID
	GetPosition() physics.Vector2D
	GetVelocity() physics.Vector2D
	Size() (width, height float64)
	Bounds() physics.Rect
	Render(r Renderer)
}

// Collider is implemented by the rectangles the ball can bounce off
type Collider interface {
	CollidesWithBall(ball *Ball) bool
	CollisionNormal(ball *Ball) physics.Vector2D
}

// BaseEntity contains common functionality for all entities
type BaseEntity struct {
	ID       ID
	Position physics.Vector2D
	Velocity physics.Vector2D
	Width    float64
	Height   float64
}

// GetID returns the entity's unique identifier
func (e *BaseEntity) GetID() ID {
	return e.ID
}

// GetPosition returns the entity's center
func (e *BaseEntity) GetPosition() physics.Vector2D {
	return e.Position
}

// GetVelocity returns the entity's velocity in pixels per second
func (e *BaseEntity) GetVelocity() physics.Vector2D {
	return e.Velocity
}

// Size returns the entity's width and height
func (e *BaseEntity) Size() (float64, float64) {
	return e.Width, e.Height
}

// Bounds returns the axis-aligned rectangle covered by the entity
func (e *BaseEntity) Bounds() physics.Rect {
	return physics.Rect{Center: e.Position, Width: e.Width, Height: e.Height}
}

// SetSize changes the entity's extent. Negative or non-finite sizes are rejected.
func (e *BaseEntity) SetSize(width, height float64) error {
	if err := checkExtent("width", width); err != nil {
		return err
	}
	if err := checkExtent("height", height); err != nil {
		return err
	}
	e.Width = width
	e.Height = height
	return nil
}

// CollidesWithBall reports whether the ball overlaps the entity's rectangle.
// Touching counts as a collision.
func (e *BaseEntity) CollidesWithBall(ball *Ball) bool {
	return e.Bounds().OverlapsCircle(ball.Circle())
}

// CollisionNormal returns the contact normal for a ball moving into the
// rectangle, or the zero vector when the ball is already departing.
func (e *BaseEntity) CollisionNormal(ball *Ball) physics.Vector2D {
	return physics.ContactNormal(e.Bounds(), ball.Circle(), ball.Velocity)
}

func checkExtent(name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s %v: %w", name, v, ErrInvalidArgument)
	}
	return nil
}
