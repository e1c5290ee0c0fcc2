// pkg/entity/brick.go
package entity

import (
	"image/color"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// Brick is a destructible rectangle in the brick field. Its color is cosmetic.
type Brick struct {
	BaseEntity
	Column    int
	Row       int
	Color     color.RGBA
	Destroyed bool
}

// NewBrick creates a live brick for the given grid cell
func NewBrick(column, row int, center physics.Vector2D, width, height float64, c color.RGBA) (*Brick, error) {
	b := &Brick{
		BaseEntity: BaseEntity{
			ID:       GenerateID(),
			Position: center,
		},
		Column: column,
		Row:    row,
		Color:  c,
	}
	if err := b.SetSize(width, height); err != nil {
		return nil, err
	}
	return b, nil
}

// Destroy marks the brick destroyed. It returns false if it already was.
func (b *Brick) Destroy() bool {
	if b.Destroyed {
		return false
	}
	b.Destroyed = true
	return true
}

// Reset brings the brick back to life without touching its geometry
func (b *Brick) Reset() {
	b.Destroyed = false
}

// Place moves and resizes the brick. The destroyed flag is preserved.
func (b *Brick) Place(center physics.Vector2D, width, height float64) error {
	if err := b.SetSize(width, height); err != nil {
		return err
	}
	b.Position = center
	return nil
}

// CollidesWithBall reports an overlap with a live brick
func (b *Brick) CollidesWithBall(ball *Ball) bool {
	return !b.Destroyed && b.BaseEntity.CollidesWithBall(ball)
}

// Render draws the brick; destroyed bricks are skipped
func (b *Brick) Render(r Renderer) {
	if b.Destroyed {
		return
	}
	r.RenderBrick(b)
}
