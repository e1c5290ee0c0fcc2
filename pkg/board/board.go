// pkg/board/board.go
package board

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// quadTreeCapacity is the number of brick centers kept per quadtree node
const quadTreeCapacity = 4

// Board is the brick field. Bricks live in a flat arena indexed by
// row*Columns+col; the grid dimensions never change after construction.
type Board struct {
	layout  Layout
	palette []color.RGBA
	bricks  []*entity.Brick
	index   *physics.QuadTree
}

// New lays out a fresh grid of live bricks. An empty palette selects the
// default colour cycle.
func New(layout Layout, palette []color.RGBA) (*Board, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("board layout: %w", err)
	}
	if len(palette) == 0 {
		palette = DefaultPalette()
	}

	b := &Board{
		layout:  layout,
		palette: palette,
		bricks:  make([]*entity.Brick, layout.Len()),
	}

	w, h := layout.BrickSize()
	for row := 0; row < layout.Rows; row++ {
		for col := 0; col < layout.Columns; col++ {
			brick, err := entity.NewBrick(col, row, layout.Cell(col, row), w, h, b.colorFor(col, row))
			if err != nil {
				return nil, err
			}
			b.bricks[b.indexOf(col, row)] = brick
		}
	}
	b.rebuildIndex()
	return b, nil
}

// colorFor cycles through the palette column by column, starting at the
// second entry.
func (b *Board) colorFor(col, row int) color.RGBA {
	n := col*b.layout.Rows + row + 1
	return b.palette[n%len(b.palette)]
}

func (b *Board) indexOf(col, row int) int {
	return row*b.layout.Columns + col
}

// Layout returns the current geometry description
func (b *Board) Layout() Layout {
	return b.layout
}

// Brick returns the brick at (col, row), or nil outside the grid
func (b *Board) Brick(col, row int) *entity.Brick {
	if col < 0 || row < 0 || col >= b.layout.Columns || row >= b.layout.Rows {
		return nil
	}
	return b.bricks[b.indexOf(col, row)]
}

// At returns the brick at arena index i, or nil when out of range
func (b *Board) At(i int) *entity.Brick {
	if i < 0 || i >= len(b.bricks) {
		return nil
	}
	return b.bricks[i]
}

// Bricks returns the arena in index order. Callers must not modify the slice.
func (b *Board) Bricks() []*entity.Brick {
	return b.bricks
}

// Len returns the total cell count, which is also the winning score
func (b *Board) Len() int {
	return len(b.bricks)
}

// Remaining returns the number of live bricks
func (b *Board) Remaining() int {
	n := 0
	for _, brick := range b.bricks {
		if !brick.Destroyed {
			n++
		}
	}
	return n
}

// Collision resolves the ball against every live brick it overlaps and
// returns how many were destroyed.
func (b *Board) Collision(ball *entity.Ball) int {
	return len(b.Strike(ball))
}

// Strike is Collision returning the destroyed bricks in index order.
// Each overlapping live brick reflects the ball once and is destroyed.
// Testing is discrete per frame, so a fast enough ball can pass through a
// brick without touching it.
func (b *Board) Strike(ball *entity.Ball) []*entity.Brick {
	var hit []*entity.Brick
	for _, i := range b.candidates(ball) {
		brick := b.bricks[i]
		if !brick.CollidesWithBall(ball) {
			continue
		}
		ball.Collision(brick.CollisionNormal(ball))
		if brick.Destroy() {
			hit = append(hit, brick)
		}
	}
	return hit
}

// candidates returns, in ascending order, the indices of bricks whose
// centers are close enough to the ball to possibly overlap it.
func (b *Board) candidates(ball *entity.Ball) []int {
	w, h := b.layout.BrickSize()
	// one extra pixel keeps touching bricks inside the half-open query
	area := ball.Circle().Bounds().Expand(w/2+1, h/2+1)
	found := b.index.Query(area)
	sort.Ints(found)
	return found
}

func (b *Board) rebuildIndex() {
	bounds := physics.Rect{
		Center: physics.Vector2D{X: b.layout.Width / 2, Y: b.layout.Height / 2},
		Width:  b.layout.Width + 2,
		Height: b.layout.Height + 2,
	}
	b.index = physics.NewQuadTree(bounds, quadTreeCapacity)
	for i, brick := range b.bricks {
		b.index.Insert(brick.Position, i)
	}
}

// Reset revives every brick; geometry is unchanged
func (b *Board) Reset() {
	for _, brick := range b.bricks {
		brick.Reset()
	}
}

// Resize recomputes brick geometry for a new board area. Destroyed flags are
// kept and repeated calls with the same size are no-ops.
func (b *Board) Resize(width, height float64) error {
	layout := b.layout.WithArea(width, height)
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("resize board: %w", err)
	}
	if layout == b.layout {
		return nil
	}

	w, h := layout.BrickSize()
	for _, brick := range b.bricks {
		if err := brick.Place(layout.Cell(brick.Column, brick.Row), w, h); err != nil {
			return err
		}
	}
	b.layout = layout
	b.rebuildIndex()
	return nil
}

// Render draws every live brick
func (b *Board) Render(r entity.Renderer) {
	for _, brick := range b.bricks {
		brick.Render(r)
	}
}
