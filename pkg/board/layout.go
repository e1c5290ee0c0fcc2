// pkg/board/layout.go
package board

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// Layout describes how a grid of bricks fills the board area.
// Width and Height are the size of the board area, not of a brick.
type Layout struct {
	Columns     int     `json:"columns"`
	Rows        int     `json:"rows"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	SidePadding float64 `json:"sidePadding"`
	TopPadding  float64 `json:"topPadding"`
	Gap         float64 `json:"gap"`
}

// BrickSize returns the uniform brick width and height. Columns plus the gaps
// between them plus both side paddings span Width exactly; rows plus their
// gaps plus the top padding span Height.
func (l Layout) BrickSize() (width, height float64) {
	width = (l.Width - float64(l.Columns-1)*l.Gap - 2*l.SidePadding) / float64(l.Columns)
	height = (l.Height - float64(l.Rows-1)*l.Gap - l.TopPadding) / float64(l.Rows)
	return width, height
}

// Cell returns the center of the brick at (column, row)
func (l Layout) Cell(column, row int) physics.Vector2D {
	w, h := l.BrickSize()
	return physics.Vector2D{
		X: l.SidePadding + float64(column)*(w+l.Gap) + w/2,
		Y: l.TopPadding + float64(row)*(h+l.Gap) + h/2,
	}
}

// Len returns the number of cells in the grid
func (l Layout) Len() int {
	return l.Columns * l.Rows
}

// Validate checks that the layout produces bricks with positive size
func (l Layout) Validate() error {
	switch {
	case l.Columns <= 0 || l.Rows <= 0:
		return fmt.Errorf("grid %dx%d: %w", l.Columns, l.Rows, entity.ErrInvalidArgument)
	case !positive(l.Width) || !positive(l.Height):
		return fmt.Errorf("board area %vx%v: %w", l.Width, l.Height, entity.ErrInvalidArgument)
	case !nonNegative(l.SidePadding) || !nonNegative(l.TopPadding) || !nonNegative(l.Gap):
		return fmt.Errorf("padding %v/%v gap %v: %w", l.SidePadding, l.TopPadding, l.Gap, entity.ErrInvalidArgument)
	}

	w, h := l.BrickSize()
	if !positive(w) || !positive(h) {
		return fmt.Errorf("derived brick size %vx%v: %w", w, h, entity.ErrInvalidArgument)
	}
	return nil
}

// WithArea returns a copy of the layout spanning a new board area
func (l Layout) WithArea(width, height float64) Layout {
	l.Width = width
	l.Height = height
	return l
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
