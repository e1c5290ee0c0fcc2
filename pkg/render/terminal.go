// pkg/render/terminal.go
package render

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// Glyphs used by the terminal renderer
const (
	BrickGlyph  = '█'
	PaddleGlyph = '='
	BallGlyph   = 'O'
	DeathGlyph  = '·'
)

// statusRows is the number of screen rows reserved above the field
const statusRows = 1

// TerminalRenderer draws the play field on a tcell screen. The field is
// stretched to the screen below a one-line status bar.
type TerminalRenderer struct {
	screen      tcell.Screen
	fieldWidth  float64
	fieldHeight float64
	cols        int
	rows        int
}

// NewTerminalRenderer creates a renderer for an initialised screen
func NewTerminalRenderer(screen tcell.Screen) *TerminalRenderer {
	r := &TerminalRenderer{
		screen:      screen,
		fieldWidth:  800,
		fieldHeight: 600,
	}
	r.cols, r.rows = screen.Size()
	return r
}

// SetField sets the world size mapped onto the screen
func (r *TerminalRenderer) SetField(width, height float64) {
	if width > 0 && height > 0 {
		r.fieldWidth, r.fieldHeight = width, height
	}
}

// fieldRows is the number of rows the field occupies
func (r *TerminalRenderer) fieldRows() int {
	if n := r.rows - statusRows; n > 0 {
		return n
	}
	return 0
}

// WorldToCell converts a field position to a screen cell
func (r *TerminalRenderer) WorldToCell(p physics.Vector2D) (int, int) {
	x := int(math.Floor(p.X / r.fieldWidth * float64(r.cols)))
	y := int(math.Floor(p.Y/r.fieldHeight*float64(r.fieldRows()))) + statusRows
	return x, y
}

// CellToWorld converts a screen cell to the field position at its center.
// The terminal client uses it to turn the mouse into a tracking point.
func (r *TerminalRenderer) CellToWorld(x, y int) physics.Vector2D {
	rows := r.fieldRows()
	if r.cols == 0 || rows == 0 {
		return physics.Vector2D{}
	}
	return physics.Vector2D{
		X: (float64(x) + 0.5) * r.fieldWidth / float64(r.cols),
		Y: (float64(y-statusRows) + 0.5) * r.fieldHeight / float64(rows),
	}
}

func (r *TerminalRenderer) inField(x, y int) bool {
	return x >= 0 && x < r.cols && y >= statusRows && y < r.rows
}

// fill draws glyph over every cell covered by rect, at least one cell
func (r *TerminalRenderer) fill(rect physics.Rect, glyph rune, style tcell.Style) {
	x0, y0 := r.WorldToCell(physics.Vector2D{X: rect.Left(), Y: rect.Top()})
	x1, y1 := r.WorldToCell(physics.Vector2D{X: rect.Right(), Y: rect.Bottom()})
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if r.inField(x, y) {
				r.screen.SetContent(x, y, glyph, nil, style)
			}
		}
	}
}

// Clear implements entity.Renderer
func (r *TerminalRenderer) Clear() {
	r.screen.Clear()
	r.cols, r.rows = r.screen.Size()
}

// Present implements entity.Renderer
func (r *TerminalRenderer) Present() {
	r.screen.Show()
}

// RenderBrick implements entity.Renderer
func (r *TerminalRenderer) RenderBrick(brick *entity.Brick) {
	c := brick.Color
	style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	r.fill(brick.Bounds(), BrickGlyph, style)
}

// RenderPaddle implements entity.Renderer
func (r *TerminalRenderer) RenderPaddle(paddle *entity.Paddle) {
	r.fill(paddle.Bounds(), PaddleGlyph, tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true))
}

// RenderBall implements entity.Renderer
func (r *TerminalRenderer) RenderBall(ball *entity.Ball) {
	x, y := r.WorldToCell(ball.Position)
	if r.inField(x, y) {
		r.screen.SetContent(x, y, BallGlyph, nil, tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true))
	}
}

// RenderStatus draws the status bar and the death line
func (r *TerminalRenderer) RenderStatus(state *engine.GameState) {
	_, deathY := r.WorldToCell(physics.Vector2D{Y: state.Field.DeathLine})
	if deathY < r.rows {
		dim := tcell.StyleDefault.Foreground(tcell.ColorRed)
		for x := 0; x < r.cols; x++ {
			if mainc, _, _, _ := r.screen.GetContent(x, deathY); mainc == ' ' || mainc == 0 {
				r.screen.SetContent(x, deathY, DeathGlyph, nil, dim)
			}
		}
	}

	r.DrawText(0, 0, tcell.StyleDefault.Reverse(true), StatusLine(state, r.cols))
}

// DrawText writes s from (x, y), clipped to the screen width
func (r *TerminalRenderer) DrawText(x, y int, style tcell.Style, s string) {
	for _, ch := range s {
		if x >= r.cols {
			return
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

// StatusLine formats score, lives and status, padded to width
func StatusLine(state *engine.GameState, width int) string {
	line := fmt.Sprintf(" score %d/%d  lives %d  %s", state.Score, len(state.Bricks), state.Lives, state.Status)
	switch state.Status {
	case "countdown":
		line += fmt.Sprintf(" %d", state.Countdown)
	case "over":
		line += " (" + state.Outcome + ")"
	}
	if state.Mirror {
		line += "  mirrored"
	}
	if pad := width - len([]rune(line)); pad > 0 {
		line += fmt.Sprintf("%*s", pad, "")
	}
	return line
}
