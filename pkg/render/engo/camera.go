// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// Camera letterboxes the play field into the window. The field keeps its
// aspect ratio and is centered, with bars on the spare axis.
type Camera struct {
	fieldWidth   float64
	fieldHeight  float64
	windowWidth  float64
	windowHeight float64

	scale   float64
	offsetX float64
	offsetY float64
}

// NewCamera creates a camera showing an 800x600 field in an 800x600 window
func NewCamera() *Camera {
	c := &Camera{
		fieldWidth:   800,
		fieldHeight:  600,
		windowWidth:  800,
		windowHeight: 600,
	}
	c.fit()
	return c
}

// SetField sets the play field size; non-positive sizes are ignored
func (c *Camera) SetField(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	c.fieldWidth, c.fieldHeight = width, height
	c.fit()
}

// SetWindow sets the canvas size; non-positive sizes are ignored
func (c *Camera) SetWindow(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	c.windowWidth, c.windowHeight = width, height
	c.fit()
}

// Window returns the canvas size
func (c *Camera) Window() (float64, float64) {
	return c.windowWidth, c.windowHeight
}

func (c *Camera) fit() {
	sx := c.windowWidth / c.fieldWidth
	sy := c.windowHeight / c.fieldHeight
	c.scale = sx
	if sy < sx {
		c.scale = sy
	}
	c.offsetX = (c.windowWidth - c.fieldWidth*c.scale) / 2
	c.offsetY = (c.windowHeight - c.fieldHeight*c.scale) / 2
}

// Scale returns window pixels per field pixel
func (c *Camera) Scale() float64 {
	return c.scale
}

// WorldToScreen converts a field position to canvas coordinates
func (c *Camera) WorldToScreen(p physics.Vector2D) engo.Point {
	return engo.Point{
		X: float32(c.offsetX + p.X*c.scale),
		Y: float32(c.offsetY + p.Y*c.scale),
	}
}

// ScreenToWorld converts canvas coordinates to a field position. Points
// on the bars land outside the field.
func (c *Camera) ScreenToWorld(p engo.Point) physics.Vector2D {
	return physics.Vector2D{
		X: (float64(p.X) - c.offsetX) / c.scale,
		Y: (float64(p.Y) - c.offsetY) / c.scale,
	}
}

// RectToScreen returns the top-left corner and size of r on the canvas,
// the way a SpaceComponent wants it.
func (c *Camera) RectToScreen(r physics.Rect) (engo.Point, float32, float32) {
	corner := c.WorldToScreen(physics.Vector2D{X: r.Left(), Y: r.Top()})
	return corner, float32(r.Width * c.scale), float32(r.Height * c.scale)
}

// CameraSystem keeps the camera in step with the canvas size
type CameraSystem struct {
	camera *Camera
}

// NewCameraSystem creates a system updating camera every frame
func NewCameraSystem(camera *Camera) *CameraSystem {
	return &CameraSystem{camera: camera}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(ecs.BasicEntity) {}

// Update reads the current canvas size
func (cs *CameraSystem) Update(float32) {
	cs.camera.SetWindow(float64(engo.GameWidth()), float64(engo.GameHeight()))
}
