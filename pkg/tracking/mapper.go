// pkg/tracking/mapper.go
package tracking

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// ErrInvalidFrame is returned when a tracking frame or play field has no usable size
var ErrInvalidFrame = errors.New("invalid frame size")

// Size is a width/height pair in pixels
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive and finite
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// Ratio returns width divided by height
func (s Size) Ratio() float64 {
	return s.Width / s.Height
}

// Center returns the middle of a frame of this size
func (s Size) Center() physics.Vector2D {
	return physics.Vector2D{X: s.Width / 2, Y: s.Height / 2}
}

// Mapper converts tracking-frame pixels to play-field pixels. The tracking
// frame is scaled to cover the field, so the excess margins on one axis are
// cropped away. Mapper holds no state besides the mirror flag.
type Mapper struct {
	Mirror bool
}

// Window returns the part of the tracking frame that is visible on the field
func (m Mapper) Window(track, field Size) (physics.Rect, error) {
	if !track.Valid() {
		return physics.Rect{}, fmt.Errorf("tracking frame %vx%v: %w", track.Width, track.Height, ErrInvalidFrame)
	}
	if !field.Valid() {
		return physics.Rect{}, fmt.Errorf("play field %vx%v: %w", field.Width, field.Height, ErrInvalidFrame)
	}

	center := track.Center()
	if field.Ratio() < track.Ratio() {
		// tracking frame is wider: crop left and right
		s := track.Height / field.Height
		return physics.Rect{Center: center, Width: field.Width * s, Height: track.Height}, nil
	}
	// tracking frame is taller: crop top and bottom
	s := track.Width / field.Width
	return physics.Rect{Center: center, Width: track.Width, Height: field.Height * s}, nil
}

// Map converts p from tracking space into field space. Points outside the
// visible window land outside the field; nothing is clamped.
func (m Mapper) Map(p physics.Vector2D, track, field Size) (physics.Vector2D, error) {
	window, err := m.Window(track, field)
	if err != nil {
		return physics.Vector2D{}, err
	}
	if m.Mirror {
		p.X = track.Width - p.X
	}
	return physics.Vector2D{
		X: (p.X - window.Left()) / window.Width * field.Width,
		Y: (p.Y - window.Top()) / window.Height * field.Height,
	}, nil
}
