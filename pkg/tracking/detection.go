// pkg/tracking/detection.go
package tracking

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// ErrMalformedDetection is returned when a detection lacks usable keypoints
var ErrMalformedDetection = errors.New("malformed detection")

// Face-mesh landmark indices of the mouth corners
const (
	RightMouthCorner = 76
	LeftMouthCorner  = 306
)

// Keypoint is one landmark in tracking-frame pixels
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one result from the landmark detector
type Detection struct {
	Keypoints   []Keypoint `json:"keypoints"`
	FrameWidth  float64    `json:"frameWidth"`
	FrameHeight float64    `json:"frameHeight"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Frame returns the size of the tracking frame the keypoints refer to
func (d Detection) Frame() Size {
	return Size{Width: d.FrameWidth, Height: d.FrameHeight}
}

// MouthCenter returns the midpoint of the two mouth-corner keypoints
func MouthCenter(d Detection, right, left int) (physics.Vector2D, error) {
	r, err := keypoint(d, right)
	if err != nil {
		return physics.Vector2D{}, err
	}
	l, err := keypoint(d, left)
	if err != nil {
		return physics.Vector2D{}, err
	}
	return r.Lerp(l, 0.5), nil
}

func keypoint(d Detection, i int) (physics.Vector2D, error) {
	if i < 0 || i >= len(d.Keypoints) {
		return physics.Vector2D{}, fmt.Errorf("keypoint %d of %d: %w", i, len(d.Keypoints), ErrMalformedDetection)
	}
	p := physics.Vector2D{X: d.Keypoints[i].X, Y: d.Keypoints[i].Y}
	if !p.IsFinite() {
		return physics.Vector2D{}, fmt.Errorf("keypoint %d is not finite: %w", i, ErrMalformedDetection)
	}
	return p, nil
}

// PointDetection builds a detection whose mouth corners both sit at p.
// Mouse input and bots use it to drive the paddle without a face detector.
func PointDetection(p physics.Vector2D, frame Size, right, left int) Detection {
	n := right
	if left > n {
		n = left
	}
	kps := make([]Keypoint, n+1)
	kps[right] = Keypoint{X: p.X, Y: p.Y}
	kps[left] = Keypoint{X: p.X, Y: p.Y}
	return Detection{
		Keypoints:   kps,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Timestamp:   time.Now(),
	}
}
