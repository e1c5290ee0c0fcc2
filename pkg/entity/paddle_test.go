// pkg/entity/paddle_test.go
package entity

import (
	"math"
	"testing"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

func TestNewPaddle(t *testing.T) {
	p, err := NewPaddle(physics.Vector2D{X: 400, Y: 550}, 120, 40)
	if err != nil {
		t.Fatalf("NewPaddle() error = %v", err)
	}
	if p.SpinFactor != DefaultSpinFactor {
		t.Errorf("SpinFactor = %v, expected %v", p.SpinFactor, DefaultSpinFactor)
	}
	if _, err := NewPaddle(physics.Vector2D{}, -1, 40); err == nil {
		t.Error("NewPaddle() with negative width should fail")
	}
}

func TestPaddle_SpinScenario(t *testing.T) {
	// center x=500, half-width 65, ball strikes the top edge at x=430
	p, _ := NewPaddle(physics.Vector2D{X: 500, Y: 550}, 130, 40)
	ball, _ := NewBall(physics.Vector2D{X: 430, Y: 525}, 10)
	ball.Velocity = physics.Vector2D{X: 0, Y: 300}

	if !p.CollidesWithBall(ball) {
		t.Fatal("ball should touch the paddle")
	}

	delta := p.SpinDelta(ball)
	if delta != 1 {
		t.Errorf("SpinDelta() = %v, expected 1 (clamped from %v)", delta, 70.0/65.0)
	}

	base := p.BaseEntity.CollisionNormal(ball)
	if base.IsZero() {
		t.Fatal("base normal should be non-zero for an approaching ball")
	}
	expected := physics.Vector2D{X: -0.2, Y: base.Y}.Normalize()
	got := p.CollisionNormal(ball)
	if !got.ApproxEquals(expected, 1e-12) {
		t.Errorf("CollisionNormal() = %v, expected %v", got, expected)
	}
	if math.Abs(got.Length()-1) > 1e-12 {
		t.Errorf("CollisionNormal() length = %v, expected 1", got.Length())
	}
}

func TestPaddle_CollisionNormal(t *testing.T) {
	p, _ := NewPaddle(physics.Vector2D{X: 400, Y: 550}, 120, 40)

	tests := []struct {
		name     string
		ball     physics.Vector2D
		velocity physics.Vector2D
		expected physics.Vector2D
	}{
		{
			name:     "dead_center_from_above",
			ball:     physics.Vector2D{X: 400, Y: 522},
			velocity: physics.Vector2D{X: 100, Y: 300},
			expected: physics.Vector2D{X: 0, Y: -1},
		},
		{
			name:     "right_half_from_above",
			ball:     physics.Vector2D{X: 430, Y: 522},
			velocity: physics.Vector2D{X: 0, Y: 300},
			expected: physics.Vector2D{X: 0.1, Y: -1}.Normalize(),
		},
		{
			name:     "from_the_side_keeps_base_normal",
			ball:     physics.Vector2D{X: 335, Y: 550},
			velocity: physics.Vector2D{X: 300, Y: 0},
			expected: physics.Vector2D{X: -1, Y: 0},
		},
		{
			name:     "departing_ball_gets_no_response",
			ball:     physics.Vector2D{X: 400, Y: 522},
			velocity: physics.Vector2D{X: 0, Y: -300},
			expected: physics.Vector2D{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ball, _ := NewBall(tt.ball, 10)
			ball.Velocity = tt.velocity
			got := p.CollisionNormal(ball)
			if !got.ApproxEquals(tt.expected, 1e-12) {
				t.Errorf("CollisionNormal() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestPaddle_ClampX(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected float64
	}{
		{"inside", 400, 400},
		{"left_overflow", -50, 60},
		{"right_overflow", 790, 740},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := NewPaddle(physics.Vector2D{X: tt.x, Y: 550}, 120, 40)
			p.ClampX(800)
			if p.Position.X != tt.expected {
				t.Errorf("ClampX() x = %v, expected %v", p.Position.X, tt.expected)
			}
		})
	}
}
