// pkg/entity/ball_test.go
package entity

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/opd-ai/go-facebreak/pkg/physics"
)

func TestNewBall(t *testing.T) {
	tests := []struct {
		name    string
		radius  float64
		wantErr bool
	}{
		{"positive", 25, false},
		{"tiny", 1e-6, false},
		{"zero", 0, true},
		{"negative", -3, true},
		{"nan", math.NaN(), true},
		{"infinite", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ball, err := NewBall(physics.Vector2D{X: 1, Y: 2}, tt.radius)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("NewBall(%v) error = %v, expected ErrInvalidArgument", tt.radius, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBall(%v) unexpected error: %v", tt.radius, err)
			}
			if ball.Width != 2*tt.radius || ball.Height != 2*tt.radius {
				t.Errorf("size = (%v, %v), expected %v", ball.Width, ball.Height, 2*tt.radius)
			}
		})
	}
}

func TestBall_SetRadiusKeepsSize(t *testing.T) {
	ball, _ := NewBall(physics.Vector2D{}, 10)
	if err := ball.SetRadius(12.5); err != nil {
		t.Fatalf("SetRadius() error = %v", err)
	}
	if ball.Width != 25 || ball.Height != 25 {
		t.Errorf("size after SetRadius = (%v, %v), expected 25", ball.Width, ball.Height)
	}
	if err := ball.SetRadius(0); err == nil {
		t.Error("SetRadius(0) should fail")
	}
	if ball.Radius != 12.5 {
		t.Errorf("Radius after failed SetRadius = %v, expected 12.5", ball.Radius)
	}
}

func TestBall_UpdateTopWallScenario(t *testing.T) {
	ball, _ := NewBall(physics.Vector2D{X: 400, Y: 300}, 25)
	ball.Velocity = physics.Vector2D{X: 0.3, Y: -0.3}

	crossed := ball.Update(1100, 800, 600, 540)

	if crossed {
		t.Error("Update() reported a death-line crossing at the top wall")
	}
	if ball.Velocity.Y != 0.3 {
		t.Errorf("Velocity.Y = %v, expected 0.3", ball.Velocity.Y)
	}
	if ball.Position.Y != 25 {
		t.Errorf("Position.Y = %v, expected 25", ball.Position.Y)
	}
}

func TestBall_Update(t *testing.T) {
	tests := []struct {
		name        string
		position    physics.Vector2D
		velocity    physics.Vector2D
		dt          float64
		expectedPos physics.Vector2D
		expectedVel physics.Vector2D
		crossed     bool
	}{
		{
			name:        "free_flight",
			position:    physics.Vector2D{X: 100, Y: 100},
			velocity:    physics.Vector2D{X: 100, Y: 50},
			dt:          0.5,
			expectedPos: physics.Vector2D{X: 150, Y: 125},
			expectedVel: physics.Vector2D{X: 100, Y: 50},
		},
		{
			name:        "resting_on_left_wall_moving_out",
			position:    physics.Vector2D{X: 10, Y: 100},
			velocity:    physics.Vector2D{X: -100, Y: 0},
			dt:          0.1,
			expectedPos: physics.Vector2D{X: 30, Y: 100},
			expectedVel: physics.Vector2D{X: 100, Y: 0},
		},
		{
			name:        "right_wall_after_advance",
			position:    physics.Vector2D{X: 770, Y: 100},
			velocity:    physics.Vector2D{X: 200, Y: 0},
			dt:          0.1,
			expectedPos: physics.Vector2D{X: 780, Y: 100},
			expectedVel: physics.Vector2D{X: -200, Y: 0},
		},
		{
			name:        "zero_component_never_bounces",
			position:    physics.Vector2D{X: 10, Y: 100},
			velocity:    physics.Vector2D{X: 0, Y: 10},
			dt:          1,
			expectedPos: physics.Vector2D{X: 20, Y: 110},
			expectedVel: physics.Vector2D{X: 0, Y: 10},
		},
		{
			name:        "crosses_death_line",
			position:    physics.Vector2D{X: 400, Y: 530},
			velocity:    physics.Vector2D{X: 0, Y: 100},
			dt:          0.2,
			expectedPos: physics.Vector2D{X: 400, Y: 550},
			expectedVel: physics.Vector2D{X: 0, Y: 100},
			crossed:     true,
		},
		{
			name:        "crosses_death_line_and_hits_floor",
			position:    physics.Vector2D{X: 400, Y: 560},
			velocity:    physics.Vector2D{X: 0, Y: 300},
			dt:          0.5,
			expectedPos: physics.Vector2D{X: 400, Y: 580},
			expectedVel: physics.Vector2D{X: 0, Y: -300},
			crossed:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ball, _ := NewBall(tt.position, 20)
			ball.Velocity = tt.velocity

			crossed := ball.Update(tt.dt, 800, 600, 540)

			if crossed != tt.crossed {
				t.Errorf("Update() = %v, expected %v", crossed, tt.crossed)
			}
			if !ball.Position.ApproxEquals(tt.expectedPos, 1e-9) {
				t.Errorf("Position = %v, expected %v", ball.Position, tt.expectedPos)
			}
			if !ball.Velocity.ApproxEquals(tt.expectedVel, 1e-9) {
				t.Errorf("Velocity = %v, expected %v", ball.Velocity, tt.expectedVel)
			}
		})
	}
}

func TestBall_UpdateStaysInsideField(t *testing.T) {
	const (
		width  = 800.0
		height = 600.0
		radius = 25.0
	)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		ball, _ := NewBall(physics.Vector2D{
			X: radius + rng.Float64()*(width-2*radius),
			Y: radius + rng.Float64()*(height-2*radius),
		}, radius)
		// displacement per tick stays below the field size
		ball.Velocity = physics.Vector2D{
			X: (rng.Float64()*2 - 1) * width * 0.99,
			Y: (rng.Float64()*2 - 1) * height * 0.99,
		}

		ball.Update(1, width, height, 0.9*height)

		if ball.Position.X < radius || ball.Position.X > width-radius ||
			ball.Position.Y < radius || ball.Position.Y > height-radius {
			t.Fatalf("iteration %d: position %v escaped the field", i, ball.Position)
		}
	}
}

func TestBall_Collision(t *testing.T) {
	ball, _ := NewBall(physics.Vector2D{X: 50, Y: 50}, 5)
	ball.Velocity = physics.Vector2D{X: 3, Y: 4}

	ball.Collision(physics.Vector2D{})
	if !ball.Velocity.Equals(physics.Vector2D{X: 3, Y: 4}) {
		t.Errorf("Collision(zero) changed velocity to %v", ball.Velocity)
	}

	ball.Collision(physics.Vector2D{X: 0, Y: -1})
	if !ball.Velocity.ApproxEquals(physics.Vector2D{X: 3, Y: -4}, 1e-12) {
		t.Errorf("Collision(up) velocity = %v, expected (3, -4)", ball.Velocity)
	}
}
