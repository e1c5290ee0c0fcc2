// pkg/engine/race_condition_test.go
package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/physics"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
)

// TestGameRaceCondition drives the game from one goroutine while others post
// detections, read snapshots and issue control calls. Run with -race.
func TestGameRaceCondition(t *testing.T) {
	game := newTestGame(t, nil)
	game.Start()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				game.Update()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		track := tracking.Size{Width: 640, Height: 480}
		for i := 0; i < 100; i++ {
			p := physics.Vector2D{X: float64(i % 640), Y: 400}
			game.Mailbox.Post(tracking.PointDetection(p, track, tracking.RightMouthCorner, tracking.LeftMouthCorner))
			time.Sleep(100 * time.Microsecond)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			state := game.GetGameState()
			if len(state.Bricks) != 50 {
				t.Errorf("snapshot has %d bricks", len(state.Bricks))
				return
			}
			_ = game.Score()
			_ = game.Lives()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			game.TogglePause()
			game.ToggleMirror()
			if err := game.Resize(800+float64(i%2)*200, 600); err != nil {
				t.Errorf("Resize() error = %v", err)
				return
			}
			time.Sleep(500 * time.Microsecond)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()

	if game.Score() < 0 || game.Score() > game.World.Board.Len() {
		t.Errorf("Score() = %d out of range", game.Score())
	}
}
