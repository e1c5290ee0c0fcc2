// pkg/audio/cues.go
package audio

import (
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/entity"
)

// SnapshotCues derives the sounds for the step from prev to next. Remote
// clients only see snapshots, not events, so they play from this instead
// of Attach.
func SnapshotCues(prev, next *engine.GameState) []Sound {
	if prev == nil || next == nil {
		return nil
	}

	var cues []Sound
	destroyed := make(map[entity.ID]bool, len(prev.Bricks))
	for _, b := range prev.Bricks {
		destroyed[b.ID] = b.Destroyed
	}
	for _, b := range next.Bricks {
		if was, known := destroyed[b.ID]; b.Destroyed && known && !was {
			cues = append(cues, SoundBrick)
		}
	}

	if next.Lives < prev.Lives {
		cues = append(cues, SoundLifeLost)
	}
	over := engine.StatusOver.String()
	if next.Status == over && prev.Status != over && next.Outcome == engine.OutcomeWon.String() {
		cues = append(cues, SoundWin)
	}
	return cues
}

// Observe plays the cues between the previous observed snapshot and state
func (p *Player) Observe(state *engine.GameState) {
	p.mu.Lock()
	prev := p.last
	p.last = state
	p.mu.Unlock()

	for _, s := range SnapshotCues(prev, state) {
		p.Play(s)
	}
}
