// pkg/audio/player.go
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/event"
	"github.com/opd-ai/go-facebreak/pkg/logging"
)

// Player plays effects for session events. Without a sound device every
// call is a no-op apart from the play counters, so the game runs silent.
type Player struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	initialized bool
	played      map[Sound]int
	subs        []*event.Subscription
	last        *engine.GameState
	logger      *logging.Logger
}

// NewPlayer creates a player at volume (0..1). Call Initialize to open
// the speaker.
func NewPlayer(volume float64, logger *logging.Logger) *Player {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Player{
		mixer:  &beep.Mixer{},
		volume: volume,
		played: make(map[Sound]int),
		logger: logger.With("component", "audio"),
	}
}

// Initialize opens the speaker. Calling it twice is a no-op.
func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Enabled reports whether a speaker is open
func (p *Player) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Play queues sound on the mixer
func (p *Player) Play(sound Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.played[sound]++
	if !p.initialized {
		return
	}
	tone := withVolume(Tone(sound, SampleRate), p.volume)
	speaker.Lock()
	p.mixer.Add(tone)
	speaker.Unlock()
}

// Played returns how often sound was requested
func (p *Player) Played(sound Sound) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played[sound]
}

// Attach plays a tone for destroyed bricks, lost lives and a won game.
func (p *Player) Attach(bus *event.Bus) {
	subs := []*event.Subscription{
		bus.Subscribe(event.BrickDestroyed, func(event.Event) { p.Play(SoundBrick) }),
		bus.Subscribe(event.LifeLost, func(event.Event) { p.Play(SoundLifeLost) }),
		bus.Subscribe(event.GameEnded, func(e event.Event) {
			if end, ok := e.(*event.EndEvent); ok && end.Won {
				p.Play(SoundWin)
			}
		}),
	}

	p.mu.Lock()
	p.subs = append(p.subs, subs...)
	p.mu.Unlock()
}

// Detach removes every subscription made by Attach
func (p *Player) Detach() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}

// Close detaches and silences the mixer. The speaker itself stays open.
func (p *Player) Close() {
	p.Detach()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	p.initialized = false
	p.logger.Debug(context.Background(), "audio closed")
}
