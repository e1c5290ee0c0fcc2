// pkg/audio/tones.go
package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// SampleRate is the rate every effect is synthesised at
const SampleRate = beep.SampleRate(44100)

// Sound names one of the game's effects
type Sound int

const (
	SoundBrick Sound = iota
	SoundLifeLost
	SoundWin
)

func (s Sound) String() string {
	switch s {
	case SoundBrick:
		return "brick"
	case SoundLifeLost:
		return "life_lost"
	case SoundWin:
		return "win"
	default:
		return "unknown"
	}
}

// Effect timings
const (
	BrickDuration    = 60 * time.Millisecond
	LifeLostDuration = 250 * time.Millisecond
	ArpeggioNote     = 90 * time.Millisecond

	brickFrequency    = 1318.5 // E6
	lifeLostFrequency = 110.0  // A2
	release           = 20 * time.Millisecond
)

// arpeggio is C5 E5 G5 C6
var arpeggio = []float64{523.25, 659.25, 783.99, 1046.5}

// Wave is an oscillator shape
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
)

type oscillator struct {
	freq     float64
	phase    float64
	position int
	length   int
	wave     Wave
	rate     beep.SampleRate
}

// NewOscillator streams a tone of freq for d, then drains.
func NewOscillator(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return &oscillator{freq: freq, length: rate.N(d), wave: wave, rate: rate}
}

func (o *oscillator) Stream(samples [][2]float64) (int, bool) {
	if o.position >= o.length {
		return 0, false
	}
	n := 0
	for i := range samples {
		if o.position >= o.length {
			break
		}
		var v float64
		switch o.wave {
		case WaveSquare:
			v = 1
			if o.phase >= 0.5 {
				v = -1
			}
		default:
			v = math.Sin(2 * math.Pi * o.phase)
		}
		samples[i][0], samples[i][1] = v, v

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
		n++
	}
	return n, true
}

func (o *oscillator) Err() error { return nil }

// fadeOut ramps the last part of a fixed-length stream down to silence so
// tones end without a click.
type fadeOut struct {
	streamer beep.Streamer
	position int
	length   int
	fade     int
}

func newFadeOut(s beep.Streamer, total, fade time.Duration, rate beep.SampleRate) beep.Streamer {
	return &fadeOut{streamer: s, length: rate.N(total), fade: rate.N(fade)}
}

func (f *fadeOut) Stream(samples [][2]float64) (int, bool) {
	n, ok := f.streamer.Stream(samples)
	start := f.length - f.fade
	for i := 0; i < n; i++ {
		if f.position >= start && f.fade > 0 {
			gain := float64(f.length-f.position) / float64(f.fade)
			if gain < 0 {
				gain = 0
			}
			samples[i][0] *= gain
			samples[i][1] *= gain
		}
		f.position++
	}
	return n, ok
}

func (f *fadeOut) Err() error { return f.streamer.Err() }

// withVolume scales s linearly; zero or less is silent.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// Tone builds a fresh streamer for sound. Streamers are single use.
func Tone(sound Sound, rate beep.SampleRate) beep.Streamer {
	switch sound {
	case SoundBrick:
		sine, err := generators.SineTone(rate, brickFrequency)
		if err != nil {
			return beep.Silence(rate.N(BrickDuration))
		}
		return newFadeOut(beep.Take(rate.N(BrickDuration), sine), BrickDuration, release, rate)
	case SoundLifeLost:
		square := NewOscillator(lifeLostFrequency, LifeLostDuration, WaveSquare, rate)
		return withVolume(newFadeOut(square, LifeLostDuration, 4*release, rate), 0.4)
	case SoundWin:
		notes := make([]beep.Streamer, 0, len(arpeggio))
		for _, freq := range arpeggio {
			osc := NewOscillator(freq, ArpeggioNote, WaveSine, rate)
			notes = append(notes, newFadeOut(osc, ArpeggioNote, release, rate))
		}
		return beep.Seq(notes...)
	default:
		return beep.Silence(0)
	}
}

// Duration reports how long sound plays
func Duration(sound Sound) time.Duration {
	switch sound {
	case SoundBrick:
		return BrickDuration
	case SoundLifeLost:
		return LifeLostDuration
	case SoundWin:
		return time.Duration(len(arpeggio)) * ArpeggioNote
	default:
		return 0
	}
}
