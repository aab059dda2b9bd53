// Package chime plays the short tones that confirm a hotkey toggle, so the
// lock can be flipped without looking at the menu bar.
package chime

import (
	"math"
	"sync"
	"sync/atomic"
)

type Tone int

const (
	On      Tone = iota // lock enabled
	Off                 // lock disabled
	Missing             // lock enabled but the locked device is not connected
)

const sampleRate = 44100

type shape struct {
	freq   float64
	dur    float64 // seconds per pulse
	volume float64
	decay  float64
	pulses int
	gap    float64
}

var shapes = map[Tone]shape{
	On:      {freq: 1200, dur: 0.06, volume: 0.5, decay: 60, pulses: 1},
	Off:     {freq: 800, dur: 0.08, volume: 0.5, decay: 40, pulses: 1},
	Missing: {freq: 350, dur: 0.08, volume: 0.6, decay: 30, pulses: 2, gap: 0.05},
}

var (
	disabled   atomic.Bool
	renderOnce sync.Once
	rendered   map[Tone][]int16
)

func Disable() { disabled.Store(true) }

// Play starts the tone and returns immediately.
func Play(t Tone) {
	if disabled.Load() {
		return
	}
	pcm := samples(t)
	if len(pcm) == 0 {
		return
	}
	play(pcm)
}

func samples(t Tone) []int16 {
	renderOnce.Do(func() {
		rendered = make(map[Tone][]int16, len(shapes))
		for tone, sh := range shapes {
			rendered[tone] = render(sh)
		}
	})
	return rendered[t]
}

// render produces mono 16-bit PCM at sampleRate: decaying sine pulses
// separated by silence.
func render(sh shape) []int16 {
	n := int(float64(sampleRate) * sh.dur)
	gap := int(float64(sampleRate) * sh.gap)
	out := make([]int16, 0, sh.pulses*n+(sh.pulses-1)*gap)
	for p := 0; p < sh.pulses; p++ {
		if p > 0 {
			out = append(out, make([]int16, gap)...)
		}
		for i := 0; i < n; i++ {
			t := float64(i) / sampleRate
			env := math.Exp(-t * sh.decay)
			out = append(out, int16(math.Sin(2*math.Pi*sh.freq*t)*32767*sh.volume*env))
		}
	}
	return out
}
