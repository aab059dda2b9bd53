package chime

import "testing"

func TestRenderLength(t *testing.T) {
	single := render(shape{freq: 1000, dur: 0.01, volume: 0.5, decay: 10, pulses: 1})
	if len(single) != 441 {
		t.Errorf("single pulse = %d samples, want 441", len(single))
	}
	double := render(shape{freq: 1000, dur: 0.01, volume: 0.5, decay: 10, pulses: 2, gap: 0.01})
	if len(double) != 3*441 {
		t.Errorf("double pulse = %d samples, want %d", len(double), 3*441)
	}
	for i := 441; i < 882; i++ {
		if double[i] != 0 {
			t.Fatalf("gap sample %d = %d", i, double[i])
		}
	}
}

func TestRenderDecays(t *testing.T) {
	pcm := render(shape{freq: 1000, dur: 0.1, volume: 1, decay: 50, pulses: 1})
	peak := func(from, to int) int16 {
		var m int16
		for _, s := range pcm[from:to] {
			if s < 0 {
				s = -s
			}
			m = max(m, s)
		}
		return m
	}
	head, tail := peak(0, 441), peak(len(pcm)-441, len(pcm))
	if tail >= head/10 {
		t.Errorf("tail peak %d not well below head peak %d", tail, head)
	}
}

func TestEveryToneRenders(t *testing.T) {
	for _, tone := range []Tone{On, Off, Missing} {
		if len(samples(tone)) == 0 {
			t.Errorf("tone %d rendered empty", tone)
		}
	}
	if len(samples(Missing)) <= len(samples(Off)) {
		t.Error("missing tone should be the longer double pulse")
	}
}
