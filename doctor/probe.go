package doctor

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

var ErrProbeUnsupported = errors.New("doctor: capture probe unsupported")

// ProbeResult is what a short capture from one device produced.
type ProbeResult struct {
	Device string
	Frames uint64
	RMS    float64 // 0..1 over all captured samples
}

// DBFS converts RMS to decibels relative to full scale.
func (p ProbeResult) DBFS() float64 {
	if p.RMS <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(p.RMS)
}

// Prober records from the device with the given UID for d. An empty UID
// means the system default input.
type Prober interface {
	Probe(uid string, d time.Duration) (ProbeResult, error)
}

// levelMeter accumulates signed 16-bit little-endian mono samples.
type levelMeter struct {
	sumSquares float64
	samples    uint64
}

func (m *levelMeter) add(pcm []byte) {
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768
		m.sumSquares += s * s
		m.samples++
	}
}

func (m *levelMeter) rms() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSquares / float64(m.samples))
}
