//go:build !cgo

package doctor

import "time"

type noProber struct{}

func newProber() Prober { return noProber{} }

func (noProber) Probe(string, time.Duration) (ProbeResult, error) {
	return ProbeResult{}, ErrProbeUnsupported
}
