//go:build linux

package chime

import (
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

func play(pcm []int16) {
	go playPulse(pcm)
}

func playPulse(pcm []int16) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("miclock"))
	if err != nil {
		return
	}
	defer c.Close()

	// stereo frames from the mono tone
	i := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := 0
		for ; n+1 < len(buf) && i < len(pcm); n += 2 {
			buf[n], buf[n+1] = pcm[i], pcm[i]
			i++
		}
		if n == 0 {
			return 0, pulse.EndOfData
		}
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
