package broadcast

import (
	"encoding/binary"
	"math"
)

const (
	// FrameIndexBytes is the width of the frame index prefix on the wire
	FrameIndexBytes = 2

	// FramePeriod is the number of unique frame indices before wrap-around
	FramePeriod = 1 << (8 * FrameIndexBytes)

	// envelope length: the amplitude modulation repeats every 64 frames
	envelopePeriod = 64
)

// NextFrame returns the frame index following n. uint16 arithmetic wraps
// at exactly FramePeriod.
func NextFrame(n uint16) uint16 {
	return n + 1
}

// Generator maps a frame index to an opaque frame payload.
type Generator interface {
	Frame(n uint16) []byte
}

// WaveformGenerator produces synthetic sine frames. It is stateless and
// safe for concurrent use; the same index always yields the same bytes.
//
// Payload layout: 2-byte little-endian frame index, then SampleCount pairs
// of (delta, sample) as little-endian float64. Receivers use the index
// prefix to detect loss or reordering without external sequence tracking.
type WaveformGenerator struct {
	SampleCount int
	SignalHz    float64
}

// NewWaveformGenerator creates a generator with the given sample count and
// sine frequency.
func NewWaveformGenerator(sampleCount int, signalHz float64) *WaveformGenerator {
	return &WaveformGenerator{SampleCount: sampleCount, SignalHz: signalHz}
}

// Frame generates the payload for frame n.
func (g *WaveformGenerator) Frame(n uint16) []byte {
	buf := make([]byte, FrameIndexBytes+g.SampleCount*16)
	binary.LittleEndian.PutUint16(buf, n)

	// Amplitude rides a slow sawtooth envelope keyed by the frame index.
	amplitude := math.Mod(float64(n)/envelopePeriod, 1) + 0.5

	// Samples span t in [-1, 1]; the time delta between samples is constant.
	dt := 2 / float64(g.SampleCount-1)

	off := FrameIndexBytes
	for i := 0; i < g.SampleCount; i++ {
		t := -1 + dt*float64(i)
		y := amplitude * math.Sin(t*2*math.Pi*g.SignalHz)
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(dt))
		binary.LittleEndian.PutUint64(buf[off+8:], math.Float64bits(y))
		off += 16
	}

	return buf
}
