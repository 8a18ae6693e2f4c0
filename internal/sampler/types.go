// Package sampler wraps the platform audio-capture primitive and derives
// per-animation-frame signal measurements: overall volume and five
// frequency-band energies that approximate mouth-shape activation.
package sampler

import (
	"context"
	"errors"
	"time"
)

// Capture failure taxonomy. These surface to the caller unretried; retry
// policy belongs to the orchestration layer.
var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("audio capture device unavailable")
	ErrNotInitialized    = errors.New("sampler not initialized")
)

// Chunk is one block of captured PCM samples, mono, normalized to [-1,1].
type Chunk struct {
	Samples    []float32
	SampleRate int
	Timestamp  time.Time
}

// Source is the platform capture primitive. Start must fail with
// ErrPermissionDenied or ErrDeviceUnavailable (possibly wrapped) when
// capture cannot begin.
type Source interface {
	Start(ctx context.Context) (<-chan Chunk, error)
	Stop()
}

// BandEnergies holds the five per-band average energies in [0,1],
// ordered low to high frequency.
type BandEnergies [5]float32

// BandEdges are the frequency band boundaries in Hz, low edge inclusive.
// Five bands: 0-500, 500-1500, 1500-3000, 3000-5000, 5000-8000.
type BandEdges [5][2]float64

// DefaultBandEdges returns the standard band layout.
func DefaultBandEdges() BandEdges {
	return BandEdges{
		{0, 500},
		{500, 1500},
		{1500, 3000},
		{3000, 5000},
		{5000, 8000},
	}
}

// Config holds sampler parameters. The transform size is fixed at
// construction; 2048 points gives roughly 10 Hz per bin at typical
// sample rates.
type Config struct {
	SampleRate   int       `mapstructure:"sample_rate"`
	FFTSize      int       `mapstructure:"fft_size"`
	VADThreshold float64   `mapstructure:"vad_threshold"`
	Bands        BandEdges `mapstructure:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:   48000,
		FFTSize:      2048,
		VADThreshold: 0.01,
		Bands:        DefaultBandEdges(),
	}
}

// VolumeCallback receives the overall volume in [0,1] once per frame.
type VolumeCallback func(volume float32)

// FrequencyCallback receives band energies once per frame.
type FrequencyCallback func(bands BandEnergies)
