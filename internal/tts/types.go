// Package tts provides speech-synthesis and audio playback utilities
// outside the analysis loop.
package tts

import (
	"context"
	"errors"
)

// Playback failure taxonomy. All of these surface to the caller; no
// retry happens here.
var (
	ErrSynthesisUnsupported = errors.New("speech synthesis not supported on this platform")
	ErrSynthesisError       = errors.New("speech synthesis failed")
	ErrAssetDecode          = errors.New("audio asset fetch or decode failed")
)

// Provider is a speech-synthesis backend. Callers must check Health (or
// handle ErrSynthesisUnsupported) before synthesizing.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to PCM audio.
	Synthesize(ctx context.Context, text string) (*Clip, error)

	// Health checks if the provider is available.
	Health(ctx context.Context) error
}

// Clip is decoded mono PCM audio ready for a playback sink.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Sink plays a decoded clip, blocking until playback ends.
type Sink interface {
	Play(ctx context.Context, clip *Clip) error
}
