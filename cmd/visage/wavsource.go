package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/normanking/visage/internal/sampler"
	"github.com/normanking/visage/internal/tts"
)

// chunkSamples is the block size streamed to the sampler, ~21ms at 48kHz.
const chunkSamples = 1024

// wavSource replays a WAV file in real time as a capture source, for
// driving lip sync without a microphone.
type wavSource struct {
	samples    []float32
	sampleRate int
	cancel     context.CancelFunc
}

func newWAVSource(path string) (*wavSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	clip, err := tts.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &wavSource{samples: clip.Samples, sampleRate: clip.SampleRate}, nil
}

func (w *wavSource) Start(ctx context.Context) (<-chan sampler.Chunk, error) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	out := make(chan sampler.Chunk, 4)
	interval := time.Duration(chunkSamples) * time.Second / time.Duration(w.sampleRate)

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for offset := 0; offset < len(w.samples); offset += chunkSamples {
			end := offset + chunkSamples
			if end > len(w.samples) {
				end = len(w.samples)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			// The send is guarded too, so a stalled consumer cannot pin
			// this goroutine past Stop.
			select {
			case <-ctx.Done():
				return
			case out <- sampler.Chunk{
				Samples:    w.samples[offset:end],
				SampleRate: w.sampleRate,
				Timestamp:  time.Now(),
			}:
			}
		}
	}()

	return out, nil
}

func (w *wavSource) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}
