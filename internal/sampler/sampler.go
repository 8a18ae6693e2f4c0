package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/normanking/visage/internal/bus"
	"github.com/rs/zerolog"
)

// frameInterval is the analysis polling period, matching the host's
// animation-frame rate.
const frameInterval = 16 * time.Millisecond

// Sampler polls the capture source once per animation frame and derives
// volume and band energies from the latest sample window. Audio/video
// sync is best-effort per-frame polling, nothing tighter.
type Sampler struct {
	config *Config
	source Source

	mu          sync.Mutex
	initialized bool
	listening   bool
	cancel      context.CancelFunc
	window      []float32

	transform *fft
	bins      []float64

	vad      *VAD
	eventBus *bus.EventBus
	logger   zerolog.Logger
}

// NewSampler creates a sampler over the given capture source.
func NewSampler(config *Config, source Source, eventBus *bus.EventBus, logger zerolog.Logger) *Sampler {
	if config == nil {
		config = DefaultConfig()
	}
	vadConfig := DefaultVADConfig()
	if config.VADThreshold > 0 {
		vadConfig.Threshold = config.VADThreshold
	}
	return &Sampler{
		config:   config,
		source:   source,
		vad:      NewVAD(vadConfig),
		eventBus: eventBus,
		logger:   logger.With().Str("component", "sampler").Logger(),
	}
}

// Initialize allocates the transform and its frequency-bin buffer. Safe
// to call more than once; repeat calls are no-ops.
func (s *Sampler) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}

	s.transform = newFFT(s.config.FFTSize)
	s.bins = make([]float64, s.config.FFTSize/2)
	s.window = make([]float32, 0, s.config.FFTSize)
	s.initialized = true

	s.logger.Info().
		Int("fft_size", s.config.FFTSize).
		Int("sample_rate", s.config.SampleRate).
		Msg("Sampler initialized")
}

// StartListening begins capture and per-frame analysis. Either callback
// may be nil; band energies are only computed when a frequency callback
// is registered. Capture failures surface as ErrPermissionDenied or
// ErrDeviceUnavailable from the source.
func (s *Sampler) StartListening(onVolume VolumeCallback, onFrequency FrequencyCallback) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	if s.listening {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	chunks, err := s.source.Start(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("start capture: %w", err)
	}

	s.mu.Lock()
	s.listening = true
	s.cancel = cancel
	s.window = s.window[:0]
	s.mu.Unlock()

	go s.consumeChunks(ctx, chunks)
	go s.analysisLoop(ctx, onVolume, onFrequency)

	if s.eventBus != nil {
		s.eventBus.Publish(bus.Event{Type: bus.EventTypeListeningStarted})
	}
	s.logger.Info().Msg("Listening started")
	return nil
}

// StopListening cancels the analysis loop and disconnects the source.
// Safe to call repeatedly and when never started.
func (s *Sampler) StopListening() {
	s.mu.Lock()
	cancel := s.cancel
	wasListening := s.listening
	s.cancel = nil
	s.listening = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasListening {
		s.source.Stop()
		s.vad.Reset()
		if s.eventBus != nil {
			s.eventBus.Publish(bus.Event{Type: bus.EventTypeListeningStopped})
		}
		s.logger.Info().Msg("Listening stopped")
	}
}

// IsListening reports whether the analysis loop is running.
func (s *Sampler) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// consumeChunks keeps the rolling sample window fresh and feeds the VAD.
func (s *Sampler) consumeChunks(ctx context.Context, chunks <-chan Chunk) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			s.pushSamples(chunk.Samples)
			s.detectSpeech(chunk)
		}
	}
}

func (s *Sampler) pushSamples(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.config.FFTSize
	s.window = append(s.window, samples...)
	if len(s.window) > size {
		s.window = s.window[len(s.window)-size:]
	}
}

func (s *Sampler) detectSpeech(chunk Chunk) {
	if s.eventBus == nil {
		return
	}
	result := s.vad.Process(chunk.Samples)
	if result.Started {
		s.eventBus.Publish(bus.Event{
			Type: bus.EventTypeSpeechStart,
			Data: map[string]any{"timestamp": chunk.Timestamp},
		})
	}
	if result.Ended {
		s.eventBus.Publish(bus.Event{
			Type: bus.EventTypeSpeechEnd,
			Data: map[string]any{"timestamp": chunk.Timestamp},
		})
	}
}

// analysisLoop runs the per-frame measurement and callback dispatch.
// Callbacks are invoked synchronously in frame order.
func (s *Sampler) analysisLoop(ctx context.Context, onVolume VolumeCallback, onFrequency FrequencyCallback) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			volume, bands, ok := s.measure(onFrequency != nil)
			if !ok {
				continue
			}
			if onVolume != nil {
				onVolume(volume)
			}
			if onFrequency != nil {
				onFrequency(bands)
			}
		}
	}
}

// measure computes volume and, when wanted, band energies from the
// latest window.
func (s *Sampler) measure(wantBands bool) (float32, BandEnergies, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bands BandEnergies
	if len(s.window) == 0 {
		return 0, bands, false
	}

	s.transform.transform(s.window)
	s.transform.magnitudes(s.bins)

	var sum float64
	for _, m := range s.bins {
		sum += m
	}
	volume := float32(sum / float64(len(s.bins)))

	if wantBands {
		nyquist := float64(s.config.SampleRate) / 2
		binCount := float64(len(s.bins))
		for i, edge := range s.config.Bands {
			lo := int(edge[0] / nyquist * binCount)
			hi := int(edge[1] / nyquist * binCount)
			if hi > len(s.bins) {
				hi = len(s.bins)
			}
			if lo >= hi {
				continue
			}
			var bandSum float64
			for k := lo; k < hi; k++ {
				// Mirror the byte-range quantization of the platform
				// analyser: scale to 0-255 then back to [0,1].
				bandSum += float64(int(s.bins[k]*255)) / 255
			}
			bands[i] = float32(bandSum / float64(hi-lo))
		}
	}

	return volume, bands, true
}
