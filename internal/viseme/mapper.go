// Package viseme converts coarse audio signal measurements into smoothed
// mouth-shape weights. Five phoneme channels (A, I, U, E, O) plus neutral
// approximate mouth shape from frequency-band energy; there is no acoustic
// phoneme recognition here.
package viseme

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/normanking/visage/internal/actuator"
	"github.com/rs/zerolog"
)

// Channel names driven by the mapper. These must stay disjoint from the
// expression engine's channel set on any given mesh.
const (
	ChannelA       = "A"
	ChannelI       = "I"
	ChannelU       = "U"
	ChannelE       = "E"
	ChannelO       = "O"
	ChannelNeutral = "neutral"
)

// PhonemeChannels lists the five phoneme channels in band order
// (O, A, E, I, U matches the ascending frequency-band layout).
var PhonemeChannels = [5]string{ChannelO, ChannelA, ChannelE, ChannelI, ChannelU}

// Bands holds per-band average energy in [0,1], ordered low to high
// frequency: O (0-500 Hz), A (500-1500), E (1500-3000), I (3000-5000),
// U (5000-8000).
type Bands [5]float32

// DefaultSmoothingFactor is the per-call exponential smoothing rate.
const DefaultSmoothingFactor = 0.15

// DefaultNoiseFloor is subtracted from each band before it becomes a
// channel target.
const DefaultNoiseFloor = 0.1

// minSequenceStep floors the sequence ticker interval; time.NewTicker
// panics on a non-positive duration.
const minSequenceStep = 16 * time.Millisecond

// Mapper owns the six channel weights and applies one exponential
// smoothing step per update call: current += (target - current) * factor.
// Weights are independent actuators, not a distribution; they need not
// sum to 1.
type Mapper struct {
	mu sync.Mutex

	current map[string]float32
	targets map[string]float32

	smoothingFactor float32
	noiseFloor      float32

	binder *actuator.Binder
	logger zerolog.Logger

	activeSeq *SequenceHandle
}

// NewMapper creates a mapper resting at neutral.
func NewMapper(binder *actuator.Binder, logger zerolog.Logger) *Mapper {
	m := &Mapper{
		current:         make(map[string]float32, 6),
		targets:         make(map[string]float32, 6),
		smoothingFactor: DefaultSmoothingFactor,
		noiseFloor:      DefaultNoiseFloor,
		binder:          binder,
		logger:          logger.With().Str("component", "viseme").Logger(),
	}
	m.resetLocked()
	return m
}

// SetSmoothingFactor changes the convergence rate for subsequent updates.
// Larger values converge faster; the value is clamped to [0,1].
func (m *Mapper) SetSmoothingFactor(f float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smoothingFactor = clamp(f, 0, 1)
}

// SetNoiseFloor changes the per-band energy floor subtraction.
func (m *Mapper) SetNoiseFloor(f float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noiseFloor = clamp(f, 0, 1)
}

// UpdateFromVolume sets a coarse single-channel target from overall
// volume: A opens with volume, neutral fades as the mouth opens.
func (m *Mapper) UpdateFromVolume(volume float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mouthOpenness := minf(1, volume*2)
	m.targets[ChannelA] = mouthOpenness
	m.targets[ChannelNeutral] = maxf(0, 1-mouthOpenness)

	m.smoothLocked()
	m.commitLocked()
}

// UpdateFromFrequencyBands sets each phoneme channel's target from its
// band energy minus the noise floor; neutral trends toward
// 1 - 2*mean(bands).
func (m *Mapper) UpdateFromFrequencyBands(bands Bands) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total float32
	for i, name := range PhonemeChannels {
		m.targets[name] = maxf(0, bands[i]-m.noiseFloor)
		total += bands[i]
	}
	mean := total / float32(len(bands))
	m.targets[ChannelNeutral] = maxf(0, 1-mean*2)

	m.smoothLocked()
	m.commitLocked()
}

// SetMorphWeight clamps the target to [0,1] and applies one smoothing
// step to that single channel.
func (m *Mapper) SetMorphWeight(name string, weight float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.current[name]; !ok {
		return
	}

	m.targets[name] = clamp(weight, 0, 1)
	m.current[name] += (m.targets[name] - m.current[name]) * m.smoothingFactor
	m.commitLocked()
}

// PlayPhoneme snaps the named channel fully open and closes every other
// channel. "neutral" closes the mouth entirely.
func (m *Mapper) PlayPhoneme(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.current {
		m.current[ch] = 0
		m.targets[ch] = 0
	}

	if _, ok := m.current[name]; ok {
		m.current[name] = 1
		m.targets[name] = 1
	} else {
		m.current[ChannelNeutral] = 1
		m.targets[ChannelNeutral] = 1
	}

	m.commitLocked()
}

// Reset hard-resets all weights to the neutral rest pose.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	m.commitLocked()
}

func (m *Mapper) resetLocked() {
	for _, name := range PhonemeChannels {
		m.current[name] = 0
		m.targets[name] = 0
	}
	m.current[ChannelNeutral] = 1
	m.targets[ChannelNeutral] = 1
}

// Weights returns a snapshot of the current smoothed weights.
func (m *Mapper) Weights() map[string]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float32, len(m.current))
	for name, w := range m.current {
		out[name] = w
	}
	return out
}

// Weight returns a single channel's current smoothed weight.
func (m *Mapper) Weight(name string) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current[name]
}

func (m *Mapper) smoothLocked() {
	for name, target := range m.targets {
		m.current[name] += (target - m.current[name]) * m.smoothingFactor
	}
}

func (m *Mapper) commitLocked() {
	if m.binder == nil {
		return
	}
	out := make(map[string]float32, len(m.current))
	for name, w := range m.current {
		out[name] = w
	}
	m.binder.Apply(out)
}

// SequenceHandle identifies one scheduled phoneme sequence and allows
// cancelling it before it runs out.
type SequenceHandle struct {
	ID     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops any steps that have not fired yet.
func (h *SequenceHandle) Cancel() {
	h.cancel()
}

// Done is closed when the sequence has finished or been cancelled.
func (h *SequenceHandle) Done() <-chan struct{} {
	return h.done
}

// PlayPhonemeSequence schedules PlayPhoneme calls at fixed step offsets.
// Starting a new sequence cancels any sequence still in flight, so two
// schedules never fight over the mouth.
func (m *Mapper) PlayPhonemeSequence(phonemes []string, step time.Duration) *SequenceHandle {
	if step <= 0 {
		step = minSequenceStep
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &SequenceHandle{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	if m.activeSeq != nil {
		m.activeSeq.cancel()
	}
	m.activeSeq = handle
	m.mu.Unlock()

	m.logger.Debug().
		Str("sequence_id", handle.ID).
		Int("phonemes", len(phonemes)).
		Dur("step", step).
		Msg("Phoneme sequence started")

	go func() {
		defer close(handle.done)

		ticker := time.NewTicker(step)
		defer ticker.Stop()

		for i := 0; i < len(phonemes); i++ {
			m.PlayPhoneme(phonemes[i])
			if i == len(phonemes)-1 {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return handle
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
