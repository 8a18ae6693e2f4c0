package sampler

import (
	"math"
	"sync"
	"time"
)

// VAD detects voice activity from RMS energy with a short smoothing
// window. It drives the speech start/end events on the bus; the viseme
// path does not depend on it.
type VAD struct {
	config *VADConfig
	mu     sync.Mutex

	isActive   bool
	lastActive time.Time

	energyHistory []float64
	historyIndex  int
}

// VADConfig holds detection parameters.
type VADConfig struct {
	Threshold       float64 `mapstructure:"threshold"`        // RMS threshold, default 0.01
	SmoothingFrames int     `mapstructure:"smoothing_frames"` // frames to smooth, default 5
	MaxSilenceMs    int     `mapstructure:"max_silence_ms"`   // silence before end, default 500
}

// DefaultVADConfig returns sensible defaults.
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		Threshold:       0.01,
		SmoothingFrames: 5,
		MaxSilenceMs:    500,
	}
}

// VADResult reports one chunk's detection outcome, including the start
// and end edges of a speech segment.
type VADResult struct {
	IsSpeech bool
	RMS      float64
	Started  bool
	Ended    bool
}

// NewVAD creates a VAD instance.
func NewVAD(config *VADConfig) *VAD {
	if config == nil {
		config = DefaultVADConfig()
	}
	return &VAD{
		config:        config,
		energyHistory: make([]float64, config.SmoothingFrames),
	}
}

// Process analyzes one chunk of normalized samples.
func (v *VAD) Process(samples []float32) VADResult {
	v.mu.Lock()
	defer v.mu.Unlock()

	rms := calculateRMS(samples)

	v.energyHistory[v.historyIndex] = rms
	v.historyIndex = (v.historyIndex + 1) % len(v.energyHistory)

	var sum float64
	for _, e := range v.energyHistory {
		sum += e
	}
	smoothed := sum / float64(len(v.energyHistory))

	isSpeech := smoothed >= v.config.Threshold

	result := VADResult{RMS: smoothed}

	if isSpeech {
		if !v.isActive {
			result.Started = true
		}
		v.isActive = true
		v.lastActive = time.Now()
	} else if v.isActive {
		silence := time.Since(v.lastActive)
		if silence > time.Duration(v.config.MaxSilenceMs)*time.Millisecond {
			v.isActive = false
			result.Ended = true
		} else {
			isSpeech = true
		}
	}

	result.IsSpeech = isSpeech
	return result
}

// IsActive reports whether a speech segment is open.
func (v *VAD) IsActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isActive
}

// Reset clears detection state.
func (v *VAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.isActive = false
	v.historyIndex = 0
	for i := range v.energyHistory {
		v.energyHistory[i] = 0
	}
}

func calculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
