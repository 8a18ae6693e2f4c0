// Package expression maintains the avatar's discrete facial expression
// state and interpolates it toward targets over fixed durations. It owns
// the eyelid, eyebrow and emotion-shape channels, a namespace disjoint
// from the viseme mapper's mouth channels.
package expression

import (
	"sync"
	"time"

	"github.com/normanking/visage/internal/actuator"
	"github.com/rs/zerolog"
)

// Type is a discrete expression category.
type Type string

const (
	Neutral   Type = "neutral"
	Smile     Type = "smile"
	Sad       Type = "sad"
	Surprised Type = "surprised"
	Angry     Type = "angry"
)

// pose holds the derived eyelid/eyebrow values for one expression type.
type pose struct {
	eyelid  float32
	eyebrow float32
}

var poseTable = map[Type]pose{
	Neutral:   {eyelid: 0.0, eyebrow: 0.5},
	Smile:     {eyelid: 0.3, eyebrow: 0.6},
	Sad:       {eyelid: 0.2, eyebrow: 0.2},
	Surprised: {eyelid: 0.0, eyebrow: 0.9},
	Angry:     {eyelid: 0.4, eyebrow: 0.3},
}

// emotionChannels maps each type to the morph channel names it drives.
// The lowercase/uppercase smile pair covers rigs exported with either
// convention.
var emotionChannels = map[Type][]string{
	Smile:     {"smile", "Smile"},
	Sad:       {"Sad"},
	Surprised: {"Surprised"},
	Angry:     {"Angry"},
}

const (
	channelBlink   = "Blink"
	channelBrowsUp = "BrowsUp"
)

// State is the full expression state applied to the face.
type State struct {
	Type             Type
	Intensity        float32
	EyelidClosedness float32
	EyebrowHeight    float32
}

// DefaultTransition is the interpolation duration when the caller does
// not specify one.
const DefaultTransition = 300 * time.Millisecond

// frameInterval is the assumed host animation-frame period.
const frameInterval = 16 * time.Millisecond

// blinkCurve is the eyelid keyframe sequence for one blink.
var blinkCurve = [5]float32{0, 0.5, 1, 0.5, 0}

const blinkStepDuration = 50 * time.Millisecond

// transition is the single owned in-flight interpolation. Starting a new
// transition replaces it, so stale per-call loops can never race the
// current one for the face.
type transition struct {
	from        State
	to          State
	frame       int
	totalFrames int
}

// Controller owns the current expression state and advances it one frame
// per Update call.
type Controller struct {
	mu sync.Mutex

	current State
	trans   *transition

	blinkActive bool
	blinkFrame  int

	blinkEvery  int // frames between scheduled blinks; 0 = off
	blinkChoice int // frame countdown to the next scheduled blink

	binder *actuator.Binder
	logger zerolog.Logger
}

// NewController creates a controller resting at neutral.
func NewController(binder *actuator.Binder, logger zerolog.Logger) *Controller {
	return &Controller{
		current: neutralState(),
		binder:  binder,
		logger:  logger.With().Str("component", "expression").Logger(),
	}
}

func neutralState() State {
	p := poseTable[Neutral]
	return State{Type: Neutral, Intensity: 0, EyelidClosedness: p.eyelid, EyebrowHeight: p.eyebrow}
}

// SetExpression retargets the face toward the named expression over the
// given duration. A zero or negative duration still runs one frame. Any
// in-flight transition is superseded; interpolation restarts from the
// current state, so there is no hard cutover.
func (c *Controller) SetExpression(t Type, intensity float32, duration time.Duration) {
	p, ok := poseTable[t]
	if !ok {
		t = Neutral
		p = poseTable[Neutral]
	}
	intensity = clamp(intensity, 0, 1)

	target := State{
		Type:             t,
		Intensity:        intensity,
		EyelidClosedness: p.eyelid * intensity,
		EyebrowHeight:    p.eyebrow,
	}

	frames := int(duration / frameInterval)
	if frames < 1 {
		frames = 1
	}

	c.mu.Lock()
	c.trans = &transition{
		from:        c.current,
		to:          target,
		totalFrames: frames,
	}
	c.mu.Unlock()

	c.logger.Debug().
		Str("expression", string(t)).
		Float32("intensity", intensity).
		Int("frames", frames).
		Msg("Expression retargeted")
}

// SetExpressionFromEmotion maps a sentiment category onto an expression:
// positive smiles, negative saddens, anything else returns to neutral.
func (c *Controller) SetExpressionFromEmotion(emotionType string, intensity float32) {
	switch emotionType {
	case "positive":
		c.SetExpression(Smile, intensity, DefaultTransition)
	case "negative":
		c.SetExpression(Sad, intensity, DefaultTransition)
	default:
		c.SetExpression(Neutral, intensity, DefaultTransition)
	}
}

// Blink runs one open-close-open eyelid curve on a track independent of
// the main transition. A blink already in progress is left alone.
func (c *Controller) Blink() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blinkActive {
		return
	}
	c.blinkActive = true
	c.blinkFrame = 0
}

// StartBlinking schedules periodic blinks. Only one schedule is live at a
// time; calling it again restarts the interval.
func (c *Controller) StartBlinking(interval time.Duration) {
	frames := int(interval / frameInterval)
	if frames < 1 {
		frames = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.blinkEvery = frames
	c.blinkChoice = frames
}

// StopBlinking cancels the periodic blink schedule. A blink currently in
// progress finishes its curve.
func (c *Controller) StopBlinking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blinkEvery = 0
	c.blinkChoice = 0
}

// Reset snaps back to neutral immediately, dropping any in-flight
// transition and blink schedule.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.current = neutralState()
	c.trans = nil
	c.blinkActive = false
	c.blinkEvery = 0
	c.blinkChoice = 0
	c.mu.Unlock()

	c.apply()
}

// Current returns the applied expression state.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// IsTransitioning reports whether an interpolation is in flight.
func (c *Controller) IsTransitioning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trans != nil
}

// Update advances the transition and blink tracks by one animation frame
// and writes the blended state to the face actuators.
func (c *Controller) Update() {
	c.mu.Lock()

	if c.trans != nil {
		tr := c.trans
		tr.frame++
		p := float32(tr.frame) / float32(tr.totalFrames)
		if p >= 1 {
			c.current = tr.to
			c.trans = nil
		} else {
			c.current = blendStates(tr.from, tr.to, p)
		}
	}

	if c.blinkEvery > 0 && !c.blinkActive {
		c.blinkChoice--
		if c.blinkChoice <= 0 {
			c.blinkActive = true
			c.blinkFrame = 0
			c.blinkChoice = c.blinkEvery
		}
	}

	if c.blinkActive {
		c.blinkFrame++
		if c.blinkStep() >= len(blinkCurve) {
			c.blinkActive = false
		}
	}

	c.mu.Unlock()

	c.apply()
}

func (c *Controller) blinkStep() int {
	framesPerStep := int(blinkStepDuration / frameInterval)
	if framesPerStep < 1 {
		framesPerStep = 1
	}
	return c.blinkFrame / framesPerStep
}

// blendStates linearly interpolates between two states. When the types
// differ, the outgoing emotion channel fades as the incoming one rises;
// channelWeights resolves that split from the blended fields.
func blendStates(from, to State, p float32) State {
	s := State{
		Type:             to.Type,
		Intensity:        lerp(from.Intensity, to.Intensity, p),
		EyelidClosedness: lerp(from.EyelidClosedness, to.EyelidClosedness, p),
		EyebrowHeight:    lerp(from.EyebrowHeight, to.EyebrowHeight, p),
	}
	return s
}

// apply writes the current state (plus blink overlay) to the actuators.
func (c *Controller) apply() {
	if c.binder == nil {
		return
	}

	c.mu.Lock()
	weights := c.channelWeightsLocked()
	c.mu.Unlock()

	c.binder.Apply(weights)
}

func (c *Controller) channelWeightsLocked() map[string]float32 {
	weights := map[string]float32{
		channelBrowsUp: c.current.EyebrowHeight,
	}

	// Zero every emotion channel, then raise the active one. This keeps a
	// superseded expression from lingering on the mesh.
	for _, names := range emotionChannels {
		for _, name := range names {
			weights[name] = 0
		}
	}

	var fromWeight float32
	if c.trans != nil && c.trans.from.Type != c.current.Type {
		p := float32(c.trans.frame) / float32(c.trans.totalFrames)
		fromWeight = c.trans.from.Intensity * (1 - p)
		for _, name := range emotionChannels[c.trans.from.Type] {
			weights[name] = fromWeight
		}
	}

	// A cross-type transition raises the incoming channel from zero; a
	// same-type retarget keeps the already-lerped intensity so the weight
	// moves continuously from wherever it was.
	var toWeight float32
	if c.trans != nil && c.trans.from.Type != c.trans.to.Type {
		p := float32(c.trans.frame) / float32(c.trans.totalFrames)
		toWeight = c.trans.to.Intensity * p
	} else {
		toWeight = c.current.Intensity
	}
	for _, name := range emotionChannels[c.current.Type] {
		weights[name] = toWeight
	}

	eyelid := c.current.EyelidClosedness
	if c.blinkActive {
		step := c.blinkStep()
		if step < len(blinkCurve) && blinkCurve[step] > eyelid {
			eyelid = blinkCurve[step]
		}
	}
	weights[channelBlink] = eyelid

	return weights
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

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
