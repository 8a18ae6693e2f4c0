package expression

import (
	"testing"
	"time"

	"github.com/normanking/visage/internal/actuator"
	"github.com/normanking/visage/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFaceBinder() (*actuator.Binder, *model.Mesh) {
	mesh := &model.Mesh{
		Name: "Face",
		MorphNames: map[string]int{
			"smile": 0, "Smile": 1, "Sad": 2, "Surprised": 3, "Angry": 4,
			"Blink": 5, "BrowsUp": 6,
		},
		Influences: make([]float32, 7),
	}
	b := actuator.NewBinder(zerolog.Nop())
	b.SetModel(&model.Graph{Meshes: []*model.Mesh{mesh}})
	return b, mesh
}

func TestController_StartsNeutral(t *testing.T) {
	c := NewController(nil, zerolog.Nop())

	s := c.Current()
	assert.Equal(t, Neutral, s.Type)
	assert.InDelta(t, 0.0, s.EyelidClosedness, 1e-6)
	assert.InDelta(t, 0.5, s.EyebrowHeight, 1e-6)
	assert.False(t, c.IsTransitioning())
}

func TestController_ZeroDurationConvergesInOneFrame(t *testing.T) {
	c := NewController(nil, zerolog.Nop())

	c.SetExpression(Smile, 1.0, 0)
	c.Update()

	s := c.Current()
	assert.Equal(t, Smile, s.Type)
	assert.InDelta(t, 0.3, s.EyelidClosedness, 1e-6)
	assert.InDelta(t, 0.6, s.EyebrowHeight, 1e-6)
	assert.False(t, c.IsTransitioning())
}

func TestController_TransitionInterpolatesOverFrames(t *testing.T) {
	c := NewController(nil, zerolog.Nop())

	// 160ms at 16ms frames is 10 frames.
	c.SetExpression(Surprised, 1.0, 160*time.Millisecond)

	for i := 0; i < 5; i++ {
		c.Update()
	}
	mid := c.Current()
	assert.True(t, c.IsTransitioning())
	assert.InDelta(t, 0.7, mid.EyebrowHeight, 1e-5) // halfway from 0.5 to 0.9

	for i := 0; i < 5; i++ {
		c.Update()
	}
	end := c.Current()
	assert.False(t, c.IsTransitioning())
	assert.InDelta(t, 0.9, end.EyebrowHeight, 1e-6)
	assert.InDelta(t, 0.0, end.EyelidClosedness, 1e-6)
}

func TestController_NewTransitionSupersedesInFlight(t *testing.T) {
	c := NewController(nil, zerolog.Nop())

	c.SetExpression(Surprised, 1.0, time.Second)
	for i := 0; i < 5; i++ {
		c.Update()
	}

	c.SetExpression(Angry, 0.5, 0)
	c.Update()

	s := c.Current()
	assert.Equal(t, Angry, s.Type)
	assert.InDelta(t, 0.4*0.5, s.EyelidClosedness, 1e-6)
	assert.InDelta(t, 0.3, s.EyebrowHeight, 1e-6)
	assert.False(t, c.IsTransitioning())
}

func TestController_IntensityScalesEyelidNotEyebrow(t *testing.T) {
	c := NewController(nil, zerolog.Nop())

	c.SetExpression(Smile, 0.5, 0)
	c.Update()

	s := c.Current()
	assert.InDelta(t, 0.15, s.EyelidClosedness, 1e-6)
	assert.InDelta(t, 0.6, s.EyebrowHeight, 1e-6)
}

func TestController_UnknownTypeFallsBackToNeutral(t *testing.T) {
	c := NewController(nil, zerolog.Nop())

	c.SetExpression(Type("confused"), 1.0, 0)
	c.Update()

	assert.Equal(t, Neutral, c.Current().Type)
}

func TestController_SetExpressionFromEmotion(t *testing.T) {
	tests := []struct {
		emotion string
		want    Type
	}{
		{"positive", Smile},
		{"negative", Sad},
		{"neutral", Neutral},
		{"anything-else", Neutral},
	}

	for _, tt := range tests {
		c := NewController(nil, zerolog.Nop())
		c.SetExpressionFromEmotion(tt.emotion, 1.0)
		for i := 0; i < 30; i++ {
			c.Update()
		}
		assert.Equal(t, tt.want, c.Current().Type, "emotion %s", tt.emotion)
	}
}

func TestController_AppliesChannelWeights(t *testing.T) {
	binder, mesh := newFaceBinder()
	c := NewController(binder, zerolog.Nop())

	c.SetExpression(Smile, 1.0, 0)
	c.Update()

	assert.InDelta(t, 1.0, mesh.Influences[0], 1e-6) // smile
	assert.InDelta(t, 1.0, mesh.Influences[1], 1e-6) // Smile
	assert.InDelta(t, 0.0, mesh.Influences[2], 1e-6) // Sad stays zero
	assert.InDelta(t, 0.6, mesh.Influences[6], 1e-6) // BrowsUp
}

func TestController_SameTypeRetargetHasNoWeightDip(t *testing.T) {
	binder, mesh := newFaceBinder()
	c := NewController(binder, zerolog.Nop())

	c.SetExpression(Smile, 1.0, 0)
	c.Update()
	require.InDelta(t, 1.0, mesh.Influences[0], 1e-6)

	// Retargeting the same type at lower intensity must move the channel
	// continuously from 1.0 toward 0.5, never snap toward zero first.
	c.SetExpression(Smile, 0.5, 320*time.Millisecond) // 20 frames
	c.Update()

	assert.InDelta(t, 0.975, mesh.Influences[0], 1e-5)

	prev := mesh.Influences[0]
	for i := 0; i < 19; i++ {
		c.Update()
		assert.LessOrEqual(t, mesh.Influences[0], prev)
		prev = mesh.Influences[0]
	}
	assert.InDelta(t, 0.5, mesh.Influences[0], 1e-5)
}

func TestController_CrossTypeTransitionCrossfades(t *testing.T) {
	binder, mesh := newFaceBinder()
	c := NewController(binder, zerolog.Nop())

	c.SetExpression(Smile, 1.0, 0)
	c.Update()

	// 160ms is 10 frames; at the midpoint the outgoing channel has faded
	// to half and the incoming one has risen to half.
	c.SetExpression(Sad, 1.0, 160*time.Millisecond)
	for i := 0; i < 5; i++ {
		c.Update()
	}

	assert.InDelta(t, 0.5, mesh.Influences[0], 1e-5) // smile fading
	assert.InDelta(t, 0.5, mesh.Influences[2], 1e-5) // Sad rising
}

func TestController_SupersededExpressionDoesNotLinger(t *testing.T) {
	binder, mesh := newFaceBinder()
	c := NewController(binder, zerolog.Nop())

	c.SetExpression(Smile, 1.0, 0)
	c.Update()
	c.SetExpression(Sad, 1.0, 0)
	c.Update()

	assert.InDelta(t, 0.0, mesh.Influences[0], 1e-6) // smile cleared
	assert.InDelta(t, 0.0, mesh.Influences[1], 1e-6)
	assert.InDelta(t, 1.0, mesh.Influences[2], 1e-6) // Sad raised
}

func TestController_BlinkRunsFullCurve(t *testing.T) {
	binder, mesh := newFaceBinder()
	c := NewController(binder, zerolog.Nop())

	c.Blink()

	// 50ms per keyframe at 16ms frames is 3 frames per step; the peak
	// keyframe (fully closed) covers frames 6-8.
	for i := 0; i < 7; i++ {
		c.Update()
	}
	assert.InDelta(t, 1.0, mesh.Influences[5], 1e-6)

	// The curve reopens the eye by the end.
	for i := 0; i < 20; i++ {
		c.Update()
	}
	assert.InDelta(t, 0.0, mesh.Influences[5], 1e-6)
}

func TestController_BlinkNeverOpensBelowExpressionEyelid(t *testing.T) {
	binder, mesh := newFaceBinder()
	c := NewController(binder, zerolog.Nop())

	c.SetExpression(Angry, 1.0, 0)
	c.Update()
	assert.InDelta(t, 0.4, mesh.Influences[5], 1e-6)

	c.Blink()
	c.Update() // first keyframe is 0, but the expression holds 0.4
	assert.InDelta(t, 0.4, mesh.Influences[5], 1e-6)
}

func TestController_StartBlinkingSchedulesPeriodically(t *testing.T) {
	c := NewController(nil, zerolog.Nop())

	// 32ms interval is 2 frames between blinks.
	c.StartBlinking(32 * time.Millisecond)

	c.Update()
	assert.False(t, c.blinkActive)
	c.Update()
	assert.True(t, c.blinkActive)
}

func TestController_StopBlinkingCancelsSchedule(t *testing.T) {
	c := NewController(nil, zerolog.Nop())
	c.StartBlinking(32 * time.Millisecond)
	c.StopBlinking()

	for i := 0; i < 10; i++ {
		c.Update()
	}
	assert.False(t, c.blinkActive)
}

func TestController_ResetDropsEverything(t *testing.T) {
	c := NewController(nil, zerolog.Nop())
	c.SetExpression(Angry, 1.0, time.Second)
	c.StartBlinking(time.Second)
	c.Update()

	c.Reset()

	s := c.Current()
	assert.Equal(t, Neutral, s.Type)
	assert.False(t, c.IsTransitioning())
	assert.InDelta(t, 0.5, s.EyebrowHeight, 1e-6)

	// Reset is idempotent.
	c.Reset()
	assert.Equal(t, Neutral, c.Current().Type)
}
