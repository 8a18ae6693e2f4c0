package viseme

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequenceFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "vowels map directly",
			text: "aiueo",
			want: []string{ChannelA, ChannelI, ChannelU, ChannelE, ChannelO, ChannelNeutral},
		},
		{
			name: "repeats collapse",
			text: "aa",
			want: []string{ChannelA, ChannelNeutral},
		},
		{
			name: "word boundary becomes neutral",
			text: "aa bb",
			want: []string{ChannelA, ChannelNeutral, ChannelO, ChannelNeutral},
		},
		{
			name: "case insensitive",
			text: "HELLO",
			want: []string{ChannelA, ChannelE, ChannelO, ChannelNeutral},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SequenceFromText(tt.text))
		})
	}
}

func TestSequenceFromText_AlwaysEndsNeutral(t *testing.T) {
	for _, text := range []string{"hello world", "a", "konnichiwa"} {
		seq := SequenceFromText(text)
		assert.Equal(t, ChannelNeutral, seq[len(seq)-1], "text %q", text)
	}
}

func TestStepDurationForText(t *testing.T) {
	// 15 characters should fill roughly one second.
	d := StepDurationForText("fifteen chars..", 10)
	assert.InDelta(t, float64(100*time.Millisecond), float64(d), float64(5*time.Millisecond))

	assert.Equal(t, time.Duration(0), StepDurationForText("abc", 0))

	// Empty text still yields a usable positive step.
	assert.Greater(t, int64(StepDurationForText("", 2)), int64(0))
}
