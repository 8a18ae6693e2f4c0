package viseme

import (
	"strings"
	"time"
)

// charToChannel maps letters to the closest of the five mouth shapes.
// Consonants borrow the vowel shape their articulation is nearest to;
// anything unvoiced maps to neutral.
var charToChannel = map[rune]string{
	'a': ChannelA, 'e': ChannelE, 'i': ChannelI, 'o': ChannelO, 'u': ChannelU,
	'w': ChannelU, 'y': ChannelI, 'h': ChannelA,
	'b': ChannelO, 'm': ChannelO, 'p': ChannelO,
	'f': ChannelU, 'v': ChannelU, 'r': ChannelU,
	's': ChannelI, 'z': ChannelI, 'c': ChannelE,
	'd': ChannelE, 't': ChannelE, 'n': ChannelE, 'l': ChannelE,
	'k': ChannelA, 'g': ChannelA, 'j': ChannelE, 'q': ChannelU, 'x': ChannelE,
}

// SequenceFromText estimates a phoneme-channel sequence for an utterance.
// This is the fallback lipsync path when no audio signal is available:
// the result feeds PlayPhonemeSequence. Word boundaries become neutral
// steps; consecutive identical shapes collapse into one.
func SequenceFromText(text string) []string {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return nil
	}

	seq := make([]string, 0, len(cleaned)/2+1)
	push := func(name string) {
		if len(seq) > 0 && seq[len(seq)-1] == name {
			return
		}
		seq = append(seq, name)
	}

	for _, r := range cleaned {
		if r == ' ' || r == '\n' || r == '\t' {
			push(ChannelNeutral)
			continue
		}
		if ch, ok := charToChannel[r]; ok {
			push(ch)
		}
	}

	push(ChannelNeutral)
	return seq
}

// StepDurationForText estimates a per-step duration so a text sequence
// roughly fills natural speaking time (~15 characters per second).
func StepDurationForText(text string, steps int) time.Duration {
	if steps <= 0 {
		return 0
	}
	total := time.Duration(len(text)) * time.Second / 15
	if total <= 0 {
		total = 100 * time.Millisecond
	}
	return total / time.Duration(steps)
}
