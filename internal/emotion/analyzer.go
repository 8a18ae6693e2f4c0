// Package emotion scores utterance text into a coarse sentiment category
// using static lexicons. Matching is substring-based, not tokenized, so
// it works for languages without word separators.
package emotion

import (
	"strings"
)

// Type is the sentiment category of an utterance.
type Type string

const (
	Positive Type = "positive"
	Negative Type = "negative"
	Neutral  Type = "neutral"
)

// Score is the classifier output for one utterance. Intensity modulates
// how strongly downstream expression and motion play the emotion.
type Score struct {
	Type      Type
	Score     float32 // confidence, [0,1]
	Intensity float32 // [0.3, 1.0]
}

var positiveWords = []string{
	"嬉しい", "楽しい", "幸せ", "最高", "素晴らしい", "好き", "ありがとう",
	"良い", "よかった", "すごい", "面白い", "笑", "可愛い", "感謝",
	"happy", "great", "wonderful", "love", "thanks", "thank you", "good",
	"awesome", "amazing", "nice", "fun", "glad", "excellent",
}

var negativeWords = []string{
	"悲しい", "辛い", "苦しい", "嫌い", "最悪", "怖い", "寂しい",
	"困った", "残念", "疲れた", "痛い", "泣", "ダメ", "無理",
	"sad", "bad", "terrible", "hate", "awful", "sorry", "angry",
	"worst", "tired", "afraid", "lonely", "pain", "cry",
}

var intensifiers = []string{
	"とても", "すごく", "本当に", "めっちゃ", "超", "かなり", "非常に",
	"very", "really", "so ", "extremely", "totally", "absolutely",
}

var mitigators = []string{
	"少し", "ちょっと", "たぶん", "やや", "多分", "まあまあ",
	"slightly", "a bit", "a little", "somewhat", "kind of", "maybe",
}

// Analyze scores a single utterance. Zero lexicon hits or a tie yields
// neutral with score 0.5 and intensity 0.5.
func Analyze(text string) Score {
	if text == "" {
		return Score{Type: Neutral, Score: 0.5, Intensity: 0.5}
	}

	lowered := strings.ToLower(text)

	posCount := countHits(lowered, positiveWords)
	negCount := countHits(lowered, negativeWords)

	if posCount == 0 && negCount == 0 || posCount == negCount {
		return Score{Type: Neutral, Score: 0.5, Intensity: 0.5}
	}

	var t Type
	var winner int
	if posCount > negCount {
		t = Positive
		winner = posCount
	} else {
		t = Negative
		winner = negCount
	}

	score := float32(winner) / float32(posCount+negCount+1)
	if score > 1 {
		score = 1
	}

	intensity := float32(1.0)
	for _, w := range intensifiers {
		if strings.Contains(lowered, strings.ToLower(w)) {
			intensity += 0.1
			if intensity > 1.0 {
				intensity = 1.0
			}
		}
	}
	for _, w := range mitigators {
		if strings.Contains(lowered, strings.ToLower(w)) {
			intensity -= 0.1
			if intensity < 0.3 {
				intensity = 0.3
			}
		}
	}

	return Score{Type: t, Score: score, Intensity: intensity}
}

// AnalyzeMultiple averages score and intensity across utterances and
// picks the modal type.
func AnalyzeMultiple(texts []string) Score {
	if len(texts) == 0 {
		return Score{Type: Neutral, Score: 0.5, Intensity: 0.5}
	}

	var scoreSum, intensitySum float32
	counts := make(map[Type]int, 3)

	for _, text := range texts {
		s := Analyze(text)
		scoreSum += s.Score
		intensitySum += s.Intensity
		counts[s.Type]++
	}

	modal := Neutral
	best := 0
	for _, t := range []Type{Positive, Negative, Neutral} {
		if counts[t] > best {
			best = counts[t]
			modal = t
		}
	}

	n := float32(len(texts))
	return Score{
		Type:      modal,
		Score:     scoreSum / n,
		Intensity: intensitySum / n,
	}
}

func countHits(lowered string, lexicon []string) int {
	count := 0
	for _, w := range lexicon {
		if strings.Contains(lowered, strings.ToLower(w)) {
			count++
		}
	}
	return count
}
