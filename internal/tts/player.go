package tts

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"

	"github.com/normanking/visage/internal/bus"
	"github.com/rs/zerolog"
)

// Player runs playback-only utilities. It never touches the capture
// analysis loop; lipsync for played audio goes through the text
// fallback path instead.
type Player struct {
	provider Provider
	sink     Sink
	client   *http.Client
	eventBus *bus.EventBus
	logger   zerolog.Logger
}

// NewPlayer creates a player. provider may be nil when no synthesis
// backend exists on the platform; SynthesizeAndPlay then fails with
// ErrSynthesisUnsupported.
func NewPlayer(provider Provider, sink Sink, eventBus *bus.EventBus, logger zerolog.Logger) *Player {
	return &Player{
		provider: provider,
		sink:     sink,
		client:   &http.Client{},
		eventBus: eventBus,
		logger:   logger.With().Str("component", "tts").Logger(),
	}
}

// PlayAudio fetches, decodes and plays a WAV asset by URL, blocking
// until playback ends. Fetch and decode failures surface as
// ErrAssetDecode.
func (p *Player) PlayAudio(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetDecode, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetDecode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAssetDecode, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetDecode, err)
	}

	clip, err := DecodeWAV(data)
	if err != nil {
		return err
	}

	return p.play(ctx, clip)
}

// SynthesizeAndPlay converts text to speech and plays it, resolving on
// playback end.
func (p *Player) SynthesizeAndPlay(ctx context.Context, text string) error {
	if p.provider == nil {
		return ErrSynthesisUnsupported
	}
	if err := p.provider.Health(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesisUnsupported, err)
	}

	clip, err := p.provider.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesisError, err)
	}

	return p.play(ctx, clip)
}

func (p *Player) play(ctx context.Context, clip *Clip) error {
	if p.sink == nil {
		return nil
	}

	if p.eventBus != nil {
		p.eventBus.Publish(bus.Event{Type: bus.EventTypePlaybackStarted, Data: map[string]any{
			"samples":     len(clip.Samples),
			"sample_rate": clip.SampleRate,
		}})
	}

	err := p.sink.Play(ctx, clip)

	if p.eventBus != nil {
		p.eventBus.Publish(bus.Event{Type: bus.EventTypePlaybackFinished, Data: nil})
	}

	return err
}

// DecodeWAV parses a 16-bit PCM RIFF/WAVE asset into a mono clip.
// Multi-channel audio is downmixed by averaging.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrAssetDecode)
	}

	var sampleRate int
	var channels int
	var bitsPerSample int
	var pcm []byte

	// Walk the chunk list; fmt must precede data.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, fmt.Errorf("%w: truncated chunk %q", ErrAssetDecode, chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrAssetDecode)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("%w: unsupported WAV format %d", ErrAssetDecode, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if sampleRate == 0 || channels == 0 || pcm == nil {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrAssetDecode)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrAssetDecode, bitsPerSample)
	}

	frameBytes := 2 * channels
	frames := len(pcm) / frameBytes
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			s := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			sum += float32(s) / 32768.0
		}
		samples[i] = sum / float32(channels)
	}

	return &Clip{Samples: samples, SampleRate: sampleRate}, nil
}
