package main

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAVFile assembles a minimal 16-bit mono PCM asset on disk.
func writeWAVFile(t *testing.T, sampleRate, frames int) string {
	t.Helper()

	dataSize := frames * 2
	buf := make([]byte, 0, 44+dataSize)

	le := binary.LittleEndian
	u16 := func(v int) []byte { b := make([]byte, 2); le.PutUint16(b, uint16(v)); return b }
	u32 := func(v int) []byte { b := make([]byte, 4); le.PutUint32(b, uint32(v)); return b }

	buf = append(buf, "RIFF"...)
	buf = append(buf, u32(36+dataSize)...)
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...) // PCM
	buf = append(buf, u16(1)...) // mono
	buf = append(buf, u32(sampleRate)...)
	buf = append(buf, u32(sampleRate*2)...)
	buf = append(buf, u16(2)...)
	buf = append(buf, u16(16)...)

	buf = append(buf, "data"...)
	buf = append(buf, u32(dataSize)...)
	buf = append(buf, make([]byte, dataSize)...)

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestWAVSource_StreamsWholeClip(t *testing.T) {
	path := writeWAVFile(t, 48000, 3*chunkSamples)

	src, err := newWAVSource(path)
	require.NoError(t, err)

	out, err := src.Start(context.Background())
	require.NoError(t, err)
	defer src.Stop()

	total := 0
	deadline := time.After(2 * time.Second)
	for {
		select {
		case chunk, ok := <-out:
			if !ok {
				assert.Equal(t, 3*chunkSamples, total)
				return
			}
			assert.Equal(t, 48000, chunk.SampleRate)
			total += len(chunk.Samples)
		case <-deadline:
			t.Fatal("clip did not finish streaming")
		}
	}
}

func TestWAVSource_StopUnblocksStalledConsumer(t *testing.T) {
	// Enough frames that the replay goroutine overflows the channel
	// buffer and parks on a send nobody is reading.
	path := writeWAVFile(t, 48000, 16*chunkSamples)

	src, err := newWAVSource(path)
	require.NoError(t, err)

	out, err := src.Start(context.Background())
	require.NoError(t, err)

	// Give the goroutine time to fill the buffer and block.
	time.Sleep(200 * time.Millisecond)
	src.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel never closed after Stop")
		}
	}
}
