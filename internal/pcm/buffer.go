package pcm

import (
	"errors"
	"fmt"
	"time"
)

// Audio format of everything the speech model returns.
const (
	// SampleRate is the speech model output rate in Hz.
	SampleRate = 24000
	// Channels is the speech model channel count (mono).
	Channels = 1
	// BitDepth is the bit depth of the wire and container format.
	BitDepth = 16
	// BytesPerSample is the number of bytes per 16-bit sample.
	BytesPerSample = BitDepth / 8
)

var (
	// ErrOddLength is returned when a PCM16 byte stream has an odd length.
	ErrOddLength = errors.New("pcm16 data length is not a multiple of 2")

	// ErrFormatMismatch is returned when buffers with different sample
	// rates or channel counts are combined.
	ErrFormatMismatch = errors.New("buffers have different formats")

	// ErrNoBuffers is returned when concatenating nothing.
	ErrNoBuffers = errors.New("no buffers to concatenate")
)

// Buffer is decoded audio: interleaved float samples normalized to [-1, 1].
// A Buffer must not be modified once it has been handed out.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// NewBuffer allocates a silent buffer holding frames frames.
func NewBuffer(frames, sampleRate, channels int) (*Buffer, error) {
	if err := validateFormat(sampleRate, channels); err != nil {
		return nil, err
	}
	if frames < 0 {
		return nil, fmt.Errorf("negative frame count %d", frames)
	}
	return &Buffer{
		Samples:    make([]float32, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// Frames returns the number of frames (samples per channel).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length at normal speed.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Channel returns a copy of the samples of one channel.
func (b *Buffer) Channel(ch int) []float32 {
	if ch < 0 || ch >= b.Channels {
		return nil
	}
	frames := b.Frames()
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		out[i] = b.Samples[i*b.Channels+ch]
	}
	return out
}

// SizeBytes is the memory held by the sample slice.
func (b *Buffer) SizeBytes() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Samples)) * 4
}

// SameFormat reports whether two buffers share sample rate and channel count.
func (b *Buffer) SameFormat(o *Buffer) bool {
	return b.SampleRate == o.SampleRate && b.Channels == o.Channels
}

func validateFormat(sampleRate, channels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 || channels > 0xFFFF {
		return fmt.Errorf("invalid channel count %d", channels)
	}
	return nil
}
