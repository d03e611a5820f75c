package pcm

import "fmt"

// Concatenate joins buffers end to end in the given order. All buffers must
// share sample rate and channel count.
func Concatenate(bufs ...*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return nil, ErrNoBuffers
	}

	first := bufs[0]
	total := 0
	for i, b := range bufs {
		if b == nil {
			return nil, fmt.Errorf("buffer %d is nil", i)
		}
		if !b.SameFormat(first) {
			return nil, fmt.Errorf("%w: buffer %d is %d Hz/%d ch, want %d Hz/%d ch",
				ErrFormatMismatch, i, b.SampleRate, b.Channels, first.SampleRate, first.Channels)
		}
		total += b.Frames() * b.Channels
	}

	samples := make([]float32, 0, total)
	for _, b := range bufs {
		samples = append(samples, b.Samples[:b.Frames()*b.Channels]...)
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: first.SampleRate,
		Channels:   first.Channels,
	}, nil
}
